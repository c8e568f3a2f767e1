// smmctl is the command-line client of the publishing API.
//
// Usage:
//
//	smmctl [--api-url URL] [--token TOKEN] [--json] <command> <subcommand> [flags]
//
// Commands:
//
//	post       list, show, approve, schedule, publish
//	platform   status
//	scheduler  status
//	generate   generate text for a category
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vadim/poolsmm/internal/cli"
)

// version is set with ldflags
var version = "dev"

func main() {
	var apiURL string
	var token string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "smmctl",
		Short:         "Pool construction SMM pipeline CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("SMM_API_URL", "http://localhost:8080"), "API server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("SMM_API_TOKEN"), "API bearer token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, token) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewPostCmd(clientFn, outputFn),
		cli.NewPlatformCmd(clientFn, outputFn),
		cli.NewSchedulerCmd(clientFn, outputFn),
		cli.NewGenerateCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
