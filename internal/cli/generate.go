package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the content generation command
func NewGenerateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var noAI bool
	var fields []string

	cmd := &cobra.Command{
		Use:   "generate CATEGORY",
		Short: "Generate post text (project, tip, promo, case, edu, news)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			values := make(map[string]string, len(fields))
			for _, kv := range fields {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid field format %q, expected KEY=VALUE", kv)
				}
				values[key] = value
			}

			res, err := client.Generate(cmd.Context(), args[0], !noAI, values)
			if err != nil {
				return err
			}
			if out.jsonMode {
				out.JSON(res)
				return nil
			}

			source := "template"
			if res.AIUsed {
				source = "ai"
			}
			out.Success("Generated by " + source)
			out.Text(res.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noAI, "no-ai", false, "Use templates only")
	cmd.Flags().StringSliceVar(&fields, "field", nil, "Template field as KEY=VALUE (repeatable)")

	return cmd
}
