package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewPlatformCmd creates the platform command group
func NewPlatformCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Inspect publishing platforms",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show platform connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			statuses, err := client.PlatformStatus(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, len(statuses))
			for i, s := range statuses {
				rows[i] = []string{s.Name, orDash(s.DisplayName), strconv.FormatBool(s.IsActive), strconv.FormatBool(s.Connected)}
			}
			out.Print([]string{"NAME", "DISPLAY_NAME", "ACTIVE", "CONNECTED"}, rows, statuses)
			return nil
		},
	})

	return cmd
}

// NewSchedulerCmd creates the scheduler command group
func NewSchedulerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Inspect the job scheduler",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show scheduler state and registered jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.SchedulerStatus(cmd.Context())
			if err != nil {
				return err
			}

			state := "stopped"
			if status.Running {
				state = "running"
			}
			out.Success("Scheduler " + state + " (" + status.Timezone + ")")

			rows := make([][]string, len(status.Jobs))
			for i, j := range status.Jobs {
				rows[i] = []string{j.ID, j.Name, j.Trigger, orDash(j.NextRunTime)}
			}
			out.Print([]string{"ID", "NAME", "TRIGGER", "NEXT_RUN"}, rows, status)
			return nil
		},
	})

	return cmd
}
