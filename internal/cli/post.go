package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewPostCmd creates the post command group
func NewPostCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage posts",
	}

	cmd.AddCommand(
		newPostListCmd(clientFn, outputFn),
		newPostShowCmd(clientFn, outputFn),
		newPostApproveCmd(clientFn, outputFn),
		newPostScheduleCmd(clientFn, outputFn),
		newPostPublishCmd(clientFn, outputFn),
	)

	return cmd
}

var postHeaders = []string{"ID", "TITLE", "STATUS", "CATEGORY", "PLATFORMS", "SCHEDULED_AT"}

func postRow(p PostResponse) []string {
	return []string{
		p.ID, truncate(p.Title, 40), p.Status, p.Category,
		strings.Join(p.Platforms, ","), orDash(p.ScheduledAt),
	}
}

func newPostListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListPostsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			page, err := client.ListPosts(cmd.Context(), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(page.Posts))
			for i, p := range page.Posts {
				rows[i] = postRow(p)
			}
			out.Print(postHeaders, rows, page)
			if len(page.Posts) < page.Total {
				out.Success(fmt.Sprintf("Shown %d of %d", len(page.Posts), page.Total))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (draft, pending, approved, scheduled, published, failed, rejected)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "Filter by category")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Page size (max 100)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Page offset")

	return cmd
}

func newPostShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a post and its publications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			detail, err := client.GetPost(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out.jsonMode {
				out.JSON(detail)
				return nil
			}

			out.Table(postHeaders, [][]string{postRow(detail.Post)})
			out.Text("")
			out.Text(detail.Post.Content)
			if len(detail.Publications) > 0 {
				out.Text("")
				rows := make([][]string, len(detail.Publications))
				for i, p := range detail.Publications {
					rows[i] = []string{p.Platform, p.Status, orDash(p.ExternalURL), orDash(truncate(p.ErrorMessage, 60)), p.PublishedAt}
				}
				out.Table([]string{"PLATFORM", "STATUS", "URL", "ERROR", "AT"}, rows)
			}
			return nil
		},
	}
}

func newPostApproveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "approve ID",
		Short: "Approve a pending post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			post, err := client.ApprovePost(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out.Success("Post approved: " + post.ID)
			out.Print(postHeaders, [][]string{postRow(*post)}, post)
			return nil
		},
	}
}

func newPostScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule ID TIME",
		Short: "Schedule a post (TIME is RFC3339 or \"YYYY-MM-DD HH:MM\" in the server timezone)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			post, err := client.SchedulePost(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			out.Success("Post scheduled: " + post.ScheduledAt)
			out.Print(postHeaders, [][]string{postRow(*post)}, post)
			return nil
		},
	}
}

func newPostPublishCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "publish ID",
		Short: "Publish a post now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.PublishPost(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(res.Results))
			for i, r := range res.Results {
				status := "ok"
				if !r.Success {
					status = "failed"
				}
				rows[i] = []string{r.Platform, status, orDash(r.ExternalURL), orDash(truncate(r.Error, 60))}
			}
			out.Print([]string{"PLATFORM", "RESULT", "URL", "ERROR"}, rows, res)

			if !res.Success {
				return fmt.Errorf("post %s was not published on any platform", args[0])
			}
			if res.Post.Delivery == "partial" {
				out.Success("Post published partially")
			} else {
				out.Success("Post published")
			}
			return nil
		},
	}
}
