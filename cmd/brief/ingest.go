package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newIngestCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull and browse syndicated feed items",
	}
	cmd.AddCommand(newIngestPollCmd(c), newIngestListCmd(c))
	return cmd
}

func newIngestPollCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "poll [feed-url...]",
		Short: "Poll feeds once (defaults to ingest.feeds)",
		RunE: func(cmd *cobra.Command, args []string) error {
			feeds := args
			if len(feeds) == 0 {
				feeds = c.app.Config.Ingest.Feeds
			}
			if len(feeds) == 0 {
				return fmt.Errorf("no feeds given and ingest.feeds is empty")
			}
			counts := make(map[string]int, len(feeds))
			for _, u := range feeds {
				n, err := c.app.Ingest.PollFeed(cmd.Context(), u)
				if err != nil {
					return err
				}
				counts[u] = n
			}
			var b strings.Builder
			for _, u := range feeds {
				fmt.Fprintf(&b, "%s\t%d new\n", u, counts[u])
			}
			return c.print(counts, strings.TrimSuffix(b.String(), "\n"))
		},
	}
}

func newIngestListCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently ingested items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := c.app.Ingest.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, it := range items {
				fmt.Fprintf(&b, "%s\t%s\t%s\n", it.ID, it.PublishedAt.Format("2006-01-02"), it.Title)
			}
			return c.print(items, strings.TrimSuffix(b.String(), "\n"))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum items")
	return cmd
}
