package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newScheduleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <issue-id> <when>",
		Short: "Schedule delivery of a published issue",
		Long:  "Schedule delivery. <when> is an RFC 3339 timestamp; rescheduling moves the existing pending run.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := c.app.Schedule.Schedule(cmd.Context(), c.actor(), args[0], args[1])
			if err != nil {
				return err
			}
			return c.print(run, run.ID+"\t"+run.ScheduledFor.Format(time.RFC3339))
		},
	}
}

func newRunsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "runs <issue-id>",
		Short: "List send runs for an issue, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := c.app.Schedule.ListRuns(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, r := range runs {
				state := "pending"
				if r.SentAt != nil {
					state = r.SentAt.Format(time.RFC3339)
				}
				fmt.Fprintf(&b, "%s\t%s\t%s\t%d/%d/%d\n", r.ID, r.ScheduledFor.Format(time.RFC3339), state,
					r.AttemptedCount, r.SentCount, r.BouncedCount)
			}
			return c.print(runs, strings.TrimSuffix(b.String(), "\n"))
		},
	}
}

func newDispatchCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run one dispatch pass over due send runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				limit = c.app.Config.Dispatch.BatchLimit
			}
			res, err := c.app.Dispatch.DispatchDue(cmd.Context(), time.Now().UTC(), limit)
			if err != nil {
				return err
			}
			return c.print(res, fmt.Sprintf("dispatched=%d cancelled=%d skipped=%d", res.Dispatched, res.Cancelled, res.Skipped))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum runs to process (defaults to dispatch.batch_limit)")
	return cmd
}
