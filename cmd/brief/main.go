// Command brief is the operator CLI for the newsletter pipeline: editing and
// publishing issues, managing subscribers, scheduling and dispatching sends.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ignite/brief/internal/app"
	"github.com/ignite/brief/internal/config"
	"github.com/ignite/brief/internal/domain"
)

type cli struct {
	configPath string
	actorID    string
	out        string
	memory     bool
	stdout     io.Writer

	app   *app.App
	owned bool
}

func (c *cli) actor() domain.Actor {
	if c.actorID == "" {
		return domain.ServiceActor
	}
	return domain.UserActor(c.actorID)
}

// print writes v as indented JSON, or text when the format is text and the
// caller supplied one.
func (c *cli) print(v any, text string) error {
	if c.out == "text" && text != "" {
		_, err := fmt.Fprintln(c.stdout, text)
		return err
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A non-nil a is used as-is and left
// open; otherwise each invocation builds its own App from config.
func newRootCmd(stdout io.Writer, a *app.App) *cobra.Command {
	c := &cli{stdout: stdout, app: a}

	root := &cobra.Command{
		Use:           "brief",
		Short:         "Operate the newsletter publication and delivery pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.app != nil {
				return nil
			}
			cfg, err := config.LoadFromEnv(c.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			var opts []app.Option
			if c.memory {
				opts = append(opts, app.WithMemoryStore())
			}
			c.app, err = app.New(cmd.Context(), cfg, opts...)
			c.owned = err == nil
			return err
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if !c.owned {
				return nil
			}
			return c.app.Close()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", envOr("BRIEF_CONFIG", "config/brief.yaml"), "config file (env BRIEF_CONFIG)")
	root.PersistentFlags().StringVar(&c.actorID, "actor", os.Getenv("BRIEF_ACTOR"), "operator user id recorded in the audit log (env BRIEF_ACTOR)")
	root.PersistentFlags().StringVar(&c.out, "out", envOr("BRIEF_OUT", "json"), "output format: json|text")
	root.PersistentFlags().BoolVar(&c.memory, "memory", false, "use the in-memory store; nothing persists past this invocation")

	root.AddCommand(
		newIssueCmd(c),
		newSubscribeCmd(c),
		newUnsubscribeCmd(c),
		newTokenCmd(c),
		newSubscribersCmd(c),
		newScheduleCmd(c),
		newRunsCmd(c),
		newDispatchCmd(c),
		newIngestCmd(c),
	)
	return root
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
