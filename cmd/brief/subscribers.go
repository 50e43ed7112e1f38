package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSubscribeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <email>",
		Short: "Subscribe an address, reactivating it if it had left",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := c.app.Subscribers.Subscribe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(map[string]any{"ok": true, "outcome": outcome}, string(outcome))
		},
	}
}

func newUnsubscribeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe <token>",
		Short: "Unsubscribe the holder of a signed unsubscribe token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Subscribers.Unsubscribe(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.print(map[string]any{"ok": true}, "unsubscribed")
		},
	}
}

func newTokenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "token <email>",
		Short: "Print the current unsubscribe token for a subscriber",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := c.app.Subscribers.Token(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(map[string]any{"token": tok}, tok)
		},
	}
}

func newSubscribersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribers",
		Short: "List active subscribers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.Subscribers.ListActive(cmd.Context())
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, r := range list {
				fmt.Fprintf(&b, "%s\t%s\n", r.ID, r.Email)
			}
			return c.print(list, strings.TrimSuffix(b.String(), "\n"))
		},
	}
}
