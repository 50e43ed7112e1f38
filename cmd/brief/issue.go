package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/service/issue"
)

func newIssueCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Create, edit, review and publish issues",
	}
	cmd.AddCommand(
		newIssueCreateCmd(c),
		newIssueListCmd(c),
		newIssueShowCmd(c),
		newIssueUpdateCmd(c),
		newIssueReviewCmd(c),
		newIssuePublishCmd(c),
		newIssueExportCmd(c),
		newIssueAttachReportCmd(c),
		newIssueAttachItemCmd(c),
		newIssueResearchCmd(c),
	)
	return cmd
}

func newIssueCreateCmd(c *cli) *cobra.Command {
	var in issue.CreateInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a DRAFT issue with empty sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			is, err := c.app.Issues.Create(cmd.Context(), c.actor(), in)
			if err != nil {
				return err
			}
			return c.print(is, is.ID)
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "issue title")
	cmd.Flags().StringVar(&in.IssueDate, "date", "", "issue date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newIssueListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List issues, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.Issues.List(cmd.Context())
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, is := range list {
				fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", is.ID, is.IssueDate, is.Status, is.Title)
			}
			return c.print(list, strings.TrimSuffix(b.String(), "\n"))
		},
	}
}

func newIssueShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <issue-id>",
		Short: "Show an issue with its blocks and provenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.Issues.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(d, "")
		},
	}
}

func newIssueUpdateCmd(c *cli) *cobra.Command {
	var (
		title, date string
		blocks      []string
	)
	cmd := &cobra.Command{
		Use:   "update <issue-id>",
		Short: "Edit the title, date or section bodies of an issue",
		Long: `Edit an issue. Section bodies are given as SECTION=markdown, e.g.
  --block MONEY="Prices fell." --block NEXT_STEPS="Watch the auction."
Editing a REVIEWED issue drops it back to DRAFT.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in issue.UpdateInput
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("date") {
				in.IssueDate = &date
			}
			if len(blocks) > 0 {
				in.Blocks = make(map[string]string, len(blocks))
				for _, kv := range blocks {
					name, body, ok := strings.Cut(kv, "=")
					if !ok {
						return fmt.Errorf("--block %q: want SECTION=markdown", kv)
					}
					in.Blocks[name] = body
				}
			}
			d, err := c.app.Issues.Update(cmd.Context(), c.actor(), args[0], in)
			if err != nil {
				return err
			}
			return c.print(d, string(d.Status))
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&date, "date", "", "new issue date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&blocks, "block", nil, "section body as SECTION=markdown (repeatable)")
	return cmd
}

func newIssueReviewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "review <issue-id>",
		Short: "Mark a DRAFT issue as REVIEWED",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.Issues.MarkReviewed(cmd.Context(), c.actor(), args[0])
			if err != nil {
				return err
			}
			return c.print(d, string(d.Status))
		},
	}
}

func newIssuePublishCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <issue-id>",
		Short: "Publish a REVIEWED issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.Issues.Publish(cmd.Context(), c.actor(), args[0])
			if err != nil {
				return err
			}
			return c.print(d, string(d.Status))
		},
	}
}

func newIssueExportCmd(c *cli) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "export <issue-id>",
		Short: "Print the Markdown export of an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				baseURL = c.app.Config.Newsletter.BaseURL
			}
			md, err := c.app.Issues.Export(cmd.Context(), args[0], baseURL)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(c.stdout, md)
			return err
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "public base URL for field report links (defaults to newsletter.base_url)")
	return cmd
}

func newIssueAttachReportCmd(c *cli) *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "attach-report <issue-id> <field-report-id>",
		Short: "Tag a field report as a source for a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.Issues.AttachFieldReport(cmd.Context(), c.actor(), args[0], args[1], section)
			if err != nil {
				return err
			}
			return c.print(d.Provenance, "")
		},
	}
	cmd.Flags().StringVar(&section, "section", string(domain.SectionFromField), "section to tag")
	return cmd
}

func newIssueAttachItemCmd(c *cli) *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "attach-item <issue-id> <ingested-item-id>",
		Short: "Tag an ingested feed item as a source for a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.Issues.AttachIngestedItem(cmd.Context(), c.actor(), args[0], args[1], section)
			if err != nil {
				return err
			}
			return c.print(d.Provenance, "")
		},
	}
	cmd.Flags().StringVar(&section, "section", string(domain.SectionFromField), "section to tag")
	return cmd
}

func newIssueResearchCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research <issue-id> [url[|title]...]",
		Short: "Replace the research sources of an issue",
		Long:  "Replace the issue's research sources. Each argument is a URL, optionally followed by |title. No URLs clears the list.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := make([]domain.ResearchSource, 0, len(args)-1)
			for _, a := range args[1:] {
				u, title, _ := strings.Cut(a, "|")
				sources = append(sources, domain.ResearchSource{URL: strings.TrimSpace(u), Title: strings.TrimSpace(title)})
			}
			d, err := c.app.Issues.SetResearchSources(cmd.Context(), c.actor(), args[0], sources)
			if err != nil {
				return err
			}
			return c.print(d.Provenance, "")
		},
	}
	return cmd
}
