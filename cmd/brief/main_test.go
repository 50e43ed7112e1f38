package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/brief/internal/app"
	"github.com/ignite/brief/internal/config"
	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/provider"
	"github.com/ignite/brief/internal/service/issue"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Newsletter.BaseURL = "https://brief.test"
	a, err := app.New(context.Background(), cfg, app.WithMemoryStore(), app.WithProvider(provider.NewConsole()))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func run(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, a)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	err := cmd.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func TestIssueLifecycleThroughCLI(t *testing.T) {
	a := newTestApp(t)

	id, err := run(t, a, "--out", "text", "--actor", "editor-1", "issue", "create", "--title", "Weekly", "--date", "2026-01-07")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	status, err := run(t, a, "--out", "text", "issue", "update", id, "--block", "MONEY=Prices fell.")
	require.NoError(t, err)
	assert.Equal(t, string(domain.IssueDraft), status)

	_, err = run(t, a, "issue", "publish", id)
	assert.ErrorIs(t, err, issue.ErrNotReviewed)

	status, err = run(t, a, "--out", "text", "issue", "review", id)
	require.NoError(t, err)
	assert.Equal(t, string(domain.IssueReviewed), status)

	status, err = run(t, a, "--out", "text", "issue", "publish", id)
	require.NoError(t, err)
	assert.Equal(t, string(domain.IssuePublished), status)

	md, err := run(t, a, "issue", "export", id)
	require.NoError(t, err)
	assert.Contains(t, md, "Prices fell.")

	out, err := run(t, a, "issue", "show", id)
	require.NoError(t, err)
	var d domain.IssueDetail
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "editor-1", *d.CreatedBy)
}

func TestUpdateRejectsMalformedBlock(t *testing.T) {
	a := newTestApp(t)
	id, err := run(t, a, "--out", "text", "issue", "create", "--title", "Weekly", "--date", "2026-01-07")
	require.NoError(t, err)

	_, err = run(t, a, "issue", "update", id, "--block", "MONEY")
	assert.ErrorContains(t, err, "want SECTION=markdown")
}

func TestSubscribeTokenUnsubscribe(t *testing.T) {
	a := newTestApp(t)

	out, err := run(t, a, "--out", "text", "subscribe", "Reader@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "created", out)

	tok, err := run(t, a, "--out", "text", "token", "reader@example.com")
	require.NoError(t, err)

	_, err = run(t, a, "unsubscribe", tok)
	require.NoError(t, err)

	out, err = run(t, a, "subscribers")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestScheduleAndDispatch(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	editor := domain.UserActor("editor-1")

	is, err := a.Issues.Create(ctx, editor, issue.CreateInput{Title: "Weekly", IssueDate: "2026-01-07"})
	require.NoError(t, err)
	_, err = a.Issues.MarkReviewed(ctx, editor, is.ID)
	require.NoError(t, err)
	_, err = a.Issues.Publish(ctx, editor, is.ID)
	require.NoError(t, err)
	_, err = a.Subscribers.Subscribe(ctx, "reader@example.com")
	require.NoError(t, err)

	_, err = run(t, a, "schedule", is.ID, "next tuesday")
	assert.Error(t, err)

	_, err = run(t, a, "schedule", is.ID, "2020-01-01T00:00:00Z")
	require.NoError(t, err)

	out, err := run(t, a, "--out", "text", "dispatch")
	require.NoError(t, err)
	assert.Equal(t, "dispatched=1 cancelled=0 skipped=0", out)

	out, err = run(t, a, "runs", is.ID)
	require.NoError(t, err)
	var runs []domain.SendRun
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.NotNil(t, runs[0].SentAt)
	assert.Equal(t, 1, runs[0].SentCount)
}

func TestIngestPollRequiresFeeds(t *testing.T) {
	a := newTestApp(t)
	_, err := run(t, a, "ingest", "poll")
	assert.ErrorContains(t, err, "ingest.feeds is empty")
}
