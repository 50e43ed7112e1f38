package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/brief/internal/config"
	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/service/issue"
)

type recorder struct {
	mu  sync.Mutex
	out []*domain.EmailMessage
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Send(_ context.Context, msg *domain.EmailMessage) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, msg)
	return "rec-1", nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Newsletter.BaseURL = "https://brief.test"
	return cfg
}

func TestNewRequiresDatabaseWithoutMemoryStore(t *testing.T) {
	_, err := New(context.Background(), testConfig(t))
	assert.ErrorContains(t, err, "database_url is required")
}

func TestEndToEndOnMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Archive.Dir = t.TempDir()
	rec := &recorder{}

	a, err := New(ctx, cfg, WithMemoryStore(), WithProvider(rec))
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Ping(ctx))
	assert.Equal(t, "recorder", a.Provider.Name())

	editor := domain.UserActor("editor-1")
	is, err := a.Issues.Create(ctx, editor, issue.CreateInput{Title: "Weekly", IssueDate: "2026-01-07"})
	require.NoError(t, err)
	_, err = a.Issues.UpdateContent(ctx, editor, is.ID, map[domain.Section]string{domain.SectionModels: "New pricing."})
	require.NoError(t, err)
	_, err = a.Issues.MarkReviewed(ctx, editor, is.ID)
	require.NoError(t, err)
	_, err = a.Issues.Publish(ctx, editor, is.ID)
	require.NoError(t, err)

	_, err = a.Subscribers.Subscribe(ctx, " Reader@Example.com ")
	require.NoError(t, err)

	run, err := a.Schedule.Schedule(ctx, editor, is.ID, "2020-01-01T00:00:00Z")
	require.NoError(t, err)

	res, err := a.Dispatch.DispatchDue(ctx, run.ScheduledFor, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dispatched)

	require.Len(t, rec.out, 1)
	assert.Equal(t, "reader@example.com", rec.out[0].To)
	assert.Contains(t, rec.out[0].TextBody, "New pricing.")
	assert.Contains(t, rec.out[0].TextBody, "https://brief.test/newsletter/unsubscribe?token=")

	archived, err := os.ReadFile(filepath.Join(cfg.Archive.Dir, is.ID, run.ID+".md"))
	require.NoError(t, err)
	assert.Contains(t, string(archived), "# Weekly")

	runs, err := a.Schedule.ListRuns(ctx, is.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].SentCount)
	assert.NotNil(t, runs[0].SentAt)
}

func TestMissingLayoutFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Newsletter.LayoutPath = filepath.Join(t.TempDir(), "missing.liquid")

	_, err := New(context.Background(), cfg, WithMemoryStore(), WithProvider(&recorder{}))
	assert.ErrorContains(t, err, "read email layout")
}
