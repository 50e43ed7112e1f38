package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/repository/memory"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Field Notes</title>
  <link>https://notes.example.com</link>
  <item>
    <title>Model pricing drops</title>
    <link>https://notes.example.com/pricing</link>
    <guid>pricing-1</guid>
    <description>&lt;p&gt;Prices  fell &lt;b&gt;again&lt;/b&gt;.&lt;/p&gt;</description>
    <pubDate>Mon, 05 Jan 2026 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Hiring update</title>
    <link>https://notes.example.com/hiring</link>
  </item>
  <item>
    <title>No identity</title>
  </item>
</channel>
</rss>`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeed))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPollFeedUpsertsItems(t *testing.T) {
	store := memory.New()
	svc := NewService(store.Ingest())
	srv := feedServer(t)
	ctx := context.Background()

	n, err := svc.PollFeed(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "item without guid or link is skipped")

	items, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byGUID := map[string]string{}
	for _, it := range items {
		byGUID[it.GUID] = it.Summary
	}
	assert.Equal(t, "Prices fell again.", byGUID["pricing-1"])
	_, ok := byGUID["https://notes.example.com/hiring"]
	assert.True(t, ok, "link is the fallback key")
}

func TestPollFeedIsIdempotent(t *testing.T) {
	store := memory.New()
	svc := NewService(store.Ingest())
	srv := feedServer(t)
	ctx := context.Background()

	_, err := svc.PollFeed(ctx, srv.URL)
	require.NoError(t, err)
	first, err := svc.List(ctx, 0)
	require.NoError(t, err)

	n, err := svc.PollFeed(ctx, srv.URL)
	require.NoError(t, err)
	assert.Zero(t, n)

	again, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(first), ids(again), "existing items keep their id")
}

func TestPollFeedBadFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a feed"))
	}))
	defer srv.Close()

	_, err := NewService(memory.New().Ingest()).PollFeed(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "hé", truncate("héllo", 2))
}

func ids(items []domain.IngestedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
