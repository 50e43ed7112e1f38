package subscriber

import (
	"context"
	"testing"
	"time"

	"github.com/ignite/brief/internal/audit"
	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/unsubtoken"
	"github.com/ignite/brief/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *memory.Store, *audit.MemorySink) {
	t.Helper()
	store := memory.New()
	sink := &audit.MemorySink{}
	svc := NewService(store.Subscribers(), unsubtoken.New("test-secret"),
		WithAudit(sink),
		WithClock(func() time.Time { return time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC) }),
	)
	return svc, store, sink
}

func TestSubscribeNormalizesAndValidates(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	out, err := svc.Subscribe(ctx, "  Reader@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, Created, out)

	sub, err := store.Subscribers().GetByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriberActive, sub.Status)
	assert.NotEmpty(t, sub.UnsubscribeSeed)

	for _, bad := range []string{"", "nobody", "a@b", "a b@example.com", "@example.com"} {
		_, err := svc.Subscribe(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, "email %q", bad)
	}
}

func TestSubscribeActiveIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, store, sink := newTestService(t)

	_, err := svc.Subscribe(ctx, "a@example.com")
	require.NoError(t, err)
	before, _ := store.Subscribers().GetByEmail(ctx, "a@example.com")

	out, err := svc.Subscribe(ctx, "A@example.com")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)

	after, _ := store.Subscribers().GetByEmail(ctx, "a@example.com")
	assert.Equal(t, before.UnsubscribeSeed, after.UnsubscribeSeed)
	assert.Len(t, sink.Entries(), 1)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	_, err := svc.Subscribe(ctx, "a@example.com")
	require.NoError(t, err)
	token, err := svc.Token(ctx, "a@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Unsubscribe(ctx, token))
	sub, _ := store.Subscribers().GetByEmail(ctx, "a@example.com")
	assert.Equal(t, domain.SubscriberUnsubscribed, sub.Status)
	require.NotNil(t, sub.UnsubscribedAt)

	// A second click on the same link still succeeds: the seed did not rotate.
	require.NoError(t, svc.Unsubscribe(ctx, token))

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestResubscribeRotatesSeed(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	_, err := svc.Subscribe(ctx, "a@example.com")
	require.NoError(t, err)
	oldToken, err := svc.Token(ctx, "a@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.Unsubscribe(ctx, oldToken))

	out, err := svc.Subscribe(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, Reactivated, out)

	sub, _ := store.Subscribers().GetByEmail(ctx, "a@example.com")
	assert.True(t, sub.IsActive())
	assert.Nil(t, sub.UnsubscribedAt)

	assert.ErrorIs(t, svc.Unsubscribe(ctx, oldToken), ErrInvalidToken)

	newToken, err := svc.Token(ctx, "a@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, newToken)
	assert.NoError(t, svc.Unsubscribe(ctx, newToken))
}

func TestUnsubscribeRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.Subscribe(ctx, "a@example.com")
	require.NoError(t, err)
	token, err := svc.Token(ctx, "a@example.com")
	require.NoError(t, err)

	forged := unsubtoken.New("other-secret")
	parsed, err := unsubtoken.Parse(token)
	require.NoError(t, err)

	for _, tok := range []string{
		"",
		"no-delimiter",
		"a.b.c",
		"unknown-id.deadbeef",
		parsed.SubscriberID + ".deadbeef",
		forged.Issue(parsed.SubscriberID, "guess"),
	} {
		assert.ErrorIs(t, svc.Unsubscribe(ctx, tok), ErrInvalidToken, "token %q", tok)
	}
}

func TestListActiveIssuesTokens(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	for _, e := range []string{"first@example.com", "second@example.com"} {
		_, err := svc.Subscribe(ctx, e)
		require.NoError(t, err)
	}

	rs, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "first@example.com", rs[0].Email)
	assert.Equal(t, "second@example.com", rs[1].Email)

	require.NoError(t, svc.Unsubscribe(ctx, rs[0].UnsubscribeToken))
	rs, err = svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "second@example.com", rs[0].Email)
}
