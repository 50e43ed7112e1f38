package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/ignite/brief/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ calls int }

func (f *failingSink) Record(context.Context, domain.AuditEntry) error {
	f.calls++
	return errors.New("db down")
}

func TestEmitStampsRequestID(t *testing.T) {
	sink := &MemorySink{}
	ctx := WithRequestID(context.Background(), "req-42")

	Emit(ctx, sink, Event{
		Actor:      domain.UserActor("u-1"),
		Action:     ActionIssuePublish,
		TargetType: TargetIssue,
		Metadata:   map[string]any{"issueId": "i-1"},
	})

	entries := sink.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, domain.ActorUser, e.ActorType)
	assert.Equal(t, "u-1", e.ActorID)
	assert.Equal(t, ActionIssuePublish, e.Action)
	assert.Equal(t, "i-1", e.Metadata["issueId"])
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	a := RequestID(context.Background())
	b := RequestID(context.Background())
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestEmitSwallowsSinkErrors(t *testing.T) {
	sink := &failingSink{}
	assert.NotPanics(t, func() {
		Emit(context.Background(), sink, Event{Actor: domain.ServiceActor, Action: ActionSendDispatch})
	})
	assert.Equal(t, 1, sink.calls)
}

func TestEmitNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(context.Background(), nil, Event{Action: ActionSendDispatch})
	})
}
