// Package audit records significant actions to an append-only sink.
//
// Services build an Entry through Emit, which stamps the request id carried
// on the context and never fails the calling operation: the state change has
// already been committed by the time the audit record is written.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/logger"
)

// Sink is the append-only audit destination.
type Sink interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx for audit attribution.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id on ctx, or a fresh one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Event is the caller-supplied part of an audit entry.
type Event struct {
	Actor      domain.Actor
	Action     string
	TargetType string
	Metadata   map[string]any
}

// Emit records ev on sink. Sink failures are logged, not returned.
func Emit(ctx context.Context, sink Sink, ev Event) {
	if sink == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:         uuid.NewString(),
		ActorType:  ev.Actor.Type,
		ActorID:    ev.Actor.ID,
		Action:     ev.Action,
		TargetType: ev.TargetType,
		RequestID:  RequestID(ctx),
		Metadata:   ev.Metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := sink.Record(ctx, entry); err != nil {
		logger.Error("audit record failed", "action", ev.Action, "error", err)
	}
}

// LogSink writes audit entries to the structured logger. Used when no
// database sink is configured.
type LogSink struct{}

// Record implements Sink.
func (LogSink) Record(_ context.Context, e domain.AuditEntry) error {
	logger.Info("audit",
		"action", e.Action,
		"actor_type", string(e.ActorType),
		"actor_id", e.ActorID,
		"target_type", e.TargetType,
		"request_id", e.RequestID,
		"metadata", e.Metadata,
	)
	return nil
}

// MemorySink keeps entries in memory. Safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

// Record implements Sink.
func (m *MemorySink) Record(_ context.Context, e domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of the recorded entries.
func (m *MemorySink) Entries() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Actions returns the recorded action names in order.
func (m *MemorySink) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}
