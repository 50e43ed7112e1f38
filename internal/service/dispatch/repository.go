package dispatch

import (
	"context"
	"time"

	"github.com/ignite/brief/internal/domain"
)

// Repository defines the data access contract for dispatch.
type Repository interface {
	// DueRuns returns pending runs with scheduled_for <= now, ordered by
	// scheduled_for ASC, at most limit.
	DueRuns(ctx context.Context, now time.Time, limit int) ([]domain.SendRun, error)

	// GetIssue returns the parent issue of a run.
	GetIssue(ctx context.Context, issueID string) (*domain.Issue, error)

	// CancelRun closes a pending run with zero counters and clears the
	// issue's scheduled_for. It reports false if the run was no longer
	// pending.
	CancelRun(ctx context.Context, run *domain.SendRun, now time.Time) (bool, error)

	// CompleteRun inserts events, writes the tally and sent_at, and clears
	// the issue's scheduled_for in one transaction, guarded by
	// sent_at IS NULL. It reports false, writing nothing, if the run was
	// already closed.
	CompleteRun(ctx context.Context, run *domain.SendRun, events []domain.DeliveryEvent, tally domain.RunTally, now time.Time) (bool, error)
}

// Subscribers supplies the live recipient list.
type Subscribers interface {
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
}

// Exporter renders an issue as markdown.
type Exporter interface {
	Export(ctx context.Context, issueID, baseURL string) (string, error)
}

// Sender delivers one message. Implementations bound their own call time.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *domain.EmailMessage) (messageID string, err error)
}

// TokenIssuer issues unsubscribe tokens for a subscriber's current seed.
type TokenIssuer interface {
	Issue(subscriberID, seed string) string
}

// Archiver keeps a copy of what a run delivered.
type Archiver interface {
	Archive(ctx context.Context, issueID, runID string, body []byte) (string, error)
}
