package schedule

import (
	"context"
	"time"

	"github.com/ignite/brief/internal/domain"
)

// Repository defines the data access contract for send runs.
type Repository interface {
	// GetIssue returns the issue a run would belong to, or ErrIssueNotFound.
	GetIssue(ctx context.Context, issueID string) (*domain.Issue, error)

	// SchedulePending runs check against the locked issue, then moves the
	// issue's pending run to at, or creates one with zeroed counters, and
	// mirrors at onto the issue. All of it happens in one atomic unit of
	// work. created reports whether a new run was inserted.
	SchedulePending(ctx context.Context, issueID string, at time.Time, check func(*domain.Issue) error, now time.Time) (run *domain.SendRun, created bool, err error)

	// ListRuns returns the issue's runs, newest first.
	ListRuns(ctx context.Context, issueID string) ([]domain.SendRun, error)
}
