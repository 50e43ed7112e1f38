package schedule

import (
	"context"
	"strings"
	"time"

	"github.com/ignite/brief/internal/audit"
	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/logger"
)

// layouts accepted for scheduled_for, tried in order. Values without a zone
// are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseScheduledFor parses an ISO-8601 timestamp into UTC.
func ParseScheduledFor(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, &GuardrailError{Reason: ErrInvalidScheduledFor}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &GuardrailError{Reason: ErrInvalidScheduledFor}
}

// Service implements send scheduling.
type Service struct {
	repo  Repository
	audit audit.Sink
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAudit sets the audit sink.
func WithAudit(sink audit.Sink) Option {
	return func(s *Service) { s.audit = sink }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a scheduling service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule books the issue for delivery at scheduledFor. The issue must be
// PUBLISHED; an existing pending run is moved rather than duplicated.
func (s *Service) Schedule(ctx context.Context, actor domain.Actor, issueID, scheduledFor string) (*domain.SendRun, error) {
	if _, err := s.repo.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}
	at, err := ParseScheduledFor(scheduledFor)
	if err != nil {
		return nil, err
	}

	run, created, err := s.repo.SchedulePending(ctx, issueID, at, func(is *domain.Issue) error {
		if !is.IsPublished() {
			return &GuardrailError{Reason: ErrNotPublished}
		}
		return nil
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.Event{
		Actor:      actor,
		Action:     audit.ActionSendSchedule,
		TargetType: audit.TargetSendRun,
		Metadata: map[string]any{
			"issueId":      issueID,
			"runId":        run.ID,
			"scheduledFor": at.Format(time.RFC3339Nano),
		},
	})
	logger.Info("newsletter send scheduled",
		"issue_id", issueID,
		"run_id", run.ID,
		"scheduled_for", at.Format(time.RFC3339),
		"created", created,
	)
	return run, nil
}

// ListRuns returns the issue's send runs, newest first.
func (s *Service) ListRuns(ctx context.Context, issueID string) ([]domain.SendRun, error) {
	return s.repo.ListRuns(ctx, issueID)
}
