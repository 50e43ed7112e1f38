package schedule

import (
	"errors"

	"github.com/ignite/brief/internal/domain"
)

// Sentinel errors for the scheduling layer.
var (
	ErrIssueNotFound       = domain.ErrIssueNotFound
	ErrInvalidScheduledFor = errors.New("invalid_scheduled_for")
	ErrNotPublished        = errors.New("not_published")
)

// GuardrailError is returned when a schedule request violates a
// precondition. errors.Is matches it against ErrInvalidScheduledFor or
// ErrNotPublished.
type GuardrailError struct {
	Reason error
}

func (e *GuardrailError) Error() string { return "schedule guardrail: " + e.Reason.Error() }

func (e *GuardrailError) Unwrap() error { return e.Reason }
