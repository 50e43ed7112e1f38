package issue

import (
	"errors"

	"github.com/ignite/brief/internal/domain"
)

// Sentinel errors for the issue service layer.
var (
	ErrNotFound           = domain.ErrIssueNotFound
	ErrSourceNotFound     = domain.ErrSourceNotFound
	ErrTitleRequired      = errors.New("title is required")
	ErrIssueDateRequired  = errors.New("issue date is required")
	ErrUnknownSection     = errors.New("unknown newsletter section")
	ErrSectionNotTaggable = errors.New("section cannot carry provenance")
	ErrNotReviewed        = errors.New("not_reviewed")
	ErrAlreadyPublished   = errors.New("already_published")
)

// PublishGuardrailError is returned when publish is attempted from a status
// other than REVIEWED. errors.Is matches it against ErrNotReviewed or
// ErrAlreadyPublished.
type PublishGuardrailError struct {
	Reason error
}

func (e *PublishGuardrailError) Error() string { return "publish guardrail: " + e.Reason.Error() }

func (e *PublishGuardrailError) Unwrap() error { return e.Reason }
