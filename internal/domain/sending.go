package domain

import "time"

// SendRun is one attempt to deliver an issue to every active subscriber.
// A run with a nil SentAt is pending; once SentAt is set the run is terminal.
type SendRun struct {
	ID             string     `json:"id" db:"id"`
	IssueID        string     `json:"issue_id" db:"issue_id"`
	ScheduledFor   time.Time  `json:"scheduled_for" db:"scheduled_for"`
	SentAt         *time.Time `json:"sent_at" db:"sent_at"`
	AttemptedCount int        `json:"attempted_count" db:"attempted_count"`
	SentCount      int        `json:"sent_count" db:"sent_count"`
	BouncedCount   int        `json:"bounced_count" db:"bounced_count"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPending reports whether the run still awaits dispatch.
func (r *SendRun) IsPending() bool { return r.SentAt == nil }

// DeliveryEventType enumerates the recorded outcomes of a single send.
type DeliveryEventType string

const (
	EventDelivered DeliveryEventType = "DELIVERED"
	EventBounced   DeliveryEventType = "BOUNCED"
	EventComplaint DeliveryEventType = "COMPLAINT"
)

// DeliveryEvent is the append-only outcome of sending a run to one recipient.
type DeliveryEvent struct {
	ID           string            `json:"id" db:"id"`
	RunID        string            `json:"run_id" db:"run_id"`
	Email        string            `json:"email" db:"email"`
	EventType    DeliveryEventType `json:"event_type" db:"event_type"`
	ErrorMessage string            `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// RunTally is the per-run outcome count written when a run completes.
type RunTally struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Bounced   int `json:"bounced"`
}

// EmailMessage is the fully-resolved message handed to an email provider.
// By the time a message reaches this struct, rendering and unsubscribe-link
// personalization are complete.
type EmailMessage struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	TextBody string            `json:"text_body"`
	HTMLBody string            `json:"html_body"`
	Headers  map[string]string `json:"headers,omitempty"`
}
