package domain

import "time"

// SubscriberStatus enumerates the states a subscriber can be in.
type SubscriberStatus string

const (
	SubscriberActive       SubscriberStatus = "ACTIVE"
	SubscriberUnsubscribed SubscriberStatus = "UNSUBSCRIBED"
)

// Subscriber is a newsletter recipient. UnsubscribeSeed rotates on every
// resubscribe, which invalidates every token issued before the rotation.
type Subscriber struct {
	ID              string           `json:"id" db:"id"`
	Email           string           `json:"email" db:"email"`
	Status          SubscriberStatus `json:"status" db:"status"`
	UnsubscribeSeed string           `json:"-" db:"unsubscribe_seed"`
	UnsubscribedAt  *time.Time       `json:"unsubscribed_at" db:"unsubscribed_at"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the subscriber currently receives issues.
func (s *Subscriber) IsActive() bool { return s.Status == SubscriberActive }
