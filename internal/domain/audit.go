package domain

import "time"

// ActorType distinguishes human operators from automated callers.
type ActorType string

const (
	ActorUser    ActorType = "USER"
	ActorService ActorType = "SERVICE"
)

// Actor is the caller of a lifecycle or scheduling operation. It is used for
// audit attribution only.
type Actor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id,omitempty"`
}

// ServiceActor is the actor used by automated callers such as the dispatcher.
var ServiceActor = Actor{Type: ActorService}

// UserActor builds an actor for a human operator.
func UserActor(id string) Actor { return Actor{Type: ActorUser, ID: id} }

// UserID returns the actor's id when it refers to a user record, or nil.
func (a Actor) UserID() *string {
	if a.Type != ActorUser || a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}

// AuditEntry is an append-only record of a significant action.
type AuditEntry struct {
	ID         string         `json:"id" db:"id"`
	ActorType  ActorType      `json:"actor_type" db:"actor_type"`
	ActorID    string         `json:"actor_id,omitempty" db:"actor_id"`
	Action     string         `json:"action" db:"action"`
	TargetType string         `json:"target_type" db:"target_type"`
	RequestID  string         `json:"request_id" db:"request_id"`
	Metadata   map[string]any `json:"metadata" db:"metadata"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
