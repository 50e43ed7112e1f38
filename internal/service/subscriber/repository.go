package subscriber

import (
	"context"

	"github.com/ignite/brief/internal/domain"
)

// Repository defines the data access contract for subscribers.
type Repository interface {
	// Get returns a subscriber by id. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Subscriber, error)

	// GetByEmail returns a subscriber by normalized email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error)

	// Create inserts a subscriber. Returns ErrEmailExists when the email is
	// already registered.
	Create(ctx context.Context, sub *domain.Subscriber) error

	// Update loads the subscriber, applies fn and persists the result when fn
	// reports a change, within one atomic unit of work.
	Update(ctx context.Context, id string, fn func(*domain.Subscriber) (bool, error)) (*domain.Subscriber, error)

	// ListActive returns ACTIVE subscribers ordered by created_at ASC.
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
}
