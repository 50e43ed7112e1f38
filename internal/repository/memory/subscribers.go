package memory

import (
	"context"

	"github.com/ignite/brief/internal/domain"
)

// SubscriberRepo implements subscriber.Repository and dispatch.Subscribers.
type SubscriberRepo struct{ s *Store }

func (r *SubscriberRepo) Get(_ context.Context, id string) (*domain.Subscriber, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subscribers[id]
	if !ok {
		return nil, domain.ErrSubscriberNotFound
	}
	return cloneSubscriber(sub), nil
}

func (r *SubscriberRepo) GetByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subscribers {
		if sub.Email == email {
			return cloneSubscriber(sub), nil
		}
	}
	return nil, domain.ErrSubscriberNotFound
}

func (r *SubscriberRepo) Create(_ context.Context, sub *domain.Subscriber) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.subscribers {
		if existing.Email == sub.Email {
			return domain.ErrEmailExists
		}
	}
	r.s.subscribers[sub.ID] = cloneSubscriber(sub)
	r.s.stamp(sub.ID)
	return nil
}

func (r *SubscriberRepo) Update(_ context.Context, id string, fn func(*domain.Subscriber) (bool, error)) (*domain.Subscriber, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.subscribers[id]
	if !ok {
		return nil, domain.ErrSubscriberNotFound
	}
	next := cloneSubscriber(cur)
	changed, err := fn(next)
	if err != nil {
		return nil, err
	}
	if changed {
		r.s.subscribers[id] = next
	}
	return cloneSubscriber(r.s.subscribers[id]), nil
}

func (r *SubscriberRepo) ListActive(_ context.Context) ([]domain.Subscriber, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]string, 0, len(r.s.subscribers))
	for id, sub := range r.s.subscribers {
		if sub.IsActive() {
			ids = append(ids, id)
		}
	}
	r.s.sortByCreated(ids)
	out := make([]domain.Subscriber, 0, len(ids))
	for _, id := range ids {
		out = append(out, *cloneSubscriber(r.s.subscribers[id]))
	}
	return out, nil
}
