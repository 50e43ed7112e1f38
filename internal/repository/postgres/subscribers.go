package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/brief/internal/domain"
)

const subscriberColumns = `id, email, status, unsubscribe_seed, unsubscribed_at, created_at, updated_at`

func scanSubscriber(s scanner) (*domain.Subscriber, error) {
	sub := &domain.Subscriber{}
	err := s.Scan(&sub.ID, &sub.Email, &sub.Status, &sub.UnsubscribeSeed, &sub.UnsubscribedAt, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscriber: %w", err)
	}
	return sub, nil
}

// SubscriberRepo implements subscriber.Repository against PostgreSQL.
type SubscriberRepo struct{ db *sql.DB }

// NewSubscriberRepo creates a Postgres-backed subscriber repository.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

func (r *SubscriberRepo) Get(ctx context.Context, id string) (*domain.Subscriber, error) {
	return scanSubscriber(r.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM newsletter_subscribers WHERE id = $1`, id))
}

func (r *SubscriberRepo) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	return scanSubscriber(r.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM newsletter_subscribers WHERE email = $1`, email))
}

func (r *SubscriberRepo) Create(ctx context.Context, sub *domain.Subscriber) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_subscribers
			(id, email, status, unsubscribe_seed, unsubscribed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sub.ID, sub.Email, sub.Status, sub.UnsubscribeSeed, sub.UnsubscribedAt, sub.CreatedAt, sub.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) Update(ctx context.Context, id string, fn func(*domain.Subscriber) (bool, error)) (*domain.Subscriber, error) {
	var result *domain.Subscriber
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		sub, err := scanSubscriber(tx.QueryRowContext(ctx,
			`SELECT `+subscriberColumns+` FROM newsletter_subscribers WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		changed, err := fn(sub)
		if err != nil {
			return err
		}
		result = sub
		if !changed {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE newsletter_subscribers
			SET status = $2, unsubscribe_seed = $3, unsubscribed_at = $4, updated_at = $5
			WHERE id = $1
		`, sub.ID, sub.Status, sub.UnsubscribeSeed, sub.UnsubscribedAt, sub.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update subscriber: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SubscriberRepo) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+subscriberColumns+`
		FROM newsletter_subscribers
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`, domain.SubscriberActive)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}
