package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/brief/internal/domain"
)

const runColumns = `id, issue_id, scheduled_for, sent_at, attempted_count, sent_count,
       bounced_count, created_at, updated_at`

func scanRun(s scanner) (*domain.SendRun, error) {
	run := &domain.SendRun{}
	err := s.Scan(
		&run.ID, &run.IssueID, &run.ScheduledFor, &run.SentAt, &run.AttemptedCount,
		&run.SentCount, &run.BouncedCount, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RunRepo implements schedule.Repository and dispatch.Repository.
type RunRepo struct{ db *sql.DB }

// NewRunRepo creates a Postgres-backed send-run repository.
func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{db: db} }

func (r *RunRepo) GetIssue(ctx context.Context, issueID string) (*domain.Issue, error) {
	return getIssue(ctx, r.db, issueID, false)
}

// SchedulePending relies on ux_newsletter_send_runs_issue_pending: the issue
// row lock serializes callers, the partial index backs it up.
func (r *RunRepo) SchedulePending(ctx context.Context, issueID string, at time.Time, check func(*domain.Issue) error, now time.Time) (*domain.SendRun, bool, error) {
	var (
		run     *domain.SendRun
		created bool
	)
	at = at.UTC()
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		is, err := getIssue(ctx, tx, issueID, true)
		if err != nil {
			return err
		}
		if err := check(is); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE newsletter_issues SET scheduled_for = $2, updated_at = $3 WHERE id = $1`,
			issueID, at, now,
		); err != nil {
			return fmt.Errorf("mirror scheduled_for: %w", err)
		}

		run, err = scanRun(tx.QueryRowContext(ctx, `
			SELECT `+runColumns+`
			FROM newsletter_send_runs
			WHERE issue_id = $1 AND sent_at IS NULL
			FOR UPDATE
		`, issueID))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			run = &domain.SendRun{
				ID:           uuid.NewString(),
				IssueID:      issueID,
				ScheduledFor: at,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			created = true
			_, err = tx.ExecContext(ctx, `
				INSERT INTO newsletter_send_runs
					(id, issue_id, scheduled_for, sent_at, attempted_count, sent_count,
					 bounced_count, created_at, updated_at)
				VALUES ($1, $2, $3, NULL, 0, 0, 0, $4, $4)
			`, run.ID, issueID, at, now)
			if err != nil {
				return fmt.Errorf("insert send run: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("get pending run: %w", err)
		}

		run.ScheduledFor = at
		run.UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`UPDATE newsletter_send_runs SET scheduled_for = $2, updated_at = $3 WHERE id = $1`,
			run.ID, at, now,
		); err != nil {
			return fmt.Errorf("reschedule run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return run, created, nil
}

func (r *RunRepo) ListRuns(ctx context.Context, issueID string) ([]domain.SendRun, error) {
	if _, err := getIssue(ctx, r.db, issueID, false); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM newsletter_send_runs
		WHERE issue_id = $1
		ORDER BY created_at DESC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return collectRuns(rows)
}

func (r *RunRepo) DueRuns(ctx context.Context, now time.Time, limit int) ([]domain.SendRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM newsletter_send_runs
		WHERE sent_at IS NULL AND scheduled_for <= $1
		ORDER BY scheduled_for ASC, created_at ASC`
	args := []any{now}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list due runs: %w", err)
	}
	return collectRuns(rows)
}

func collectRuns(rows *sql.Rows) ([]domain.SendRun, error) {
	defer rows.Close()
	out := []domain.SendRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Run returns a run by id.
func (r *RunRepo) Run(ctx context.Context, id string) (*domain.SendRun, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM newsletter_send_runs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (r *RunRepo) CancelRun(ctx context.Context, run *domain.SendRun, now time.Time) (bool, error) {
	return r.CompleteRun(ctx, run, nil, domain.RunTally{}, now)
}

func (r *RunRepo) CompleteRun(ctx context.Context, run *domain.SendRun, events []domain.DeliveryEvent, tally domain.RunTally, now time.Time) (bool, error) {
	closed := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE newsletter_send_runs
			SET sent_at = $2, attempted_count = $3, sent_count = $4, bounced_count = $5, updated_at = $2
			WHERE id = $1 AND sent_at IS NULL
		`, run.ID, now, tally.Attempted, tally.Sent, tally.Bounced)
		if err != nil {
			return fmt.Errorf("close run: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("close run: %w", err)
		}
		if n == 0 {
			return nil
		}
		closed = true

		if len(events) > 0 {
			if err := insertEvents(ctx, tx, run.ID, events); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE newsletter_issues SET scheduled_for = NULL, updated_at = $2 WHERE id = $1`,
			run.IssueID, now,
		); err != nil {
			return fmt.Errorf("clear scheduled_for: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return closed, nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, runID string, events []domain.DeliveryEvent) error {
	ids := make([]string, len(events))
	emails := make([]string, len(events))
	types := make([]string, len(events))
	messages := make([]string, len(events))
	times := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
		emails[i] = ev.Email
		types[i] = string(ev.EventType)
		messages[i] = ev.ErrorMessage
		times[i] = ev.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO newsletter_delivery_events (id, run_id, email, event_type, error_message, created_at)
		SELECT e.id, $2, e.email, e.event_type, NULLIF(e.error_message, ''), e.created_at::timestamptz
		FROM UNNEST($1::text[], $3::text[], $4::text[], $5::text[], $6::text[])
			AS e(id, email, event_type, error_message, created_at)
	`, pq.Array(ids), runID, pq.Array(emails), pq.Array(types), pq.Array(messages), pq.Array(times))
	if err != nil {
		return fmt.Errorf("insert delivery events: %w", err)
	}
	return nil
}
