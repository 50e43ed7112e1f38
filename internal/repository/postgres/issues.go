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

const issueColumns = `id, title, issue_date, status, scheduled_for, published_at,
       published_by, created_by, created_at, updated_at`

func scanIssue(s scanner) (*domain.Issue, error) {
	is := &domain.Issue{}
	err := s.Scan(
		&is.ID, &is.Title, &is.IssueDate, &is.Status, &is.ScheduledFor, &is.PublishedAt,
		&is.PublishedBy, &is.CreatedBy, &is.CreatedAt, &is.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return is, nil
}

// getIssue loads an issue, locking it when forUpdate is set.
func getIssue(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id string, forUpdate bool) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM newsletter_issues WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	is, err := scanIssue(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIssueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return is, nil
}

// IssueRepo implements issue.Repository against PostgreSQL.
type IssueRepo struct{ db *sql.DB }

// NewIssueRepo creates a Postgres-backed issue repository.
func NewIssueRepo(db *sql.DB) *IssueRepo { return &IssueRepo{db: db} }

func (r *IssueRepo) Create(ctx context.Context, is *domain.Issue, blocks []domain.Block) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO newsletter_issues
				(id, title, issue_date, status, scheduled_for, published_at,
				 published_by, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, is.ID, is.Title, is.IssueDate, is.Status, is.ScheduledFor, is.PublishedAt,
			is.PublishedBy, is.CreatedBy, is.CreatedAt, is.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert issue: %w", err)
		}
		if len(blocks) == 0 {
			return nil
		}

		ids := make([]string, len(blocks))
		sections := make([]string, len(blocks))
		contents := make([]string, len(blocks))
		orders := make([]int64, len(blocks))
		for i, b := range blocks {
			ids[i] = b.ID
			sections[i] = string(b.Section)
			contents[i] = b.ContentMD
			orders[i] = int64(b.SortOrder)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO newsletter_blocks
				(id, issue_id, section, content_md, sort_order, created_at, updated_at)
			SELECT b.id, $2, b.section, b.content_md, b.sort_order, $6, $6
			FROM UNNEST($1::text[], $3::text[], $4::text[], $5::int[])
				AS b(id, section, content_md, sort_order)
		`, pq.Array(ids), is.ID, pq.Array(sections), pq.Array(contents), pq.Array(orders), is.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert blocks: %w", err)
		}
		return nil
	})
}

func (r *IssueRepo) Get(ctx context.Context, id string) (*domain.Issue, error) {
	return getIssue(ctx, r.db, id, false)
}

func (r *IssueRepo) List(ctx context.Context) ([]domain.Issue, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+issueColumns+`
		FROM newsletter_issues
		ORDER BY issue_date DESC, created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	out := []domain.Issue{}
	for rows.Next() {
		is, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		out = append(out, *is)
	}
	return out, rows.Err()
}

func (r *IssueRepo) Blocks(ctx context.Context, issueID string) ([]domain.Block, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, issue_id, section, content_md, sort_order, created_at, updated_at
		FROM newsletter_blocks
		WHERE issue_id = $1
		ORDER BY sort_order ASC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var out []domain.Block
	for rows.Next() {
		var b domain.Block
		if err := rows.Scan(&b.ID, &b.IssueID, &b.Section, &b.ContentMD, &b.SortOrder, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *IssueRepo) Provenance(ctx context.Context, issueID string) (*domain.ProvenanceLinks, error) {
	out := &domain.ProvenanceLinks{
		FieldReports:  []domain.TaggedFieldReport{},
		IngestedItems: []domain.TaggedIngestedItem{},
		Research:      []domain.ResearchSource{},
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT nfr.tag, fr.id, fr.event_title, fr.user_email
		FROM newsletter_issue_field_reports nfr
		JOIN field_reports fr ON fr.id = nfr.field_report_id
		WHERE nfr.issue_id = $1
		ORDER BY nfr.created_at DESC, fr.created_at DESC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list field report links: %w", err)
	}
	for rows.Next() {
		var fr domain.TaggedFieldReport
		if err := rows.Scan(&fr.Section, &fr.ID, &fr.EventTitle, &fr.ReporterEmail); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan field report link: %w", err)
		}
		out.FieldReports = append(out.FieldReports, fr)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx, `
		SELECT nii.tag, ii.id, ii.title, ii.url
		FROM newsletter_issue_ingested_items nii
		JOIN ingested_items ii ON ii.id = nii.ingested_item_id
		WHERE nii.issue_id = $1
		ORDER BY nii.created_at DESC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list ingested item links: %w", err)
	}
	for rows.Next() {
		var it domain.TaggedIngestedItem
		if err := rows.Scan(&it.Section, &it.ID, &it.Title, &it.URL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan ingested item link: %w", err)
		}
		out.IngestedItems = append(out.IngestedItems, it)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx, `
		SELECT url, COALESCE(title, '')
		FROM newsletter_issue_research_sources
		WHERE issue_id = $1
		ORDER BY position ASC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list research sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rs domain.ResearchSource
		if err := rows.Scan(&rs.URL, &rs.Title); err != nil {
			return nil, fmt.Errorf("scan research source: %w", err)
		}
		out.Research = append(out.Research, rs)
	}
	return out, rows.Err()
}

func (r *IssueRepo) Update(ctx context.Context, id string, fn func(*domain.Issue) (bool, error)) (*domain.Issue, error) {
	return r.Edit(ctx, id, fn, nil, time.Time{})
}

func (r *IssueRepo) Edit(ctx context.Context, id string, fn func(*domain.Issue) (bool, error), edits map[domain.Section]string, at time.Time) (*domain.Issue, error) {
	var result *domain.Issue
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		is, err := getIssue(ctx, tx, id, true)
		if err != nil {
			return err
		}
		changed, err := fn(is)
		if err != nil {
			return err
		}
		result = is
		if changed {
			_, err = tx.ExecContext(ctx, `
				UPDATE newsletter_issues
				SET title = $2, issue_date = $3, status = $4, scheduled_for = $5,
				    published_at = $6, published_by = $7, updated_at = $8
				WHERE id = $1
			`, is.ID, is.Title, is.IssueDate, is.Status, is.ScheduledFor,
				is.PublishedAt, is.PublishedBy, is.UpdatedAt)
			if err != nil {
				return fmt.Errorf("update issue: %w", err)
			}
		}
		for _, sec := range domain.Sections {
			content, ok := edits[sec]
			if !ok {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				UPDATE newsletter_blocks SET content_md = $3, updated_at = $4
				WHERE issue_id = $1 AND section = $2
			`, id, sec, content, at)
			if err != nil {
				return fmt.Errorf("update block %s: %w", sec, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *IssueRepo) AttachFieldReport(ctx context.Context, issueID, fieldReportID string, section domain.Section, at time.Time) error {
	return r.attach(ctx, "field_reports", `
		INSERT INTO newsletter_issue_field_reports (id, issue_id, field_report_id, tag, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (issue_id, field_report_id, tag) DO NOTHING
	`, issueID, fieldReportID, section, at)
}

func (r *IssueRepo) AttachIngestedItem(ctx context.Context, issueID, itemID string, section domain.Section, at time.Time) error {
	return r.attach(ctx, "ingested_items", `
		INSERT INTO newsletter_issue_ingested_items (id, issue_id, ingested_item_id, tag, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (issue_id, ingested_item_id, tag) DO NOTHING
	`, issueID, itemID, section, at)
}

// attach checks the source row in table exists, then runs the idempotent
// link insert.
func (r *IssueRepo) attach(ctx context.Context, table, insert, issueID, sourceID string, section domain.Section, at time.Time) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, sourceID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", table, err)
	}
	if !exists {
		return domain.ErrSourceNotFound
	}

	_, err = r.db.ExecContext(ctx, insert, uuid.NewString(), issueID, sourceID, section, at)
	if isForeignKeyViolation(err) {
		return domain.ErrIssueNotFound
	}
	if err != nil {
		return fmt.Errorf("attach %s: %w", table, err)
	}
	return nil
}

func (r *IssueRepo) ReplaceResearchSources(ctx context.Context, issueID string, sources []domain.ResearchSource, at time.Time) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := getIssue(ctx, tx, issueID, true); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM newsletter_issue_research_sources WHERE issue_id = $1`, issueID,
		); err != nil {
			return fmt.Errorf("clear research sources: %w", err)
		}
		if len(sources) == 0 {
			return nil
		}

		ids := make([]string, len(sources))
		urls := make([]string, len(sources))
		titles := make([]string, len(sources))
		positions := make([]int64, len(sources))
		for i, s := range sources {
			ids[i] = uuid.NewString()
			urls[i] = s.URL
			titles[i] = s.Title
			positions[i] = int64(i)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO newsletter_issue_research_sources (id, issue_id, url, title, position, created_at)
			SELECT s.id, $2, s.url, NULLIF(s.title, ''), s.position, $6
			FROM UNNEST($1::text[], $3::text[], $4::text[], $5::int[]) AS s(id, url, title, position)
		`, pq.Array(ids), issueID, pq.Array(urls), pq.Array(titles), pq.Array(positions), at)
		if err != nil {
			return fmt.Errorf("insert research sources: %w", err)
		}
		return nil
	})
}
