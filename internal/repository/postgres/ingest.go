package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/brief/internal/domain"
)

// IngestRepo implements ingest.Repository against PostgreSQL.
type IngestRepo struct{ db *sql.DB }

// NewIngestRepo creates a Postgres-backed ingested-item repository.
func NewIngestRepo(db *sql.DB) *IngestRepo { return &IngestRepo{db: db} }

// UpsertItem inserts item or refreshes the row with the same (feed_url,
// guid). xmax is zero only for freshly inserted rows.
func (r *IngestRepo) UpsertItem(ctx context.Context, item *domain.IngestedItem) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ingested_items
			(id, feed_url, guid, title, url, summary, author, published_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (feed_url, guid) DO UPDATE
		SET title = EXCLUDED.title, url = EXCLUDED.url, summary = EXCLUDED.summary,
		    author = EXCLUDED.author, published_at = EXCLUDED.published_at
		RETURNING id, created_at, (xmax = 0)
	`, item.ID, item.FeedURL, item.GUID, item.Title, item.URL, item.Summary, item.Author,
		item.PublishedAt, item.CreatedAt,
	).Scan(&item.ID, &item.CreatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert ingested item: %w", err)
	}
	return inserted, nil
}

func (r *IngestRepo) ListItems(ctx context.Context, limit int) ([]domain.IngestedItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, feed_url, guid, title, url, summary, author, published_at, created_at
		FROM ingested_items
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingested items: %w", err)
	}
	defer rows.Close()

	var out []domain.IngestedItem
	for rows.Next() {
		var it domain.IngestedItem
		if err := rows.Scan(&it.ID, &it.FeedURL, &it.GUID, &it.Title, &it.URL, &it.Summary,
			&it.Author, &it.PublishedAt, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ingested item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
