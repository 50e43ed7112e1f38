package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/brief/internal/domain"
)

// AuditRepo implements audit.Sink on the audit_log table.
type AuditRepo struct{ db *sql.DB }

// NewAuditRepo creates a Postgres-backed audit sink.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Record(ctx context.Context, e domain.AuditEntry) error {
	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(e.Metadata); err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_type, actor_id, action, target_type, request_id, metadata, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
	`, e.ID, e.ActorType, e.ActorID, e.Action, e.TargetType, e.RequestID, meta, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
