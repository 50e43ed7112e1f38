package memory

import (
	"context"

	"github.com/ignite/brief/internal/domain"
)

// AuditRepo implements audit.Sink.
type AuditRepo struct{ s *Store }

func (r *AuditRepo) Record(_ context.Context, e domain.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, e)
	return nil
}
