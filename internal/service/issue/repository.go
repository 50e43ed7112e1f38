package issue

import (
	"context"
	"time"

	"github.com/ignite/brief/internal/domain"
)

// Repository defines the data access contract for issues, blocks and
// provenance links. Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts an issue together with its blocks in one unit of work.
	Create(ctx context.Context, is *domain.Issue, blocks []domain.Block) error

	// Get returns a single issue. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Issue, error)

	// List returns all issues ordered by issue_date DESC, created_at DESC.
	List(ctx context.Context) ([]domain.Issue, error)

	// Blocks returns the blocks of an issue ordered by sort_order.
	Blocks(ctx context.Context, issueID string) ([]domain.Block, error)

	// Provenance returns every link stored for the issue.
	Provenance(ctx context.Context, issueID string) (*domain.ProvenanceLinks, error)

	// Update loads the issue, hands a copy to fn and persists it when fn
	// reports a change, all within one atomic unit of work. An error from fn
	// aborts the update and is returned unchanged.
	Update(ctx context.Context, id string, fn func(*domain.Issue) (bool, error)) (*domain.Issue, error)

	// Edit is Update plus block edits: fn's changes and the content of the
	// named sections are written in the same unit of work, or not at all.
	Edit(ctx context.Context, id string, fn func(*domain.Issue) (bool, error), edits map[domain.Section]string, at time.Time) (*domain.Issue, error)

	// AttachFieldReport links a field report to a section. Returns
	// ErrSourceNotFound for unknown reports; attaching twice is a no-op.
	AttachFieldReport(ctx context.Context, issueID, fieldReportID string, section domain.Section, at time.Time) error

	// AttachIngestedItem links an ingested item to a section. Returns
	// ErrSourceNotFound for unknown items; attaching twice is a no-op.
	AttachIngestedItem(ctx context.Context, issueID, itemID string, section domain.Section, at time.Time) error

	// ReplaceResearchSources swaps the issue's research URLs for sources.
	ReplaceResearchSources(ctx context.Context, issueID string, sources []domain.ResearchSource, at time.Time) error
}
