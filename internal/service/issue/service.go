package issue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/brief/internal/audit"
	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/logger"
)

// Service implements issue lifecycle logic. Every transition is explicit and
// operator-triggered; publish always requires a prior review.
// All public methods are safe for concurrent use if the underlying
// repository is concurrency-safe.
type Service struct {
	repo  Repository
	audit audit.Sink
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAudit sets the audit sink. Without one, no audit records are written.
func WithAudit(sink audit.Sink) Option {
	return func(s *Service) { s.audit = sink }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an issue service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateInput holds the fields for creating a new issue.
type CreateInput struct {
	Title     string `json:"title"`
	IssueDate string `json:"issue_date"`
}

// UpdateInput holds optional edits. Nil fields are left unchanged; block keys
// are section names.
type UpdateInput struct {
	Title     *string           `json:"title,omitempty"`
	IssueDate *string           `json:"issue_date,omitempty"`
	Blocks    map[string]string `json:"blocks,omitempty"`
}

// Create persists a new DRAFT issue with one empty block per section.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Issue, error) {
	title := strings.TrimSpace(in.Title)
	date := strings.TrimSpace(in.IssueDate)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if date == "" {
		return nil, ErrIssueDateRequired
	}

	now := s.now().UTC()
	is := &domain.Issue{
		ID:        uuid.NewString(),
		Title:     title,
		IssueDate: date,
		Status:    domain.IssueDraft,
		CreatedBy: actor.UserID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	blocks := make([]domain.Block, 0, len(domain.Sections))
	for _, sec := range domain.Sections {
		blocks = append(blocks, domain.Block{
			ID:        uuid.NewString(),
			IssueID:   is.ID,
			Section:   sec,
			SortOrder: sec.SortOrder(),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.repo.Create(ctx, is, blocks); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	audit.Emit(ctx, s.audit, audit.Event{
		Actor:      actor,
		Action:     audit.ActionIssueCreate,
		TargetType: audit.TargetIssue,
		Metadata:   map[string]any{"issueId": is.ID, "title": title, "issueDate": date},
	})
	logger.Info("newsletter issue created", "issue_id", is.ID, "issue_date", date)
	return is, nil
}

// Get returns an issue with its blocks and per-section provenance.
func (s *Service) Get(ctx context.Context, id string) (*domain.IssueDetail, error) {
	is, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	blocks, err := s.repo.Blocks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	links, err := s.repo.Provenance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load provenance: %w", err)
	}
	return assemble(is, blocks, links), nil
}

// List returns every issue, newest issue date first.
func (s *Service) List(ctx context.Context) ([]domain.Issue, error) {
	return s.repo.List(ctx)
}

// Update applies the given edits. Status is never touched.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id string, in UpdateInput) (*domain.IssueDetail, error) {
	edits := make(map[domain.Section]string, len(in.Blocks))
	for name, content := range in.Blocks {
		sec, ok := domain.ParseSection(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSection, name)
		}
		edits[sec] = content
	}

	var title, date string
	if in.Title != nil {
		if title = strings.TrimSpace(*in.Title); title == "" {
			return nil, ErrTitleRequired
		}
	}
	if in.IssueDate != nil {
		if date = strings.TrimSpace(*in.IssueDate); date == "" {
			return nil, ErrIssueDateRequired
		}
	}

	now := s.now().UTC()
	if _, err := s.repo.Edit(ctx, id, func(is *domain.Issue) (bool, error) {
		if in.Title != nil {
			is.Title = title
		}
		if in.IssueDate != nil {
			is.IssueDate = date
		}
		is.UpdatedAt = now
		return true, nil
	}, edits, now); err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.Event{
		Actor:      actor,
		Action:     audit.ActionIssueUpdate,
		TargetType: audit.TargetIssue,
		Metadata:   map[string]any{"issueId": id},
	})
	return s.Get(ctx, id)
}

// UpdateContent overwrites the content of the named sections only.
func (s *Service) UpdateContent(ctx context.Context, actor domain.Actor, id string, edits map[domain.Section]string) (*domain.IssueDetail, error) {
	blocks := make(map[string]string, len(edits))
	for sec, content := range edits {
		blocks[string(sec)] = content
	}
	return s.Update(ctx, actor, id, UpdateInput{Blocks: blocks})
}

// MarkReviewed moves the issue to REVIEWED. It is a successful no-op for an
// issue that is already PUBLISHED, so the status never regresses.
func (s *Service) MarkReviewed(ctx context.Context, actor domain.Actor, id string) (*domain.IssueDetail, error) {
	changed := false
	if _, err := s.repo.Update(ctx, id, func(is *domain.Issue) (bool, error) {
		if is.Status == domain.IssuePublished {
			return false, nil
		}
		is.Status = domain.IssueReviewed
		is.UpdatedAt = s.now().UTC()
		changed = true
		return true, nil
	}); err != nil {
		return nil, err
	}

	if changed {
		audit.Emit(ctx, s.audit, audit.Event{
			Actor:      actor,
			Action:     audit.ActionIssueReview,
			TargetType: audit.TargetIssue,
			Metadata:   map[string]any{"issueId": id},
		})
	}
	return s.Get(ctx, id)
}

// Publish moves a REVIEWED issue to PUBLISHED and stamps who published it.
func (s *Service) Publish(ctx context.Context, actor domain.Actor, id string) (*domain.IssueDetail, error) {
	if _, err := s.repo.Update(ctx, id, func(is *domain.Issue) (bool, error) {
		if is.Status == domain.IssuePublished {
			return false, &PublishGuardrailError{Reason: ErrAlreadyPublished}
		}
		if is.Status != domain.IssueReviewed {
			return false, &PublishGuardrailError{Reason: ErrNotReviewed}
		}
		now := s.now().UTC()
		is.Status = domain.IssuePublished
		is.PublishedAt = &now
		is.PublishedBy = actor.UserID()
		is.UpdatedAt = now
		return true, nil
	}); err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.Event{
		Actor:      actor,
		Action:     audit.ActionIssuePublish,
		TargetType: audit.TargetIssue,
		Metadata:   map[string]any{"issueId": id},
	})
	logger.Info("newsletter issue published", "issue_id", id)
	return s.Get(ctx, id)
}

// AttachFieldReport links a field report to a section (FROM_FIELD when
// section is empty).
func (s *Service) AttachFieldReport(ctx context.Context, actor domain.Actor, issueID, fieldReportID, section string) (*domain.IssueDetail, error) {
	sec, err := provenanceSection(section)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, issueID); err != nil {
		return nil, err
	}
	if err := s.repo.AttachFieldReport(ctx, issueID, fieldReportID, sec, s.now().UTC()); err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.Event{
		Actor:      actor,
		Action:     audit.ActionIssueAttachReport,
		TargetType: audit.TargetIssue,
		Metadata:   map[string]any{"issueId": issueID, "fieldReportId": fieldReportID, "tag": string(sec)},
	})
	return s.Get(ctx, issueID)
}

// AttachIngestedItem links an ingested feed item to a section (FROM_FIELD
// when section is empty).
func (s *Service) AttachIngestedItem(ctx context.Context, actor domain.Actor, issueID, itemID, section string) (*domain.IssueDetail, error) {
	sec, err := provenanceSection(section)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, issueID); err != nil {
		return nil, err
	}
	if err := s.repo.AttachIngestedItem(ctx, issueID, itemID, sec, s.now().UTC()); err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.Event{
		Actor:      actor,
		Action:     audit.ActionIssueAttachItem,
		TargetType: audit.TargetIssue,
		Metadata:   map[string]any{"issueId": issueID, "ingestedItemId": itemID, "tag": string(sec)},
	})
	return s.Get(ctx, issueID)
}

// SetResearchSources replaces the issue's research URLs. Blank URLs are
// skipped and repeated URLs keep their first title.
func (s *Service) SetResearchSources(ctx context.Context, actor domain.Actor, issueID string, sources []domain.ResearchSource) (*domain.IssueDetail, error) {
	if _, err := s.repo.Get(ctx, issueID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(sources))
	clean := make([]domain.ResearchSource, 0, len(sources))
	for _, src := range sources {
		u := strings.TrimSpace(src.URL)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		clean = append(clean, domain.ResearchSource{URL: u, Title: strings.TrimSpace(src.Title)})
	}

	if err := s.repo.ReplaceResearchSources(ctx, issueID, clean, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("replace research sources: %w", err)
	}

	audit.Emit(ctx, s.audit, audit.Event{
		Actor:      actor,
		Action:     audit.ActionIssueResearch,
		TargetType: audit.TargetIssue,
		Metadata:   map[string]any{"issueId": issueID, "researchCount": len(clean)},
	})
	return s.Get(ctx, issueID)
}

// Export loads the issue and renders it as markdown.
func (s *Service) Export(ctx context.Context, id, baseURL string) (string, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return Export(d, baseURL), nil
}

func provenanceSection(name string) (domain.Section, error) {
	if strings.TrimSpace(name) == "" {
		return domain.SectionFromField, nil
	}
	sec, ok := domain.ParseSection(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, name)
	}
	if !sec.Taggable() {
		return "", ErrSectionNotTaggable
	}
	return sec, nil
}
