package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ignite/brief/internal/domain"
)

// IssueRepo implements issue.Repository.
type IssueRepo struct{ s *Store }

func (r *IssueRepo) Create(_ context.Context, is *domain.Issue, blocks []domain.Block) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.issues[is.ID] = cloneIssue(is)
	r.s.stamp(is.ID)
	bs := make(map[domain.Section]*domain.Block, len(blocks))
	for i := range blocks {
		b := blocks[i]
		bs[b.Section] = &b
	}
	r.s.blocks[is.ID] = bs
	r.s.links[is.ID] = &issueLinks{}
	return nil
}

func (r *IssueRepo) Get(_ context.Context, id string) (*domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	is, ok := r.s.issues[id]
	if !ok {
		return nil, domain.ErrIssueNotFound
	}
	return cloneIssue(is), nil
}

func (r *IssueRepo) List(_ context.Context) ([]domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Issue, 0, len(r.s.issues))
	for _, is := range r.s.issues {
		out = append(out, *cloneIssue(is))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IssueDate != out[j].IssueDate {
			return out[i].IssueDate > out[j].IssueDate
		}
		return r.s.created[out[i].ID] > r.s.created[out[j].ID]
	})
	return out, nil
}

func (r *IssueRepo) Blocks(_ context.Context, issueID string) ([]domain.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Block, 0, len(r.s.blocks[issueID]))
	for _, b := range r.s.blocks[issueID] {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// Provenance returns links newest first, matching the SQL ordering.
func (r *IssueRepo) Provenance(_ context.Context, issueID string) (*domain.ProvenanceLinks, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[issueID]
	if !ok {
		return &domain.ProvenanceLinks{}, nil
	}
	out := &domain.ProvenanceLinks{
		FieldReports:  make([]domain.TaggedFieldReport, 0, len(l.fieldReports)),
		IngestedItems: make([]domain.TaggedIngestedItem, 0, len(l.ingestedItems)),
		Research:      make([]domain.ResearchSource, 0, len(l.research)),
	}
	for i := len(l.fieldReports) - 1; i >= 0; i-- {
		out.FieldReports = append(out.FieldReports, l.fieldReports[i])
	}
	for i := len(l.ingestedItems) - 1; i >= 0; i-- {
		out.IngestedItems = append(out.IngestedItems, l.ingestedItems[i])
	}
	out.Research = append(out.Research, l.research...)
	return out, nil
}

func (r *IssueRepo) Update(ctx context.Context, id string, fn func(*domain.Issue) (bool, error)) (*domain.Issue, error) {
	return r.Edit(ctx, id, fn, nil, time.Time{})
}

func (r *IssueRepo) Edit(_ context.Context, id string, fn func(*domain.Issue) (bool, error), edits map[domain.Section]string, at time.Time) (*domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.issues[id]
	if !ok {
		return nil, domain.ErrIssueNotFound
	}
	next := cloneIssue(cur)
	changed, err := fn(next)
	if err != nil {
		return nil, err
	}
	if changed {
		r.s.issues[id] = next
	}
	for sec, content := range edits {
		if b, ok := r.s.blocks[id][sec]; ok {
			b.ContentMD = content
			b.UpdatedAt = at
		}
	}
	return cloneIssue(r.s.issues[id]), nil
}

func (r *IssueRepo) AttachFieldReport(_ context.Context, issueID, fieldReportID string, section domain.Section, _ time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[issueID]
	if !ok {
		return domain.ErrIssueNotFound
	}
	ref, ok := r.s.reports[fieldReportID]
	if !ok {
		return domain.ErrSourceNotFound
	}
	for _, fr := range l.fieldReports {
		if fr.ID == fieldReportID && fr.Section == section {
			return nil
		}
	}
	l.fieldReports = append(l.fieldReports, domain.TaggedFieldReport{Section: section, FieldReportRef: ref})
	return nil
}

func (r *IssueRepo) AttachIngestedItem(_ context.Context, issueID, itemID string, section domain.Section, _ time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[issueID]
	if !ok {
		return domain.ErrIssueNotFound
	}
	item, ok := r.s.items[itemID]
	if !ok {
		return domain.ErrSourceNotFound
	}
	for _, it := range l.ingestedItems {
		if it.ID == itemID && it.Section == section {
			return nil
		}
	}
	l.ingestedItems = append(l.ingestedItems, domain.TaggedIngestedItem{
		Section:         section,
		IngestedItemRef: domain.IngestedItemRef{ID: item.ID, Title: item.Title, URL: item.URL},
	})
	return nil
}

func (r *IssueRepo) ReplaceResearchSources(_ context.Context, issueID string, sources []domain.ResearchSource, _ time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[issueID]
	if !ok {
		return domain.ErrIssueNotFound
	}
	l.research = append([]domain.ResearchSource(nil), sources...)
	return nil
}
