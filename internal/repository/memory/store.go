// Package memory is an in-process store with the same semantics as the
// PostgreSQL repositories. A single mutex plays the role of the database
// transaction, so every read-decide-write runs atomically.
//
// It backs service tests and app.WithMemoryStore.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/ignite/brief/internal/domain"
)

type issueLinks struct {
	fieldReports  []domain.TaggedFieldReport
	ingestedItems []domain.TaggedIngestedItem
	research      []domain.ResearchSource
}

// Store holds every entity behind one lock.
type Store struct {
	mu sync.Mutex

	issues      map[string]*domain.Issue
	blocks      map[string]map[domain.Section]*domain.Block
	links       map[string]*issueLinks
	subscribers map[string]*domain.Subscriber
	runs        map[string]*domain.SendRun
	events      []domain.DeliveryEvent
	reports     map[string]domain.FieldReportRef
	items       map[string]*domain.IngestedItem
	audit       []domain.AuditEntry

	// seq orders rows created within the same clock tick.
	seq     int64
	created map[string]int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		issues:      make(map[string]*domain.Issue),
		blocks:      make(map[string]map[domain.Section]*domain.Block),
		links:       make(map[string]*issueLinks),
		subscribers: make(map[string]*domain.Subscriber),
		runs:        make(map[string]*domain.SendRun),
		reports:     make(map[string]domain.FieldReportRef),
		items:       make(map[string]*domain.IngestedItem),
		created:     make(map[string]int64),
	}
}

// Issues returns the issue repository view.
func (s *Store) Issues() *IssueRepo { return &IssueRepo{s: s} }

// Subscribers returns the subscriber repository view.
func (s *Store) Subscribers() *SubscriberRepo { return &SubscriberRepo{s: s} }

// Runs returns the send-run repository view used by scheduling and dispatch.
func (s *Store) Runs() *RunRepo { return &RunRepo{s: s} }

// Ingest returns the ingested-item repository view.
func (s *Store) Ingest() *IngestRepo { return &IngestRepo{s: s} }

// Audit returns the audit sink view.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

// AddFieldReport registers a field report so it can be attached as
// provenance. Field reports are owned by another system.
func (s *Store) AddFieldReport(ref domain.FieldReportRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[ref.ID] = ref
}

// Events returns the delivery events of a run in insertion order.
func (s *Store) Events(runID string) []domain.DeliveryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DeliveryEvent
	for _, ev := range s.events {
		if ev.RunID == runID {
			out = append(out, ev)
		}
	}
	return out
}

// AuditEntries returns every audit entry in insertion order.
func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.audit...)
}

// stamp records creation order for id. Callers hold s.mu.
func (s *Store) stamp(id string) {
	s.seq++
	s.created[id] = s.seq
}

// sortByCreated orders ids by creation, oldest first. Callers hold s.mu.
func (s *Store) sortByCreated(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return s.created[ids[i]] < s.created[ids[j]] })
}

func cloneIssue(is *domain.Issue) *domain.Issue {
	c := *is
	c.ScheduledFor = cloneTime(is.ScheduledFor)
	c.PublishedAt = cloneTime(is.PublishedAt)
	if is.PublishedBy != nil {
		v := *is.PublishedBy
		c.PublishedBy = &v
	}
	if is.CreatedBy != nil {
		v := *is.CreatedBy
		c.CreatedBy = &v
	}
	return &c
}

func cloneSubscriber(sub *domain.Subscriber) *domain.Subscriber {
	c := *sub
	c.UnsubscribedAt = cloneTime(sub.UnsubscribedAt)
	return &c
}

func cloneRun(r *domain.SendRun) *domain.SendRun {
	c := *r
	c.SentAt = cloneTime(r.SentAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
