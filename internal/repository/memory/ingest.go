package memory

import (
	"context"
	"sort"

	"github.com/ignite/brief/internal/domain"
)

// IngestRepo implements ingest.Repository.
type IngestRepo struct{ s *Store }

// UpsertItem stores item keyed by (feed, guid). Existing items keep their id
// and have their content refreshed.
func (r *IngestRepo) UpsertItem(_ context.Context, item *domain.IngestedItem) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.items {
		if cur.FeedURL == item.FeedURL && cur.GUID == item.GUID {
			item.ID = cur.ID
			item.CreatedAt = cur.CreatedAt
			c := *item
			r.s.items[cur.ID] = &c
			return false, nil
		}
	}
	c := *item
	r.s.items[item.ID] = &c
	r.s.stamp(item.ID)
	return true, nil
}

// ListItems returns the newest items first.
func (r *IngestRepo) ListItems(_ context.Context, limit int) ([]domain.IngestedItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.IngestedItem, 0, len(r.s.items))
	for _, it := range r.s.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return r.s.created[out[i].ID] > r.s.created[out[j].ID] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
