// Package ingest pulls external items from RSS and Atom feeds so editors can
// cite them as provenance on an issue.
package ingest

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/logger"
)

const maxSummary = 500

// Repository persists ingested items. UpsertItem reports whether the item
// was new; existing items keep their id.
type Repository interface {
	UpsertItem(ctx context.Context, item *domain.IngestedItem) (bool, error)
	ListItems(ctx context.Context, limit int) ([]domain.IngestedItem, error)
}

// Service polls feeds into the repository.
type Service struct {
	repo   Repository
	parser *gofeed.Parser
	now    func() time.Time
}

// NewService creates an ingest service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, parser: gofeed.NewParser(), now: time.Now}
}

// PollFeed fetches feedURL and upserts every item keyed by GUID, falling back
// to the item link. Items with neither are skipped. It returns the number of
// items that were not seen before.
func (s *Service) PollFeed(ctx context.Context, feedURL string) (int, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	created := 0
	for _, it := range feed.Items {
		item := s.toItem(feedURL, it)
		if item == nil {
			continue
		}
		isNew, err := s.repo.UpsertItem(ctx, item)
		if err != nil {
			return created, fmt.Errorf("upsert item %s: %w", item.GUID, err)
		}
		if isNew {
			created++
		}
	}

	logger.Info("feed polled", "feed", feedURL, "items", len(feed.Items), "new", created)
	return created, nil
}

// List returns the most recently ingested items.
func (s *Service) List(ctx context.Context, limit int) ([]domain.IngestedItem, error) {
	return s.repo.ListItems(ctx, limit)
}

func (s *Service) toItem(feedURL string, it *gofeed.Item) *domain.IngestedItem {
	guid := strings.TrimSpace(it.GUID)
	if guid == "" {
		guid = strings.TrimSpace(it.Link)
	}
	if guid == "" {
		return nil
	}

	item := &domain.IngestedItem{
		ID:        uuid.NewString(),
		FeedURL:   feedURL,
		GUID:      guid,
		Title:     strings.TrimSpace(it.Title),
		URL:       strings.TrimSpace(it.Link),
		Summary:   truncate(stripHTML(it.Description), maxSummary),
		CreatedAt: s.now().UTC(),
	}
	switch {
	case it.PublishedParsed != nil:
		item.PublishedAt = it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		item.PublishedAt = it.UpdatedParsed.UTC()
	default:
		item.PublishedAt = item.CreatedAt
	}
	if len(it.Authors) > 0 && it.Authors[0] != nil {
		item.Author = it.Authors[0].Name
	}
	return item
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	s = html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
