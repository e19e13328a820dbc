package scraper

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/cache"
	"github.com/use-agent/rednote/models"
)

// DefaultSearchLimit applies when SearchNotes is called with limit <= 0.
const DefaultSearchLimit = 5

// SearchNotes returns up to limit distinct notes found for keywords. It
// runs in any login state. Results are de-duplicated by URL, keeping the
// first title seen; finding nothing is an empty result, not an error.
func (s *Scraper) SearchNotes(ctx context.Context, keywords string, limit int) ([]models.NoteSummary, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "keywords is required", nil)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	key := cache.Key(keywords, strconv.Itoa(limit))
	if hit, ok := s.searches.Get(key); ok {
		slog.Debug("search cache hit", "keywords", keywords, "limit", limit)
		return slices.Clone(hit), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var notes []models.NoteSummary
	err := s.session.WithPage(ctx, func(page browser.Page) error {
		if err := s.open(ctx, page, s.searchURL(keywords)); err != nil {
			return err
		}
		notes = s.readCards(ctx, page, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(notes) > 0 {
		s.searches.Set(key, notes)
	}
	slog.Info("search finished", "keywords", keywords, "results", len(notes))
	return slices.Clone(notes), nil
}

// readCards collects note links from the result cards on page.
func (s *Scraper) readCards(ctx context.Context, page browser.Page, limit int) []models.NoteSummary {
	t := s.extractor.Table()
	seen := make(map[string]bool)
	notes := make([]models.NoteSummary, 0, limit)

	for _, card := range s.findCards(ctx, page) {
		link := s.extractor.Extract(ctx, card, t.CardLink)
		if !link.Accepted {
			continue
		}
		u := s.absoluteURL(link.Value)
		if seen[u] {
			continue
		}
		seen[u] = true

		notes = append(notes, models.NoteSummary{
			URL:   u,
			Title: s.extractor.Extract(ctx, card, t.CardTitle).Value,
		})
		if len(notes) >= limit {
			break
		}
	}
	return notes
}

// findCards returns the cards matched by the first card locator that
// matches anything.
func (s *Scraper) findCards(ctx context.Context, page browser.Page) []browser.Element {
	for _, loc := range s.extractor.Table().Cards {
		els, err := page.Find(ctx, loc)
		if err != nil {
			slog.Debug("card lookup failed", "locator", loc.String(), "error", err)
			continue
		}
		if len(els) > 0 {
			return els
		}
	}
	return nil
}
