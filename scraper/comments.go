package scraper

import (
	"context"
	"log/slog"

	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/models"
)

// GetNoteComments loads a note, expands its comment thread and returns
// every comment found, in page order.
func (s *Scraper) GetNoteComments(ctx context.Context, noteURL string) ([]models.CommentRecord, error) {
	if err := validateNoteURL(noteURL); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	comments := []models.CommentRecord{}
	err := s.withLoggedInPage(ctx, func(page browser.Page) error {
		if err := s.open(ctx, page, noteURL); err != nil {
			return err
		}

		t := s.extractor.Table()
		clicks, err := s.nav.Expand(ctx, page, t.CommentAnchors, t.MoreComments)
		if err != nil {
			return err
		}
		if found := s.extractor.Comments(ctx, page, t.Comments, 0); found != nil {
			comments = found
		}
		slog.Info("comments collected", "url", noteURL, "comments", len(comments), "expand_clicks", clicks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}
