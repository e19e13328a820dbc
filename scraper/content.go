package scraper

import (
	"context"
	"log/slog"

	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/models"
)

// GetNoteContent scrapes a note detail page. Fields that cannot be found
// carry their unknown sentinels; only session and navigation failures are
// errors.
func (s *Scraper) GetNoteContent(ctx context.Context, noteURL string) (models.NoteRecord, error) {
	if err := validateNoteURL(noteURL); err != nil {
		return models.NoteRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rec models.NoteRecord
	err := s.withLoggedInPage(ctx, func(page browser.Page) error {
		if err := s.nav.Goto(ctx, page, noteURL); err != nil {
			return err
		}
		if err := s.nav.Settle(ctx, page, s.timing.ContentDelay); err != nil {
			return err
		}
		rec = s.readNote(ctx, page, noteURL, "")
		return nil
	})
	return rec, err
}

// readNote extracts the note shown on page. fallbackTitle replaces a
// missing title when it is non-empty. Comments are left empty.
func (s *Scraper) readNote(ctx context.Context, page browser.Page, noteURL, fallbackTitle string) models.NoteRecord {
	t := s.extractor.Table()

	if n, err := s.extractor.MarkCommentRegions(ctx, page); err != nil {
		slog.Debug("marking comment regions failed", "error", err)
	} else {
		slog.Debug("comment regions marked", "elements", n)
	}

	title := s.extractor.Extract(ctx, page, t.Title)
	author := s.extractor.Extract(ctx, page, t.Author)
	published := s.extractor.Extract(ctx, page, t.PublishedAt)
	body := s.extractor.Extract(ctx, page, t.Body)
	tags := s.extractor.ExtractAll(ctx, page, t.Tags)

	rec := models.NoteRecord{
		URL:         noteURL,
		Title:       title.Value,
		Author:      author.Value,
		PublishedAt: published.Value,
		Body:        body.Value,
		Tags:        tags.Values,
		Comments:    []models.CommentRecord{},
	}
	if !title.Accepted && fallbackTitle != "" {
		rec.Title = fallbackTitle
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if body.Accepted && body.Element != nil {
		rec.BodyMarkdown = s.bodyMarkdown(ctx, body.Element)
	}

	slog.Debug("note extracted",
		"url", noteURL,
		"title_strategy", title.Strategy,
		"body_strategy", body.Strategy,
		"body_provenance", body.Provenance,
		"tags", len(rec.Tags),
	)
	return rec
}

func (s *Scraper) bodyMarkdown(ctx context.Context, el browser.Element) string {
	fragment, err := el.HTML(ctx)
	if err != nil {
		slog.Debug("reading body html failed", "error", err)
		return ""
	}
	md, err := s.markdown.Convert(fragment)
	if err != nil {
		slog.Debug("body markdown conversion failed", "error", err)
		return ""
	}
	return md
}
