package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/models"
	"github.com/use-agent/rednote/simhash"
	"github.com/use-agent/rednote/webhook"
)

// nearDuplicateDistance is the largest body fingerprint distance reported
// as a near-duplicate.
const nearDuplicateDistance = 3

// Crawl defaults applied to non-positive limits.
const (
	DefaultNoteLimit    = 5
	DefaultCommentLimit = 1
)

// crawlRun is the state of one CrawlByClick call.
type crawlRun struct {
	id           string
	target       int
	commentLimit int
	visited      map[string]bool
	dups         *simhash.Index
	report       *models.CrawlReport
}

// noteEvent is the webhook payload for a saved note.
type noteEvent struct {
	Ordinal  int      `json:"ordinal"`
	Title    string   `json:"title"`
	URL      string   `json:"url,omitempty"`
	Files    []string `json:"files"`
	Keywords string   `json:"keywords"`
}

// CrawlByClick opens the search results for keywords and clicks through
// unvisited cards until noteLimit notes are saved or no card is left. Each
// card's outcome is recorded in the report; a card that fails is marked
// visited so the run always moves on. A card that cannot be opened at all
// ends the run.
func (s *Scraper) CrawlByClick(ctx context.Context, keywords string, noteLimit, commentLimit int) (*models.CrawlReport, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "keywords is required", nil)
	}
	if noteLimit <= 0 {
		noteLimit = DefaultNoteLimit
	}
	if commentLimit <= 0 {
		commentLimit = DefaultCommentLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run := &crawlRun{
		id:           randomID(),
		target:       noteLimit,
		commentLimit: commentLimit,
		visited:      make(map[string]bool),
		dups:         simhash.NewIndex(nearDuplicateDistance),
		report: &models.CrawlReport{
			Keywords: keywords,
			Target:   noteLimit,
			Cards:    []models.CardResult{},
		},
	}
	slog.Info("crawl started",
		"run_id", run.id,
		"keywords", keywords,
		"note_limit", noteLimit,
		"comment_limit", commentLimit,
	)

	err := s.withLoggedInPage(ctx, func(page browser.Page) error {
		return s.crawl(ctx, page, run)
	})
	if err != nil {
		slog.Warn("crawl aborted", "run_id", run.id, "error", err)
		return run.report, err
	}

	slog.Info("crawl finished",
		"run_id", run.id,
		"succeeded", run.report.Succeeded,
		"skipped", run.report.Skipped,
		"failed", run.report.Failed,
	)
	s.notifier.Notify(webhook.NewEvent(webhook.EventCrawlCompleted, run.id, run.report))
	return run.report, nil
}

func (s *Scraper) crawl(ctx context.Context, page browser.Page, run *crawlRun) error {
	if err := s.open(ctx, page, s.searchURL(run.report.Keywords)); err != nil {
		return err
	}

	for run.report.Succeeded < run.target {
		if err := ctx.Err(); err != nil {
			return models.NewScrapeError(models.ErrCodeTimeout, "crawl interrupted", err)
		}

		// ── 1. Pick the next unvisited card ──────────────────────────
		card, cardTitle := s.nextCard(ctx, page, run.visited)
		if card == nil {
			slog.Info("no unvisited cards left", "run_id", run.id)
			return nil
		}
		noteURL := ""
		if link := s.extractor.Extract(ctx, card, s.extractor.Table().CardLink); link.Accepted {
			noteURL = s.absoluteURL(link.Value)
		}

		// ── 2. Open it ───────────────────────────────────────────────
		if err := s.clickCard(ctx, card); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return models.NewScrapeError(models.ErrCodeTimeout, "crawl interrupted", ctxErr)
			}
			slog.Warn("card could not be opened, ending run", "run_id", run.id, "title", cardTitle, "error", err)
			run.report.Add(models.CardResult{Title: cardTitle, Status: models.CardFailed, Error: err.Error()})
			return nil
		}

		// ── 3. Scrape, persist and close ─────────────────────────────
		result := s.crawlCard(ctx, page, run, cardTitle, noteURL)
		run.visited[cardTitle] = true
		run.report.Add(result)

		if err := s.dismiss(ctx, page); err != nil {
			return models.NewScrapeError(models.ErrCodeTimeout, "crawl interrupted", err)
		}
	}
	return nil
}

// nextCard returns the first card whose title has not been visited.
func (s *Scraper) nextCard(ctx context.Context, page browser.Page, visited map[string]bool) (browser.Element, string) {
	field := s.extractor.Table().CrawlCardTitle
	for _, card := range s.findCards(ctx, page) {
		r := s.extractor.Extract(ctx, card, field)
		if !r.Accepted || visited[r.Value] {
			continue
		}
		return card, r.Value
	}
	return nil, ""
}

// clickCard clicks card, retrying once after scrolling it into view.
func (s *Scraper) clickCard(ctx context.Context, card browser.Element) error {
	err := card.Click(ctx)
	if err == nil {
		return nil
	}
	slog.Debug("card click failed, retrying", "error", err)

	if err := card.ScrollIntoView(ctx); err != nil {
		slog.Debug("scrolling card into view failed", "error", err)
	}
	if err := s.nav.Wait(ctx, s.timing.ScrollStep); err != nil {
		return err
	}
	return card.Click(ctx)
}

// crawlCard scrapes the note overlay opened from a card and saves it.
func (s *Scraper) crawlCard(ctx context.Context, page browser.Page, run *crawlRun, cardTitle, noteURL string) models.CardResult {
	t := s.extractor.Table()
	failed := func(err error) models.CardResult {
		slog.Warn("card failed", "run_id", run.id, "title", cardTitle, "error", err)
		return models.CardResult{Title: cardTitle, Status: models.CardFailed, Error: err.Error()}
	}

	if err := s.nav.Wait(ctx, s.timing.CardDelay); err != nil {
		return failed(err)
	}

	rec := s.readNote(ctx, page, noteURL, cardTitle)
	switch {
	case rec.Title == "" || rec.Title == models.UnknownTitle:
		slog.Info("card skipped: no usable title", "run_id", run.id, "card", cardTitle)
		return models.CardResult{Title: cardTitle, Status: models.CardSkipped, Error: "note has no usable title"}
	case rec.Title != cardTitle && run.visited[rec.Title]:
		slog.Info("card skipped: note already saved", "run_id", run.id, "card", cardTitle, "title", rec.Title)
		return models.CardResult{Title: rec.Title, Status: models.CardSkipped, Error: "note already saved in this run"}
	}

	// Comments load below the body; scroll down and open collapsed threads.
	if err := page.ScrollTo(ctx, 1); err != nil {
		slog.Debug("scroll to bottom failed", "error", err)
	}
	if err := s.nav.Wait(ctx, s.timing.ActionDelay); err != nil {
		return failed(err)
	}
	if _, err := s.nav.ClickMore(ctx, page, t.MoreComments, s.timing.CrawlMoreRounds); err != nil {
		return failed(err)
	}
	if comments := s.extractor.Comments(ctx, page, t.Comments, run.commentLimit); comments != nil {
		rec.Comments = comments
	}

	image := s.captureImage(ctx, page, noteURL)
	if err := ctx.Err(); err != nil {
		return failed(err)
	}

	ordinal := run.report.Succeeded + 1
	files, err := s.store.Save(rec, ordinal, image)
	if err != nil {
		return failed(err)
	}
	run.visited[rec.Title] = true

	result := models.CardResult{Title: rec.Title, Status: models.CardSuccess, Files: files}
	if rec.Body != models.UnknownBody {
		if dup := run.dups.Check(files[0], rec.Body); dup != "" {
			slog.Warn("near-duplicate note body", "run_id", run.id, "file", files[0], "duplicate_of", dup)
			result.NearDuplicateOf = dup
		}
	}

	s.notifier.Notify(webhook.NewEvent(webhook.EventCrawlNote, run.id, noteEvent{
		Ordinal:  ordinal,
		Title:    rec.Title,
		URL:      noteURL,
		Files:    files,
		Keywords: run.report.Keywords,
	}))
	return result
}

// captureImage screenshots the note's main image, falling back to
// downloading its src. It returns nil when neither works.
func (s *Scraper) captureImage(ctx context.Context, page browser.Page, noteURL string) []byte {
	for _, loc := range s.extractor.Table().Images {
		els, err := page.Find(ctx, loc)
		if err != nil || len(els) == 0 {
			continue
		}
		el := els[0]

		png, err := el.Screenshot(ctx)
		if err == nil && len(png) > 0 {
			return png
		}
		slog.Debug("image screenshot failed, downloading instead", "locator", loc.String(), "error", err)

		data, err := s.downloadImage(ctx, el, noteURL)
		if err != nil {
			slog.Warn("image download failed", "error", err)
			return nil
		}
		return data
	}
	slog.Info("no note image found")
	return nil
}

func (s *Scraper) downloadImage(ctx context.Context, el browser.Element, noteURL string) ([]byte, error) {
	if s.images == nil {
		return nil, errors.New("no image fetcher configured")
	}
	src, ok, err := el.Attribute(ctx, "src")
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(src) == "" {
		return nil, errors.New("image has no src")
	}
	referer := noteURL
	if referer == "" {
		referer = s.site.HomeURL
	}
	return s.images.Fetch(ctx, s.absoluteURL(src), referer)
}

// dismiss closes the note overlay with the first close control found, or
// Escape, then waits for the results page to settle. Only a cancelled
// context is an error.
func (s *Scraper) dismiss(ctx context.Context, page browser.Page) error {
	closed := false
	for _, loc := range s.extractor.Table().CloseButtons {
		els, err := page.Find(ctx, loc)
		if err != nil || len(els) == 0 {
			continue
		}
		if err := els[0].Click(ctx); err != nil {
			slog.Debug("close control click failed", "locator", loc.String(), "error", err)
			break
		}
		closed = true
		break
	}
	if !closed {
		if err := page.Press(ctx, browser.KeyEscape); err != nil {
			slog.Debug("escape key failed", "error", err)
		}
	}
	return s.nav.Wait(ctx, s.timing.ActionDelay)
}
