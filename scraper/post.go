package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/models"
)

// Submission strategies, in the order they are tried.
const (
	PostViaSendButton  = "send-button"
	PostViaEnter       = "enter"
	PostViaScriptClick = "script-click"
)

const (
	msgPostNoInput = "未能找到评论输入框，无法发布评论"
	msgPostFailed  = "发布评论失败，请检查评论内容或网络连接"
	msgPostOK      = "已成功发布评论："
)

// PostComment types text into the note's comment box and submits it. A
// missing input box or a submission that no strategy could confirm is
// reported in the result; the returned error is reserved for session and
// navigation failures.
func (s *Scraper) PostComment(ctx context.Context, noteURL, text string) (models.PostResult, error) {
	if err := validateNoteURL(noteURL); err != nil {
		return models.PostResult{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.PostResult{}, models.NewScrapeError(models.ErrCodeInvalidInput, "comment is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res models.PostResult
	err := s.withLoggedInPage(ctx, func(page browser.Page) error {
		var err error
		res, err = s.postComment(ctx, page, noteURL, text)
		return err
	})
	if err != nil {
		return models.PostResult{}, err
	}
	slog.Info("comment post finished", "url", noteURL, "success", res.Success, "strategy", res.Strategy)
	return res, nil
}

func (s *Scraper) postComment(ctx context.Context, page browser.Page, noteURL, text string) (models.PostResult, error) {
	t := s.extractor.Table()

	// ── 1. Load and bring the comment area into view ─────────────────
	if err := s.open(ctx, page, noteURL); err != nil {
		return models.PostResult{}, err
	}
	s.nav.ScrollToAnchor(ctx, page, t.CommentAnchors)
	if err := s.nav.Wait(ctx, s.timing.ActionDelay); err != nil {
		return models.PostResult{}, err
	}

	// ── 2. Find the input, retrying once from the bottom ─────────────
	input := firstVisible(ctx, page, t.CommentInputs)
	if input == nil {
		if err := page.ScrollTo(ctx, 1); err != nil {
			slog.Debug("scroll to bottom failed", "error", err)
		}
		if err := s.nav.Wait(ctx, s.timing.ScrollStep); err != nil {
			return models.PostResult{}, err
		}
		input = firstVisible(ctx, page, t.CommentInputs)
	}
	if input == nil {
		return models.PostResult{Success: false, Message: msgPostNoInput}, nil
	}

	// ── 3. Type the comment ──────────────────────────────────────────
	if err := input.Input(ctx, text); err != nil {
		slog.Warn("typing comment failed", "error", err)
		return models.PostResult{Success: false, Message: msgPostFailed}, nil
	}
	if err := s.nav.Wait(ctx, s.timing.ScrollStep); err != nil {
		return models.PostResult{}, err
	}

	// ── 4. Submit ────────────────────────────────────────────────────
	strategies := []struct {
		name string
		try  func() bool
	}{
		{PostViaSendButton, func() bool {
			btn := firstVisible(ctx, page, t.SendButtons)
			if btn == nil {
				return false
			}
			if err := btn.Click(ctx); err != nil {
				slog.Debug("send button click failed", "error", err)
				return false
			}
			return true
		}},
		{PostViaEnter, func() bool {
			if err := page.Press(ctx, browser.KeyEnter); err != nil {
				slog.Debug("enter key failed", "error", err)
				return false
			}
			if err := s.nav.Wait(ctx, s.timing.ActionDelay); err != nil {
				return false
			}
			// Enter only counts once the editor has been cleared.
			return !s.editorHolds(ctx, page, text)
		}},
		{PostViaScriptClick, func() bool {
			for _, loc := range t.SendButtons {
				ok, err := page.ScriptClick(ctx, loc)
				if err != nil {
					slog.Debug("script click failed", "locator", loc.String(), "error", err)
					continue
				}
				if ok {
					return true
				}
			}
			return false
		}},
	}

	for _, st := range strategies {
		if !st.try() {
			if err := ctx.Err(); err != nil {
				return models.PostResult{}, err
			}
			continue
		}
		if st.name != PostViaEnter {
			if err := s.nav.Wait(ctx, s.timing.ActionDelay); err != nil {
				return models.PostResult{}, err
			}
		}
		return models.PostResult{Success: true, Strategy: st.name, Message: msgPostOK + text}, nil
	}
	return models.PostResult{Success: false, Message: msgPostFailed}, nil
}

// editorHolds reports whether any comment input still contains text.
func (s *Scraper) editorHolds(ctx context.Context, page browser.Page, text string) bool {
	for _, loc := range s.extractor.Table().CommentInputs {
		els, err := page.Find(ctx, loc)
		if err != nil {
			continue
		}
		for _, el := range els {
			if v, err := el.Text(ctx); err == nil && strings.Contains(v, text) {
				return true
			}
		}
	}
	return false
}

// firstVisible returns the first visible element matched by locs, trying
// each locator in order.
func firstVisible(ctx context.Context, page browser.Page, locs []browser.Locator) browser.Element {
	for _, loc := range locs {
		els, err := page.Find(ctx, loc)
		if err != nil {
			continue
		}
		for _, el := range els {
			if ok, err := el.Visible(ctx); err == nil && ok {
				return el
			}
		}
	}
	return nil
}
