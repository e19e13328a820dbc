package browser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/rednote/config"
	"github.com/use-agent/rednote/models"
)

// Navigator lands pages on URLs and coaxes lazily rendered content into the
// DOM. Every wait goes through Clock and every loop has a fixed ceiling.
type Navigator struct {
	clock  Clock
	timing config.TimingConfig
}

func NewNavigator(clock Clock, timing config.TimingConfig) *Navigator {
	return &Navigator{clock: clock, timing: timing}
}

// Clock returns the clock the navigator waits on.
func (n *Navigator) Clock() Clock { return n.clock }

// Wait sleeps for d on the navigator's clock.
func (n *Navigator) Wait(ctx context.Context, d time.Duration) error {
	return n.clock.Sleep(ctx, d)
}

// Goto navigates page to url. Only transport failures are errors; a page
// that renders slowly or incompletely is left for the caller to settle.
func (n *Navigator) Goto(ctx context.Context, page Page, url string) error {
	if err := page.Navigate(ctx, url); err != nil {
		return categorizeError(err, "failed to navigate to "+url)
	}
	return nil
}

// Settle waits initial, then scrolls bottom, middle and top with a step
// delay between each, and finishes with the settle delay.
func (n *Navigator) Settle(ctx context.Context, page Page, initial time.Duration) error {
	if err := n.clock.Sleep(ctx, initial); err != nil {
		return err
	}
	for _, f := range []float64{1, 0.5} {
		n.scrollTo(ctx, page, f)
		if err := n.clock.Sleep(ctx, n.timing.ScrollStep); err != nil {
			return err
		}
	}
	n.scrollTo(ctx, page, 0)
	return n.clock.Sleep(ctx, n.timing.ScrollSettle)
}

// Expand brings the comment area into view and repeatedly scrolls and
// clicks every visible "more" control. It returns how many clicks landed.
func (n *Navigator) Expand(ctx context.Context, page Page, anchors, more []Locator) (int, error) {
	n.ScrollToAnchor(ctx, page, anchors)

	clicks := 0
	for i := 0; i < n.timing.ExpandIterations; i++ {
		if err := page.ScrollBy(ctx, n.timing.ExpandScroll); err != nil {
			slog.Debug("expand scroll failed", "iteration", i, "error", err)
		}
		if err := n.clock.Sleep(ctx, n.timing.ScrollStep); err != nil {
			return clicks, err
		}
		c, err := n.clickVisible(ctx, page, more)
		clicks += c
		if err != nil {
			return clicks, err
		}
	}
	return clicks, nil
}

// ClickMore runs up to rounds passes of clicking visible "more" controls,
// stopping early once a pass finds nothing to click.
func (n *Navigator) ClickMore(ctx context.Context, page Page, more []Locator, rounds int) (int, error) {
	clicks := 0
	for i := 0; i < rounds; i++ {
		c, err := n.clickVisible(ctx, page, more)
		clicks += c
		if err != nil {
			return clicks, err
		}
		if c == 0 {
			break
		}
	}
	return clicks, nil
}

// ScrollToAnchor scrolls the first element found by anchors into view,
// or to the bottom of the page when none is present.
func (n *Navigator) ScrollToAnchor(ctx context.Context, page Page, anchors []Locator) {
	for _, loc := range anchors {
		els, err := page.Find(ctx, loc)
		if err != nil || len(els) == 0 {
			continue
		}
		if err := els[0].ScrollIntoView(ctx); err == nil {
			return
		}
	}
	n.scrollTo(ctx, page, 1)
}

func (n *Navigator) clickVisible(ctx context.Context, page Page, more []Locator) (int, error) {
	clicks := 0
	for _, loc := range more {
		els, err := page.Find(ctx, loc)
		if err != nil {
			continue
		}
		for _, el := range els {
			if ok, err := el.Visible(ctx); err != nil || !ok {
				continue
			}
			if err := el.Click(ctx); err != nil {
				slog.Debug("more control click failed", "locator", loc.String(), "error", err)
				continue
			}
			clicks++
			if err := n.clock.Sleep(ctx, n.timing.ActionDelay); err != nil {
				return clicks, err
			}
		}
	}
	return clicks, nil
}

func (n *Navigator) scrollTo(ctx context.Context, page Page, fraction float64) {
	if err := page.ScrollTo(ctx, fraction); err != nil {
		slog.Debug("scroll failed", "fraction", fraction, "error", err)
	}
}

// categorizeError maps a navigation failure to a ScrapeError code.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
