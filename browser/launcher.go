package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/rednote/config"
	"github.com/ysmood/gson"
)

// Launcher starts a browser and hands back its single working page.
// Closing the returned io.Closer shuts the browser down.
type Launcher interface {
	Launch(ctx context.Context) (Page, io.Closer, error)
}

// RodLauncher launches a local Chromium through go-rod with a persistent
// profile, so a login survives restarts.
type RodLauncher struct {
	cfg config.BrowserConfig
}

func NewRodLauncher(cfg config.BrowserConfig) *RodLauncher {
	return &RodLauncher{cfg: cfg}
}

func (r *RodLauncher) Launch(ctx context.Context) (Page, io.Closer, error) {
	l := launcher.New().
		Context(ctx).
		Headless(r.cfg.Headless).
		NoSandbox(r.cfg.NoSandbox).
		UserDataDir(r.cfg.ProfileDir).
		Leakless(true)

	if r.cfg.Bin != "" {
		l = l.Bin(r.cfg.Bin)
	}
	if r.cfg.Proxy != "" {
		l = l.Proxy(r.cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", r.cfg.ViewportWidth, r.cfg.ViewportHeight))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "profileDir", r.cfg.ProfileDir)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := r.firstPage(b)
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}

	if err := r.preparePage(page); err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	router := blockRequests(page, r.cfg.BlockResources, r.cfg.BlockTrackers)

	return NewRodPage(page, r.cfg.OpTimeout), browserCloser{b: b, router: router}, nil
}

// firstPage reuses the tab a persistent profile opens with, if any.
func (r *RodLauncher) firstPage(b *rod.Browser) (*rod.Page, error) {
	pages, err := b.Pages()
	if err == nil && len(pages) > 0 {
		return pages.First(), nil
	}
	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return page, nil
}

// preparePage applies the per-page setup that must happen before the first
// navigation: viewport, stealth script and extra headers.
func (r *RodLauncher) preparePage(page *rod.Page) error {
	// ── 1. Viewport ──────────────────────────────────────────────────
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  r.cfg.ViewportWidth,
		Height: r.cfg.ViewportHeight,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	// ── 2. Stealth ───────────────────────────────────────────────────
	if r.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	// ── 3. Extra headers ─────────────────────────────────────────────
	if r.cfg.AcceptLanguage != "" {
		err := proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{"Accept-Language": gson.New(r.cfg.AcceptLanguage)},
		}.Call(page)
		if err != nil {
			slog.Warn("setting Accept-Language failed", "error", err)
		}
	}
	return nil
}

type browserCloser struct {
	b      *rod.Browser
	router *rod.HijackRouter
}

func (c browserCloser) Close() error {
	if c.router != nil {
		if err := c.router.Stop(); err != nil {
			slog.Debug("stopping request router failed", "error", err)
		}
	}
	return c.b.Close()
}
