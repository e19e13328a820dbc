package scraper

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/cache"
	"github.com/use-agent/rednote/cleaner"
	"github.com/use-agent/rednote/config"
	"github.com/use-agent/rednote/extract"
	"github.com/use-agent/rednote/models"
	"github.com/use-agent/rednote/store"
	"github.com/use-agent/rednote/webhook"
)

const msgNotLoggedIn = "请先登录小红书账号"

// Scraper runs note operations on the shared browser session. There is a
// single page, so every public operation holds the scraper lock for its
// whole duration. It is safe for concurrent use.
type Scraper struct {
	session   *browser.Session
	nav       *browser.Navigator
	extractor *extract.Extractor
	store     *store.Store
	searches  *cache.Cache[[]models.NoteSummary]
	markdown  *cleaner.Markdown
	images    ImageFetcher
	notifier  *webhook.Notifier
	site      config.SiteConfig
	timing    config.TimingConfig

	mu sync.Mutex
}

// Options are the collaborators of a Scraper. SearchCache, Images and
// Notifier are optional.
type Options struct {
	Session     *browser.Session
	Navigator   *browser.Navigator
	Extractor   *extract.Extractor
	Store       *store.Store
	SearchCache *cache.Cache[[]models.NoteSummary]
	Images      ImageFetcher
	Notifier    *webhook.Notifier
	Site        config.SiteConfig
	Timing      config.TimingConfig
}

func New(o Options) *Scraper {
	searches := o.SearchCache
	if searches == nil {
		searches = cache.New[[]models.NoteSummary](0, 0)
	}
	return &Scraper{
		session:   o.Session,
		nav:       o.Navigator,
		extractor: o.Extractor,
		store:     o.Store,
		searches:  searches,
		markdown:  cleaner.NewMarkdown(o.Site.HomeURL),
		images:    o.Images,
		notifier:  o.Notifier,
		site:      o.Site,
		timing:    o.Timing,
	}
}

// Open builds a Scraper from cfg, backed by a real Chromium launcher. The
// browser itself starts lazily on the first operation.
func Open(cfg *config.Config) (*Scraper, error) {
	table, err := extract.LoadTable(cfg.Selectors.File)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid selector table", err)
	}
	st, err := store.New(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}

	nav := browser.NewNavigator(browser.RealClock{}, cfg.Timing)
	session := browser.NewSession(browser.NewRodLauncher(cfg.Browser), nav, browser.SessionConfig{
		HomeURL:         cfg.Site.HomeURL,
		LoginAffordance: table.LoginAffordance,
		HomeDelay:       cfg.Timing.HomeDelay,
		LoginPolicy: browser.RetryPolicy{
			Attempts: cfg.Timing.LoginAttempts,
			Interval: cfg.Timing.LoginInterval,
		},
	})

	slog.Info("scraper configured",
		"home", cfg.Site.HomeURL,
		"data_dir", st.Dir(),
		"selectors", cfg.Selectors.File,
		"search_cache_ttl", cfg.Cache.SearchTTL,
		"webhook", cfg.Webhook.URL != "",
	)

	return New(Options{
		Session:     session,
		Navigator:   nav,
		Extractor:   extract.New(table, cfg.Site.HomeURL),
		Store:       st,
		SearchCache: cache.New[[]models.NoteSummary](cfg.Cache.MaxEntries, cfg.Cache.SearchTTL),
		Images:      NewHTTPImageFetcher(cfg.Browser.Proxy, cfg.Browser.AcceptLanguage, cfg.Store.ImageMaxBytes),
		Notifier:    webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret),
		Site:        cfg.Site,
		Timing:      cfg.Timing,
	}), nil
}

// Store returns the record store crawls write to.
func (s *Scraper) Store() *store.Store { return s.store }

// State returns the last observed login state. It never blocks on a
// running operation.
func (s *Scraper) State() models.LoginState { return s.session.State() }

// Login opens the login dialog and waits for the operator to finish.
func (s *Scraper) Login(ctx context.Context) (models.LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Login(ctx)
}

// Close stops the browser and background work. Pending webhook deliveries
// are waited for.
func (s *Scraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Info("scraper shutting down")
	s.searches.Close()
	s.notifier.Wait()
	err := s.session.Close()
	slog.Info("scraper shutdown complete")
	return err
}

// withLoggedInPage lends the page to fn once the session is logged in.
// The caller holds s.mu.
func (s *Scraper) withLoggedInPage(ctx context.Context, fn func(browser.Page) error) error {
	st, err := s.session.EnsureReady(ctx)
	if err != nil {
		return err
	}
	if st != models.LoggedIn {
		return models.NewScrapeError(models.ErrCodeNotLoggedIn, msgNotLoggedIn, nil)
	}
	return s.session.WithPage(ctx, fn)
}

// open navigates page to rawURL and waits the load delay.
func (s *Scraper) open(ctx context.Context, page browser.Page, rawURL string) error {
	if err := s.nav.Goto(ctx, page, rawURL); err != nil {
		return err
	}
	return s.nav.Wait(ctx, s.timing.LoadDelay)
}

func (s *Scraper) searchURL(keywords string) string {
	return s.site.SearchURL + url.QueryEscape(keywords)
}

// absoluteURL resolves a possibly relative link against the site origin.
func (s *Scraper) absoluteURL(href string) string {
	base, err := url.Parse(s.site.HomeURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func validateNoteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "invalid note url: "+raw, err)
	}
	return nil
}

// randomID generates a short random hex string for run IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
