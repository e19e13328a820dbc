package browser

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/rednote/models"
)

// Login result messages, shown verbatim to the operator.
const (
	msgLoginAlready = "已登录小红书账号"
	msgLoginSuccess = "登录成功！"
	msgLoginTimeout = "登录等待超时。请重试或手动登录后再使用其他功能。"
)

// SessionConfig is the static setup of a Session.
type SessionConfig struct {
	HomeURL string

	// LoginAffordance locates the control shown only to logged-out users.
	LoginAffordance []Locator

	// HomeDelay is the wait after landing on the home page before the
	// login affordance is inspected.
	HomeDelay time.Duration

	// LoginPolicy bounds the wait for a human to finish logging in.
	LoginPolicy RetryPolicy
}

// Session owns the one browser and the one page of the process. It starts
// lazily on first use and is closed only at shutdown. Operations borrow the
// page through WithPage and must not close it.
type Session struct {
	launcher Launcher
	nav      *Navigator
	cfg      SessionConfig

	mu     sync.Mutex
	page   Page
	closer io.Closer

	state atomic.Int32
}

func NewSession(launcher Launcher, nav *Navigator, cfg SessionConfig) *Session {
	return &Session{launcher: launcher, nav: nav, cfg: cfg}
}

// State returns the last observed login state without touching the browser.
func (s *Session) State() models.LoginState {
	return models.LoginState(s.state.Load())
}

func (s *Session) setState(st models.LoginState) {
	if prev := s.State(); prev != st {
		slog.Info("login state changed", "from", prev.String(), "to", st.String())
	}
	s.state.Store(int32(st))
}

// EnsureReady starts the browser on first use and reports the login state.
// Once LoggedIn has been observed it is returned without navigating; until
// then every call lands on the home page and inspects the DOM again.
func (s *Session) EnsureReady(ctx context.Context) (models.LoginState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureReady(ctx)
}

func (s *Session) ensureReady(ctx context.Context) (models.LoginState, error) {
	if err := s.launch(ctx); err != nil {
		return s.State(), err
	}
	if s.State() == models.LoggedIn {
		return models.LoggedIn, nil
	}

	if err := s.openHome(ctx); err != nil {
		return s.State(), err
	}
	present, err := s.affordancePresent(ctx)
	if err != nil {
		return s.State(), models.NewScrapeError(models.ErrCodeSession, "failed to inspect login state", err)
	}
	if present {
		s.setState(models.LoggedOut)
	} else {
		s.setState(models.LoggedIn)
	}
	return s.State(), nil
}

// Login opens the login dialog and waits for a human to complete it. An
// expired wait is a normal result, not an error; calling Login again
// resumes waiting.
func (s *Session) Login(ctx context.Context) (models.LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.launch(ctx); err != nil {
		return models.LoginResult{}, err
	}
	if s.State() == models.LoggedIn {
		return s.result(models.LoginAlready, msgLoginAlready), nil
	}

	// ── 1. Land on home ──────────────────────────────────────────────
	if err := s.openHome(ctx); err != nil {
		return models.LoginResult{}, err
	}

	// ── 2. Open the login dialog ─────────────────────────────────────
	el, err := s.firstAffordance(ctx)
	if err != nil {
		return models.LoginResult{}, models.NewScrapeError(models.ErrCodeSession, "failed to inspect login state", err)
	}
	if el == nil {
		s.setState(models.LoggedIn)
		return s.result(models.LoginAlready, msgLoginAlready), nil
	}
	if err := el.Click(ctx); err != nil {
		return models.LoginResult{}, models.NewScrapeError(models.ErrCodeSession, "failed to open login dialog", err)
	}
	s.setState(models.LoggedOut)
	slog.Info("waiting for manual login in the browser window",
		"attempts", s.cfg.LoginPolicy.Attempts,
		"interval", s.cfg.LoginPolicy.Interval,
	)

	// ── 3. Wait for the affordance to disappear ──────────────────────
	if err := s.nav.Wait(ctx, s.cfg.LoginPolicy.Interval); err != nil {
		return models.LoginResult{}, err
	}
	ok, err := s.cfg.LoginPolicy.Poll(ctx, s.nav.Clock(), func(ctx context.Context) (bool, error) {
		present, err := s.affordancePresent(ctx)
		if err != nil {
			slog.Debug("login poll inspection failed", "error", err)
			return false, nil
		}
		return !present, nil
	})
	if err != nil {
		return models.LoginResult{}, err
	}
	if !ok {
		return s.result(models.LoginTimeout, msgLoginTimeout), nil
	}
	s.setState(models.LoggedIn)
	return s.result(models.LoginSuccess, msgLoginSuccess), nil
}

// WithPage ensures the browser is running and lends its page to fn.
// The login state is not checked; callers that need LoggedIn use
// EnsureReady first.
func (s *Session) WithPage(ctx context.Context, fn func(Page) error) error {
	s.mu.Lock()
	if err := s.launch(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	page := s.page
	s.mu.Unlock()
	return fn(page)
}

// Close shuts the browser down. It is safe to call on a session that never
// started.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closer == nil {
		return nil
	}
	slog.Info("session shutting down: closing browser")
	err := s.closer.Close()
	s.page, s.closer = nil, nil
	s.state.Store(int32(models.NotStarted))
	return err
}

func (s *Session) launch(ctx context.Context) error {
	if s.page != nil {
		return nil
	}
	page, closer, err := s.launcher.Launch(ctx)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeSession, "failed to launch browser", err)
	}
	s.page, s.closer = page, closer
	return nil
}

func (s *Session) openHome(ctx context.Context) error {
	if err := s.nav.Goto(ctx, s.page, s.cfg.HomeURL); err != nil {
		return models.NewScrapeError(models.ErrCodeSession, "failed to open home page", err)
	}
	return s.nav.Wait(ctx, s.cfg.HomeDelay)
}

func (s *Session) firstAffordance(ctx context.Context) (Element, error) {
	for _, loc := range s.cfg.LoginAffordance {
		els, err := s.page.Find(ctx, loc)
		if err != nil {
			return nil, err
		}
		if len(els) > 0 {
			return els[0], nil
		}
	}
	return nil, nil
}

func (s *Session) affordancePresent(ctx context.Context) (bool, error) {
	el, err := s.firstAffordance(ctx)
	return el != nil, err
}

func (s *Session) result(status models.LoginStatus, msg string) models.LoginResult {
	return models.LoginResult{Status: status, State: s.State(), Message: msg}
}
