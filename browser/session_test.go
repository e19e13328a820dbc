package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/browser/browsertest"
	"github.com/use-agent/rednote/config"
	"github.com/use-agent/rednote/models"
)

const (
	homeURL      = "https://example.test/"
	loggedOutDOM = `<html><body><nav><a class="nav">发现</a><button class="login">登录</button></nav></body></html>`
	loggedInDOM  = `<html><body><nav><a class="nav">发现</a><a class="me">我</a></nav></body></html>`
)

func testTiming() config.TimingConfig {
	return config.TimingConfig{
		HomeDelay:        3 * time.Second,
		LoadDelay:        5 * time.Second,
		ContentDelay:     10 * time.Second,
		CardDelay:        3 * time.Second,
		ScrollStep:       time.Second,
		ScrollSettle:     3 * time.Second,
		ActionDelay:      2 * time.Second,
		ExpandIterations: 8,
		ExpandScroll:     500,
		CrawlMoreRounds:  5,
		LoginAttempts:    36,
		LoginInterval:    5 * time.Second,
	}
}

func newSession(page *browsertest.Page, clock *browsertest.Clock, attempts int) (*browser.Session, *browsertest.Launcher) {
	l := &browsertest.Launcher{Page: page}
	nav := browser.NewNavigator(clock, testTiming())
	s := browser.NewSession(l, nav, browser.SessionConfig{
		HomeURL:         homeURL,
		LoginAffordance: []browser.Locator{browser.ExactText("*", "登录")},
		HomeDelay:       3 * time.Second,
		LoginPolicy:     browser.RetryPolicy{Attempts: attempts, Interval: 5 * time.Second},
	})
	return s, l
}

func TestEnsureReadyTransitionsToLoggedIn(t *testing.T) {
	page := browsertest.NewPage(map[string]string{homeURL: loggedOutDOM})
	clock := &browsertest.Clock{}
	s, l := newSession(page, clock, 36)
	ctx := context.Background()

	if got := s.State(); got != models.NotStarted {
		t.Fatalf("initial state = %v, want not_started", got)
	}

	st, err := s.EnsureReady(ctx)
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if st != models.LoggedOut {
		t.Fatalf("state = %v, want logged_out", st)
	}

	// The human logs in; the affordance is gone on the next inspection.
	page.Pages[homeURL] = loggedInDOM

	st, err = s.EnsureReady(ctx)
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if st != models.LoggedIn {
		t.Fatalf("state = %v, want logged_in", st)
	}

	navs := len(page.Navigations)
	if _, err := s.EnsureReady(ctx); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(page.Navigations) != navs {
		t.Errorf("EnsureReady re-navigated after LoggedIn: %v", page.Navigations)
	}
	if l.Launches != 1 {
		t.Errorf("Launches = %d, want 1", l.Launches)
	}
	if diff := cmp.Diff([]time.Duration{3 * time.Second, 3 * time.Second}, clock.Sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestLoginWhenLoggedInDoesNothing(t *testing.T) {
	page := browsertest.NewPage(map[string]string{homeURL: loggedInDOM})
	clock := &browsertest.Clock{}
	s, _ := newSession(page, clock, 36)
	ctx := context.Background()

	if _, err := s.EnsureReady(ctx); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	navs, sleeps := len(page.Navigations), len(clock.Sleeps)

	res, err := s.Login(ctx)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Status != models.LoginAlready || res.State != models.LoggedIn {
		t.Errorf("Login = %+v, want already/logged_in", res)
	}
	if len(page.Clicks) != 0 {
		t.Errorf("Login clicked %v", page.Clicks)
	}
	if len(page.Navigations) != navs || len(clock.Sleeps) != sleeps {
		t.Errorf("Login navigated or polled: navigations %d->%d, sleeps %d->%d",
			navs, len(page.Navigations), sleeps, len(clock.Sleeps))
	}
}

func TestLoginWithoutAffordanceIsAlready(t *testing.T) {
	page := browsertest.NewPage(map[string]string{homeURL: loggedInDOM})
	s, _ := newSession(page, &browsertest.Clock{}, 36)

	res, err := s.Login(context.Background())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Status != models.LoginAlready {
		t.Errorf("Status = %q, want already", res.Status)
	}
	if s.State() != models.LoggedIn {
		t.Errorf("State = %v, want logged_in", s.State())
	}
}

func TestLoginSucceedsWhenAffordanceDisappears(t *testing.T) {
	page := browsertest.NewPage(map[string]string{homeURL: loggedOutDOM})
	clock := &browsertest.Clock{}
	s, _ := newSession(page, clock, 36)

	// The first attempt is abandoned by the user.
	res, err := s.Login(context.Background())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Status != models.LoginTimeout {
		t.Fatalf("Status = %q, want timeout while the affordance stays", res.Status)
	}

	page.OnClick = func(p *browsertest.Page, el *goquery.Selection) {
		p.SetHTML(loggedInDOM)
	}
	res, err = s.Login(context.Background())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Status != models.LoginSuccess || res.State != models.LoggedIn {
		t.Errorf("Login = %+v, want success/logged_in", res)
	}
	if diff := cmp.Diff([]string{"登录", "登录"}, page.Clicks); diff != "" {
		t.Errorf("clicks mismatch (-want +got):\n%s", diff)
	}
}

func TestLoginTimeoutUsesPolicy(t *testing.T) {
	page := browsertest.NewPage(map[string]string{homeURL: loggedOutDOM})
	clock := &browsertest.Clock{}
	s, _ := newSession(page, clock, 4)

	res, err := s.Login(context.Background())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Status != models.LoginTimeout || res.State != models.LoggedOut {
		t.Errorf("Login = %+v, want timeout/logged_out", res)
	}
	want := []time.Duration{3 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second}
	if diff := cmp.Diff(want, clock.Sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestEnsureReadyErrors(t *testing.T) {
	tests := []struct {
		name     string
		launch   error
		navigate error
	}{
		{name: "launch failure", launch: errors.New("no chromium")},
		{name: "navigation failure", navigate: errors.New("net::ERR_NAME_NOT_RESOLVED")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage(map[string]string{homeURL: loggedOutDOM})
			if tt.navigate != nil {
				page.Failing[homeURL] = tt.navigate
			}
			s, l := newSession(page, &browsertest.Clock{}, 36)
			l.Err = tt.launch

			_, err := s.EnsureReady(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if code := models.CodeOf(err); code != models.ErrCodeSession {
				t.Errorf("code = %q, want %q", code, models.ErrCodeSession)
			}
			if s.State() == models.LoggedIn {
				t.Error("failure must not report logged_in")
			}
		})
	}
}

func TestCloseResetsState(t *testing.T) {
	page := browsertest.NewPage(map[string]string{homeURL: loggedInDOM})
	s, l := newSession(page, &browsertest.Clock{}, 36)

	if err := s.Close(); err != nil {
		t.Fatalf("Close before start: %v", err)
	}
	if _, err := s.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l.Closes != 1 {
		t.Errorf("Closes = %d, want 1", l.Closes)
	}
	if s.State() != models.NotStarted {
		t.Errorf("State = %v, want not_started", s.State())
	}
}
