package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/rednote/config"
	"github.com/use-agent/rednote/models"
	"github.com/use-agent/rednote/store"
)

type fakeBackend struct {
	state  models.LoginState
	report *models.CrawlReport
	err    error

	calls []crawlCall
}

type crawlCall struct {
	Keywords     string
	NoteLimit    int
	CommentLimit int
}

func (f *fakeBackend) CrawlByClick(ctx context.Context, keywords string, noteLimit, commentLimit int) (*models.CrawlReport, error) {
	f.calls = append(f.calls, crawlCall{keywords, noteLimit, commentLimit})
	return f.report, f.err
}

func (f *fakeBackend) State() models.LoginState { return f.state }

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		CORS:      config.CORSConfig{AllowOrigins: []string{"*"}},
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return st
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	tests := []struct {
		state      models.LoginState
		wantStatus string
		wantState  string
	}{
		{models.NotStarted, "healthy", "not_started"},
		{models.LoggedIn, "healthy", "logged_in"},
		{models.LoggedOut, "degraded", "logged_out"},
	}
	for _, tt := range tests {
		t.Run(tt.wantState, func(t *testing.T) {
			r := NewRouter(&fakeBackend{state: tt.state}, newTestStore(t), testConfig(), time.Now())

			w := do(t, r, http.MethodGet, "/health", "", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			got := decode[map[string]any](t, w)
			if got["status"] != tt.wantStatus || got["login_state"] != tt.wantState {
				t.Errorf("health = %v, want status %s and login_state %s", got, tt.wantStatus, tt.wantState)
			}
		})
	}
}

func TestPostCrawl(t *testing.T) {
	report := &models.CrawlReport{Keywords: "口红", Target: 5, Succeeded: 5, Cards: []models.CardResult{}}
	b := &fakeBackend{report: report}
	r := NewRouter(b, newTestStore(t), testConfig(), time.Now())

	w := do(t, r, http.MethodPost, "/crawl", `{"keywords":" 口红 "}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	got := decode[models.CrawlResponse](t, w)
	want := models.CrawlResponse{Status: "ok", Msg: "爬虫任务已完成", Report: report}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]crawlCall{{"口红", 5, 1}}, b.calls); diff != "" {
		t.Errorf("defaults not applied (-want +got):\n%s", diff)
	}

	do(t, r, http.MethodPost, "/crawl", `{"keywords":"口红","note_limit":3,"comment_limit":4}`, nil)
	if diff := cmp.Diff(crawlCall{"口红", 3, 4}, b.calls[1]); diff != "" {
		t.Errorf("limits not passed through (-want +got):\n%s", diff)
	}
}

func TestPostCrawlRejectsMissingKeywords(t *testing.T) {
	for _, body := range []string{`{}`, `{"keywords":"   "}`, `not json`} {
		t.Run(body, func(t *testing.T) {
			b := &fakeBackend{}
			r := NewRouter(b, newTestStore(t), testConfig(), time.Now())

			w := do(t, r, http.MethodPost, "/crawl", body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			got := decode[models.CrawlResponse](t, w)
			if got.Status != "error" || got.Error == nil || got.Error.Code != models.ErrCodeInvalidInput {
				t.Errorf("response = %+v, want an INVALID_INPUT error", got)
			}
			if len(b.calls) != 0 {
				t.Errorf("crawler called %d times", len(b.calls))
			}
		})
	}
}

func TestPostCrawlErrors(t *testing.T) {
	partial := &models.CrawlReport{Keywords: "口红", Target: 5, Succeeded: 1, Cards: []models.CardResult{
		{Title: "a", Status: models.CardSuccess},
	}}
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"not logged in", models.NewScrapeError(models.ErrCodeNotLoggedIn, "请先登录小红书账号", nil), http.StatusConflict, "请先登录小红书账号"},
		{"timeout", models.NewScrapeError(models.ErrCodeTimeout, "crawl interrupted", context.Canceled), http.StatusGatewayTimeout, "crawl interrupted"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&fakeBackend{report: partial, err: tt.err}, newTestStore(t), testConfig(), time.Now())

			w := do(t, r, http.MethodPost, "/crawl", `{"keywords":"口红"}`, nil)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			got := decode[models.CrawlResponse](t, w)
			if got.Status != "error" || got.Msg != tt.wantMsg {
				t.Errorf("response = %+v, want error %q", got, tt.wantMsg)
			}
			if got.Report == nil || got.Report.Succeeded != 1 {
				t.Errorf("partial report not returned: %+v", got.Report)
			}
		})
	}
}

func TestNotes(t *testing.T) {
	st := newTestStore(t)
	files, err := st.Save(models.NoteRecord{
		Title:       "秋冬口红",
		Author:      "小美",
		PublishedAt: "今天",
		Body:        "正文",
	}, 1, []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	r := NewRouter(&fakeBackend{}, st, testConfig(), time.Now())

	w := do(t, r, http.MethodGet, "/notes", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /notes status = %d", w.Code)
	}
	notes := decode[[]models.NoteFile](t, w)
	if len(notes) != 1 || notes[0].Filename != files[0] || !strings.Contains(notes[0].Content, "# 秋冬口红") {
		t.Errorf("notes = %+v, want the saved record", notes)
	}

	w = do(t, r, http.MethodGet, "/notes_img/"+files[1], "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET image status = %d", w.Code)
	}
	if w.Body.String() != "png-bytes" {
		t.Errorf("image body = %q", w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/notes_img/missing.png", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", w.Code)
	}
	if got := decode[models.ErrorResponse](t, w); got.Error == nil || got.Error.Code != models.ErrCodeNotFound {
		t.Errorf("missing file body = %+v", got)
	}
}

func TestNotesEmpty(t *testing.T) {
	r := NewRouter(&fakeBackend{}, newTestStore(t), testConfig(), time.Now())

	w := do(t, r, http.MethodGet, "/notes", "", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("GET /notes = %d %s, want 200 []", w.Code, w.Body)
	}
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"secret"}}
	r := NewRouter(&fakeBackend{report: &models.CrawlReport{}}, newTestStore(t), cfg, time.Now())

	tests := []struct {
		name   string
		method string
		path   string
		header map[string]string
		want   int
	}{
		{"health is open", http.MethodGet, "/health", nil, http.StatusOK},
		{"missing key", http.MethodGet, "/notes", nil, http.StatusUnauthorized},
		{"wrong key", http.MethodGet, "/notes", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", http.MethodGet, "/notes", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", http.MethodGet, "/notes", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"crawl needs key", http.MethodPost, "/crawl", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ""
			if tt.method == http.MethodPost {
				body = `{"keywords":"口红"}`
			}
			if w := do(t, r, tt.method, tt.path, body, tt.header); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestCrawlRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	b := &fakeBackend{report: &models.CrawlReport{}}
	r := NewRouter(b, newTestStore(t), cfg, time.Now())

	if w := do(t, r, http.MethodPost, "/crawl", `{"keywords":"口红"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("first crawl status = %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/crawl", `{"keywords":"口红"}`, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second crawl status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}
	if len(b.calls) != 1 {
		t.Errorf("crawler called %d times, want 1", len(b.calls))
	}

	// Reads are not rate limited.
	for i := 0; i < 3; i++ {
		if w := do(t, r, http.MethodGet, "/notes", "", nil); w.Code != http.StatusOK {
			t.Errorf("GET /notes #%d status = %d", i, w.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	r := NewRouter(&fakeBackend{}, newTestStore(t), testConfig(), time.Now())

	w := do(t, r, http.MethodGet, "/notes", "", map[string]string{"Origin": "http://localhost:3000"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
