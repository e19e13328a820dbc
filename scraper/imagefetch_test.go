package scraper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/use-agent/rednote/scraper"
)

func TestHTTPImageFetcher(t *testing.T) {
	var gotReferer, gotLang, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotLang = r.Header.Get("Accept-Language")
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg-bytes"))
		case "/big.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte(strings.Repeat("x", 64)))
		case "/login":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html>请登录</html>"))
		case "/empty.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := scraper.NewHTTPImageFetcher("", "zh-CN,zh;q=0.9", 32)
	ctx := context.Background()

	data, err := f.Fetch(ctx, srv.URL+"/ok.jpg", "https://www.xiaohongshu.com/explore/1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("data = %q, want jpeg-bytes", data)
	}
	if gotReferer != "https://www.xiaohongshu.com/explore/1" {
		t.Errorf("Referer = %q", gotReferer)
	}
	if gotLang != "zh-CN,zh;q=0.9" {
		t.Errorf("Accept-Language = %q", gotLang)
	}
	if !strings.Contains(gotUA, "Chrome/") {
		t.Errorf("User-Agent = %q, want a Chrome UA", gotUA)
	}

	failures := []struct {
		name string
		src  string
		want string
	}{
		{"over the size cap", srv.URL + "/big.jpg", "exceeds 32 bytes"},
		{"not found", srv.URL + "/missing.jpg", "HTTP 404"},
		{"html instead of image", srv.URL + "/login", "not an image"},
		{"empty body", srv.URL + "/empty.jpg", "empty body"},
		{"unsupported scheme", "data:image/png;base64,AAAA", "unsupported image source"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(ctx, tt.src, "")
			if err == nil {
				t.Fatal("Fetch returned nil error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}
