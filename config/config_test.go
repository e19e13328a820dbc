package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 5001 {
		t.Errorf("Server.Port = %d, want 5001", cfg.Server.Port)
	}
	if cfg.Browser.Headless {
		t.Error("Browser.Headless should default to false")
	}
	if cfg.Browser.OpTimeout != 60*time.Second {
		t.Errorf("Browser.OpTimeout = %v, want 60s", cfg.Browser.OpTimeout)
	}
	if cfg.Timing.LoginAttempts != 36 || cfg.Timing.LoginInterval != 5*time.Second {
		t.Errorf("login policy = %d x %v, want 36 x 5s", cfg.Timing.LoginAttempts, cfg.Timing.LoginInterval)
	}
	if cfg.Timing.ExpandIterations != 8 || cfg.Timing.ExpandScroll != 500 {
		t.Errorf("expand = %d x %dpx, want 8 x 500px", cfg.Timing.ExpandIterations, cfg.Timing.ExpandScroll)
	}
	if cfg.Store.DataDir != "scraped_notes" {
		t.Errorf("Store.DataDir = %q", cfg.Store.DataDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REDNOTE_PORT", "9000")
	t.Setenv("REDNOTE_HEADLESS", "true")
	t.Setenv("REDNOTE_LOAD_DELAY", "250ms")
	t.Setenv("REDNOTE_API_KEYS", " a, b ,,c ")
	t.Setenv("REDNOTE_RATE_RPS", "not-a-number")

	cfg := Load()

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if !cfg.Browser.Headless {
		t.Error("Browser.Headless = false, want true")
	}
	if cfg.Timing.LoadDelay != 250*time.Millisecond {
		t.Errorf("Timing.LoadDelay = %v, want 250ms", cfg.Timing.LoadDelay)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, cfg.Auth.APIKeys); diff != "" {
		t.Errorf("Auth.APIKeys mismatch (-want +got):\n%s", diff)
	}
	if cfg.RateLimit.RequestsPerSecond != 1.0 {
		t.Errorf("unparseable value should fall back, got %v", cfg.RateLimit.RequestsPerSecond)
	}
}
