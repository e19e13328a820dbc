package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/rednote/config"
	"github.com/use-agent/rednote/scraper"
)

func main() {
	cfg := config.Load()

	// stdout carries the protocol.
	initLogger(cfg.Log)

	sc, err := scraper.Open(cfg)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := sc.Close(); err != nil {
			slog.Error("closing browser session", "error", err)
		}
	}()

	s := server.NewMCPServer(
		"xiaohongshu",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	registerTools(s, sc)

	slog.Info("rednote MCP server ready", "data_dir", cfg.Store.DataDir, "headless", cfg.Browser.Headless)
	if err := server.ServeStdio(s); err != nil {
		slog.Error("MCP server error", "error", err)
	}
}

// initLogger configures slog on stderr based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
