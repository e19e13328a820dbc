package api

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/use-agent/rednote/api/handler"
	"github.com/use-agent/rednote/api/middleware"
	"github.com/use-agent/rednote/config"
)

// Backend is the scraper surface the HTTP API drives.
type Backend interface {
	handler.Crawler
	handler.StateReporter
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS
//	Notes:   Auth (if enabled)
//	Crawl:   Auth (if enabled) → RateLimit
//
// Health is outside auth so monitoring probes always work.
func NewRouter(b Backend, notes handler.NoteStore, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(cors.New(corsConfig(cfg.CORS)))

	r.GET("/health", handler.Health(b, startTime))

	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}

	protected.GET("/notes", handler.ListNotes(notes))
	protected.GET("/notes_img/:filename", handler.NoteFile(notes))
	protected.POST("/crawl", middleware.RateLimit(cfg.RateLimit), handler.PostCrawl(b))

	return r
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(c.AllowOrigins) == 0 || slices.Contains(c.AllowOrigins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowOrigins
	}
	return cc
}
