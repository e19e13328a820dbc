package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rednote/models"
)

// Crawler runs a click-through crawl.
type Crawler interface {
	CrawlByClick(ctx context.Context, keywords string, noteLimit, commentLimit int) (*models.CrawlReport, error)
}

// PostCrawl returns a handler for POST /crawl.
//
// The crawl runs synchronously: the front end waits for the report and
// then refreshes GET /notes.
func PostCrawl(cr Crawler) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, crawlError(models.NewScrapeError(models.ErrCodeInvalidInput, "缺少关键词参数", err), nil))
			return
		}
		req.Keywords = strings.TrimSpace(req.Keywords)
		if req.Keywords == "" {
			c.JSON(http.StatusBadRequest, crawlError(models.NewScrapeError(models.ErrCodeInvalidInput, "缺少关键词参数", nil), nil))
			return
		}
		req.Defaults()

		// ── 2. Crawl ────────────────────────────────────────────────
		start := time.Now()
		report, err := cr.CrawlByClick(c.Request.Context(), req.Keywords, req.NoteLimit, req.CommentLimit)
		if err != nil {
			se := asScrapeError(err)
			slog.Warn("crawl request failed", "keywords", req.Keywords, "code", se.Code, "error", err)
			c.JSON(mapErrorToStatus(se), crawlError(se, report))
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		slog.Info("crawl request done",
			"keywords", req.Keywords,
			"succeeded", report.Succeeded,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		c.JSON(http.StatusOK, models.CrawlResponse{
			Status: "ok",
			Msg:    "爬虫任务已完成",
			Report: report,
		})
	}
}

func crawlError(se *models.ScrapeError, report *models.CrawlReport) models.CrawlResponse {
	return models.CrawlResponse{
		Status: "error",
		Msg:    se.Message,
		Report: report,
		Error:  se.ToDetail(),
	}
}
