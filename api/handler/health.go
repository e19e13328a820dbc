package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rednote/models"
)

// Version is reported by GET /health.
const Version = "0.1.0"

// StateReporter exposes the browser session's login state.
type StateReporter interface {
	State() models.LoginState
}

// Health returns a handler for GET /health.
// Status is "degraded" while the session is known to be logged out.
func Health(sr StateReporter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := sr.State()

		status := "healthy"
		if state == models.LoggedOut {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			LoginState: state,
			Version:    Version,
		})
	}
}
