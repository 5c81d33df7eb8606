package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/trustboard/internal/fetch"
	"github.com/mbd888/trustboard/internal/fetchlog"
	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/view"
)

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	report := s.health.Report(c.Request.Context())
	status := http.StatusOK
	if !s.healthy.Load() {
		status = http.StatusServiceUnavailable
		report.Status = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":    report.Status,
		"oracle":    s.oracle.BaseURL(),
		"checks":    report.Checks,
		"timestamp": report.CheckedAt.Format(time.RFC3339),
	})
}

// livenessHandler is the Kubernetes liveness check. It never consults the
// oracle: a broken upstream must not restart the dashboard.
func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	report := s.health.Report(c.Request.Context())
	if report.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

// -----------------------------------------------------------------------------
// Views
// -----------------------------------------------------------------------------

// overviewHandler serves the settled overview model. Upstream failures are
// part of the model, so the response is always 200.
func (s *Server) overviewHandler(c *gin.Context) {
	ctx := c.Request.Context()
	model := view.LoadOverview(ctx, s.oracle, logging.L(ctx))
	c.JSON(http.StatusOK, model)
}

func (s *Server) leaderboardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	f := fetch.Filter{
		Category: c.Query("category"),
		Chain:    c.Query("chain"),
	}.Normalize()

	model := view.LoadLeaderboard(ctx, s.oracle, logging.L(ctx), f)
	c.JSON(http.StatusOK, model)
}

// -----------------------------------------------------------------------------
// Debug
// -----------------------------------------------------------------------------

// fetchesHandler lists recent oracle calls with the breaker and live
// session state.
func (s *Server) fetchesHandler(c *gin.Context) {
	limit := fetchlog.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer",
			})
			return
		}
		limit = n
	}
	limit = fetchlog.ClampLimit(limit)

	entries, err := s.fetchLog.Recent(c.Request.Context(), c.Query("endpoint"), limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to read fetch log", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to read fetch log",
		})
		return
	}
	if entries == nil {
		entries = []*fetchlog.Entry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"fetches":  entries,
		"count":    len(entries),
		"limit":    limit,
		"breakers": s.breaker.Snapshot(),
		"realtime": s.realtimeHub.Stats(),
	})
}
