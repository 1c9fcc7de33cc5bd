package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/common-server/server-bootstrap/internal/report"
)

var startTime = time.Now()

// RegisterStatusRoutes exposes the outcome of the last bootstrap run.
// - GET /health  -> liveness
// - GET /ready   -> 200 once a run succeeded and verification found no drift
// - GET /status  -> the last report
func RegisterStatusRoutes(r *gin.Engine, latest *report.Latest) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		rep := latest.Get()
		uptime := time.Since(startTime).String()
		if rep == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "bootstrap pending", "uptime": uptime})
			return
		}
		if !rep.Healthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "bootstrap": rep.Status, "error": rep.Error, "drift": rep.Drift, "uptime": uptime})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "runId": rep.RunID, "uptime": uptime})
	})

	r.GET("/status", func(c *gin.Context) {
		rep := latest.Get()
		if rep == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no bootstrap run yet"})
			return
		}
		c.JSON(http.StatusOK, rep)
	})
}
