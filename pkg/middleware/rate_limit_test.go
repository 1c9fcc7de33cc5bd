package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/common-server/server-bootstrap/pkg/metrics"
)

func serve(r *gin.Engine, remote string) int {
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(10, 2).Handler())
	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, "10.0.0.1:1234"))
	require.Equal(t, http.StatusOK, serve(r, "10.0.0.1:1234"))
}

func TestRateLimiter_BlocksWhenExceeded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// one token, refilled every 100s
	r.Use(NewRateLimiter(0.01, 1).Handler())
	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	before := testutil.ToFloat64(metrics.StatusRequestsLimited)
	require.Equal(t, http.StatusOK, serve(r, "10.0.0.2:1234"))
	require.Equal(t, http.StatusTooManyRequests, serve(r, "10.0.0.2:1234"))
	require.Equal(t, before+1, testutil.ToFloat64(metrics.StatusRequestsLimited))

	// buckets are per client
	require.Equal(t, http.StatusOK, serve(r, "10.0.0.3:1234"))
}
