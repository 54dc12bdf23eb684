package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg_miniapp/internal/logging"
)

func TestRateLimitPerIPSweepsIdleClients(t *testing.T) {
	m := NewMiddleware(logging.Discard())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	engine := gin.New()
	engine.Use(m.RateLimitPerIP(1, 1))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusNoContent, hit("198.51.100.1:4000"))
	require.Equal(t, http.StatusNoContent, hit("198.51.100.2:4000"))
	require.Equal(t, 2, m.activeClients())

	now = now.Add(11 * time.Minute)
	assert.Equal(t, http.StatusNoContent, hit("198.51.100.3:4000"))
	assert.Equal(t, 1, m.activeClients())
}
