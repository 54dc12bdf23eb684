package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

type Middleware struct {
	rateLimiters map[string]*clientLimiter
	mu           sync.Mutex
	idleAfter    time.Duration
	lastSweep    time.Time
	now          func() time.Time
	logger       *slog.Logger
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func NewMiddleware(logger *slog.Logger) *Middleware {
	return &Middleware{
		rateLimiters: make(map[string]*clientLimiter),
		idleAfter:    10 * time.Minute,
		now:          time.Now,
		logger:       logger.With("component", "http"),
	}
}

// RateLimitPerIP limits requests per client address
func (m *Middleware) RateLimitPerIP(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		m.mu.Lock()
		now := m.now()
		if now.Sub(m.lastSweep) > m.idleAfter {
			m.sweep(now)
		}
		cl, exists := m.rateLimiters[key]
		if !exists {
			cl = &clientLimiter{limiter: rate.NewLimiter(r, b)}
			m.rateLimiters[key] = cl
		}
		cl.lastUsed = now
		limiter := cl.limiter
		m.mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// sweep drops limiters of clients that stayed idle. Callers hold m.mu.
func (m *Middleware) sweep(now time.Time) {
	for key, cl := range m.rateLimiters {
		if now.Sub(cl.lastUsed) > m.idleAfter {
			delete(m.rateLimiters, key)
		}
	}
	m.lastSweep = now
}

func (m *Middleware) activeClients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rateLimiters)
}

// RequestLogger tags each request with an id and logs it once finished.
func (m *Middleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		m.logger.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// CORSMiddleware allows Cross-Origin requests from anywhere and answers preflights
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// NoCache keeps browsers from caching documents the admin UI just changed.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Next()
	}
}

// RequestSizeLimiter limits request body size to prevent DoS
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
