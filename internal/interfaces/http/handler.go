package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"

	"tg_miniapp/internal/entities"
	"tg_miniapp/internal/usecases"
)

// Fixed rewrites of the static server.
var rootRewrites = map[string]string{
	"/":      "index.html",
	"/admin": "admin.html",
}

type Config struct {
	WebRoot      string
	MiniAppURL   string
	MaxBodyBytes int64
	SaveRate     float64
	SaveBurst    int
	Gatherer     prometheus.Gatherer // nil means the default registry
}

type Handler struct {
	documents  *usecases.DocumentUsecase
	webRoot    string
	miniAppURL string
	logger     *slog.Logger
}

func NewHandler(documents *usecases.DocumentUsecase, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		documents:  documents,
		webRoot:    cfg.WebRoot,
		miniAppURL: cfg.MiniAppURL,
		logger:     logger.With("component", "admin"),
	}
}

func SetupRoutes(r *gin.Engine, documents *usecases.DocumentUsecase, cfg Config, middleware *Middleware, logger *slog.Logger) {
	h := NewHandler(documents, cfg, logger)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Use(middleware.RequestLogger())
	r.Use(NoCache())
	r.Use(CORSMiddleware())
	r.Use(RequestSizeLimiter(cfg.MaxBodyBytes))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(middleware.RateLimitPerIP(rate.Limit(cfg.SaveRate), cfg.SaveBurst))
	{
		api.POST("/catalog", h.SaveCatalog)
		api.POST("/config", h.SaveConfig)
		api.GET("/qr", h.MiniAppQRCode)
	}

	r.NoRoute(h.ServeStatic)
}

// SaveCatalog replaces the catalog, optionally for ?client=<slug>.
func (h *Handler) SaveCatalog(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	res, err := h.documents.SaveCatalog(c.Request.Context(), c.Query("client"), body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("catalog saved (%d products)", res.Count),
		"count":   res.Count,
		"path":    res.Path,
	})
}

// SaveConfig replaces the mini-app configuration, optionally for ?client=<slug>.
func (h *Handler) SaveConfig(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	res, err := h.documents.SaveConfig(c.Request.Context(), c.Query("client"), body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "path": res.Path})
}

// MiniAppQRCode renders the mini-app link, with ?client=<slug> applied, as a PNG.
func (h *Handler) MiniAppQRCode(c *gin.Context) {
	client := c.Query("client")
	if client != "" && !entities.ValidSlug(client) {
		h.writeError(c, usecases.ErrInvalidClient)
		return
	}

	link, err := usecases.BuildMiniAppURL(h.miniAppURL, client)
	if err != nil {
		h.writeError(c, err)
		return
	}

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		h.writeError(c, fmt.Errorf("encode qr code: %w", err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ServeStatic serves files from the web root for every unmatched GET.
func (h *Handler) ServeStatic(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
		return
	}

	rel, ok := rootRewrites[c.Request.URL.Path]
	if !ok {
		rel = path.Clean("/" + c.Request.URL.Path)
	}
	if hasHiddenSegment(rel) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
		return
	}
	full := filepath.Join(h.webRoot, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
	}
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
		return
	}

	c.File(full)
}

// hasHiddenSegment reports whether any element of the slash path starts with
// a dot, such as .env, .git/config or a pending temp file.
func hasHiddenSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func (h *Handler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "request body too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read request body"})
		return nil, false
	}
	return body, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, gin.H{"success": false, "error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, usecases.ErrInvalidJSON),
		errors.Is(err, usecases.ErrInvalidCatalog),
		errors.Is(err, usecases.ErrInvalidConfig),
		errors.Is(err, usecases.ErrInvalidClient):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
