package analytics

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/staticblog/viewcount"
)

// Handler serves the collect and view-count endpoints.
type Handler struct {
	store          *Store
	collectLimiter *rateLimiter
	now            func() time.Time
}

// NewHandler creates a Handler. The collect endpoint is rate-limited to 60
// requests per IP per minute.
func NewHandler(store *Store) *Handler {
	return &Handler{
		store:          store,
		collectLimiter: newRateLimiter(60, time.Minute),
		now:            time.Now,
	}
}

// Close stops background work owned by the handler.
func (h *Handler) Close() {
	h.collectLimiter.stop()
}

// CollectRequest is the beacon body posted by pages.
type CollectRequest struct {
	Path       string `json:"path"`
	Referrer   string `json:"referrer"`
	ScreenSize string `json:"screen_size"`
	UserAgent  string `json:"user_agent"`
}

const (
	maxPathLen       = 2048
	maxReferrerLen   = 2048
	maxScreenSizeLen = 32
	maxUserAgentLen  = 512
)

func validateCollectRequest(req *CollectRequest) error {
	switch {
	case req.Path == "" || !strings.HasPrefix(req.Path, "/"):
		return fmt.Errorf("path must be absolute")
	case len(req.Path) > maxPathLen:
		return fmt.Errorf("path exceeds maximum length of %d", maxPathLen)
	case len(req.Referrer) > maxReferrerLen:
		return fmt.Errorf("referrer exceeds maximum length of %d", maxReferrerLen)
	case len(req.ScreenSize) > maxScreenSizeLen:
		return fmt.Errorf("screen_size exceeds maximum length of %d", maxScreenSizeLen)
	case len(req.UserAgent) > maxUserAgentLen:
		return fmt.Errorf("user_agent exceeds maximum length of %d", maxUserAgentLen)
	}
	return nil
}

// Collect records one page view.
func (h *Handler) Collect(c echo.Context) error {
	if !h.collectLimiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if err := validateCollectRequest(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	ua := req.UserAgent
	if ua == "" {
		ua = c.Request().UserAgent()
	}
	ip := c.RealIP()
	salt := h.store.Salt()
	ctx := c.Request().Context()

	if bot := BotName(ua); bot != "" {
		if err := h.store.SaveBotVisit(ctx, BotVisit{
			BotName:   bot,
			IPHash:    HashIP(salt, ip),
			UserAgent: ua,
			Path:      req.Path,
			Timestamp: h.now(),
		}); err != nil {
			c.Logger().Errorf("save bot visit: %v", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	browser, device := ParseUserAgent(ua)
	if err := h.store.SaveVisit(ctx, Visit{
		VisitorID:  VisitorID(salt, ip, ua),
		IPHash:     HashIP(salt, ip),
		Browser:    browser,
		Device:     device,
		Path:       req.Path,
		Referrer:   CleanReferrer(req.Referrer),
		ScreenSize: req.ScreenSize,
		Timestamp:  h.now(),
	}); err != nil {
		c.Logger().Errorf("save visit: %v", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// BlogViews returns the view counter of one post in the shape static
// builds expect.
func (h *Handler) BlogViews(c echo.Context) error {
	slug := strings.TrimSpace(c.QueryParam("slug"))
	if slug == "" {
		return c.JSON(http.StatusBadRequest, viewcount.Response{Status: false, Message: "slug is required"})
	}
	n, err := h.store.CountViews(c.Request().Context(), BlogPaths(slug)...)
	if err != nil {
		c.Logger().Errorf("count views for %s: %v", slug, err)
		return c.JSON(http.StatusInternalServerError, viewcount.Response{Status: false, Message: "internal error"})
	}
	return c.JSON(http.StatusOK, viewcount.Response{Status: true, Message: "ok", Data: n})
}

// TopPosts lists the most viewed posts as JSON. The limit query parameter
// defaults to 10.
func (h *Handler) TopPosts(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}
	stats, err := h.store.TopPages(c.Request().Context(), "/blog/", limit)
	if err != nil {
		c.Logger().Errorf("top pages: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, stats)
}

// RegisterRoutes mounts the public endpoints on e and the reporting
// endpoints behind admin.
func (h *Handler) RegisterRoutes(e *echo.Echo, admin echo.MiddlewareFunc) {
	e.POST("/api/analytics/collect", h.Collect)
	e.GET(viewcount.Path, h.BlogViews)
	e.GET("/admin/views/", h.TopPosts, admin)
}
