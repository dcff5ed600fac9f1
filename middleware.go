package staticblog

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// contentSecurityPolicy allows only same-origin scripts: the reveal and
// beacon scripts plus the inline JSON-LD blocks.
const contentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' https: data:; font-src 'self'; connect-src 'self'; frame-ancestors 'none'"

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)
	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())

	e.Use(
		requestLogger(a.logger),
		middleware.Recover(),
		middleware.GzipWithConfig(middleware.GzipConfig{
			Level: 5,
			Skipper: func(c echo.Context) bool {
				return isBinaryAsset(c.Request().URL.Path)
			},
		}),
		middleware.SecureWithConfig(middleware.SecureConfig{
			XSSProtection:         "1; mode=block",
			ContentTypeNosniff:    "nosniff",
			XFrameOptions:         "DENY",
			ReferrerPolicy:        "strict-origin-when-cross-origin",
			ContentSecurityPolicy: contentSecurityPolicy,
			HSTSMaxAge:            31536000,
		}),
		session.Middleware(a.newSessionStore()),
		a.csrf(),
		middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
			RedirectCode: http.StatusMovedPermanently,
			Skipper: func(c echo.Context) bool {
				p := c.Request().URL.Path
				return isAPIPath(p) || path.Ext(p) != ""
			},
		}),
		cacheControlMiddleware,
	)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Int64("duration_ms", v.Latency.Milliseconds()),
			)
			return nil
		},
	})
}

// csrf protects the admin forms. The JSON endpoints under /api/ are
// called by the beacon script and carry no session.
func (a *App) csrf() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token,form:_csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   a.Config.CookieSecure,
		CookieHTTPOnly: true,
		Skipper: func(c echo.Context) bool {
			return isAPIPath(c.Request().URL.Path)
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.String(http.StatusForbidden, "Forbidden")
		},
	})
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", cachePolicy(c.Request().URL.Path))
		return next(c)
	}
}

// cachePolicy returns the Cache-Control value for a request path. Pages
// carry view counts fixed at build time, so they stay fresh for an hour.
func cachePolicy(p string) string {
	switch {
	case strings.HasPrefix(p, "/admin") || isAPIPath(p):
		return "no-store"
	case strings.HasPrefix(p, "/assets/") || isBinaryAsset(p):
		return "public, max-age=86400"
	case p == "/sitemap.xml" || p == "/feed.xml" || p == "/robots.txt":
		return "public, max-age=86400"
	default:
		return "public, max-age=3600"
	}
}

func isAPIPath(p string) bool {
	return strings.HasPrefix(p, "/api/") || p == "/metrics"
}

// isBinaryAsset reports whether p names an already-compressed file.
func isBinaryAsset(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".avif", ".woff", ".woff2", ".ico":
		return true
	}
	return false
}
