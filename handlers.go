package staticblog

import (
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/eringen/staticblog/views"
)

// handleStatic serves the generated site. Directories resolve to their
// index.html.
func (a *App) handleStatic(c echo.Context) error {
	rel := path.Clean("/" + c.Request().URL.Path)
	full := filepath.Join(a.Config.OutputDir, filepath.FromSlash(rel))
	fi, err := os.Stat(full)
	if err == nil && fi.IsDir() {
		full = filepath.Join(full, "index.html")
		fi, err = os.Stat(full)
	}
	if err != nil || fi.IsDir() {
		return echo.ErrNotFound
	}
	return c.File(full)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		a.renderNotFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.logger.Error("server error", "uri", c.Request().RequestURI, "error", err)
		_ = RenderStatus(c, code, views.ServerError(a.Site.PageData(views.PageMeta{Title: "Server error"}, "")))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// renderNotFound prefers the generated 404 page so both match.
func (a *App) renderNotFound(c echo.Context) {
	if data, err := os.ReadFile(filepath.Join(a.Config.OutputDir, "404.html")); err == nil {
		_ = c.HTMLBlob(http.StatusNotFound, data)
		return
	}
	_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.Site.PageData(views.PageMeta{Title: "Not found"}, "")))
}
