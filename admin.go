package staticblog

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/staticblog/content"
	"github.com/eringen/staticblog/views"
)

// requireAdmin redirects anonymous requests to the login page.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) {
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return next(c)
	}
}

func (a *App) adminPage() views.PageData {
	return a.Site.PageData(views.PageMeta{Title: "Admin"}, "")
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, views.AdminLogin(false, CsrfToken(c), a.adminPage()))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c, true); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return RenderStatus(c, http.StatusUnauthorized, views.AdminLogin(true, CsrfToken(c), a.adminPage()))
}

func handleAdminLogout(c echo.Context) error {
	if err := setAdminSession(c, false); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminRebuild(c echo.Context) error {
	_, err := a.Rebuild(c.Request().Context())
	switch {
	case errors.Is(err, ErrBuildInProgress):
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=A+build+is+already+running.")
	case err != nil:
		a.logger.Error("rebuild failed", "error", err)
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Build+failed.")
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=Site+rebuilt.")
}

// allPostsLister is implemented by repositories that can list drafts.
type allPostsLister interface {
	ListAllPosts(ctx context.Context) ([]content.Header, error)
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	var (
		posts []content.Header
		err   error
	)
	if all, ok := a.repo.(allPostsLister); ok {
		posts, err = all.ListAllPosts(ctx)
	} else {
		posts, err = a.repo.ListPosts(ctx)
	}
	if err != nil {
		return err
	}

	d := views.Dashboard{
		Posts:     posts,
		LastBuild: a.LastBuild(),
		Message:   msg,
		CSRFToken: CsrfToken(c),
	}
	if a.analyticsStore != nil {
		top, err := a.analyticsStore.TopPages(ctx, "/blog/", 10)
		if err != nil {
			return err
		}
		for _, p := range top {
			d.TopPages = append(d.TopPages, views.PageViews{Path: p.Path, Views: p.Views})
		}
	}
	return Render(c, views.AdminDashboard(d, a.adminPage()))
}
