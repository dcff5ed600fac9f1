package staticblog

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	sessionName   = "admin_session"
	sessionMaxAge = 12 * 60 * 60
	authKey       = "authenticated"
)

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   sessionMaxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// IsAdmin reports whether the request carries an authenticated admin session.
func IsAdmin(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	auth, ok := sess.Values[authKey].(bool)
	return ok && auth
}

func setAdminSession(c echo.Context, authenticated bool) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	if authenticated {
		sess.Values[authKey] = true
		sess.Options.MaxAge = sessionMaxAge
	} else {
		delete(sess.Values, authKey)
		sess.Options.MaxAge = -1
	}
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken returns the CSRF token the middleware stored on c.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
