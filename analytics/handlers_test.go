package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/staticblog/viewcount"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestServer(t *testing.T, s *Store) *echo.Echo {
	t.Helper()
	h := NewHandler(s)
	t.Cleanup(h.Close)
	e := echo.New()
	h.RegisterRoutes(e, func(next echo.HandlerFunc) echo.HandlerFunc { return next })
	return e
}

func collect(e *echo.Echo, body, ua string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/collect", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", ua)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func blogViews(t *testing.T, e *echo.Echo, slug string) (int, viewcount.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, viewcount.Path+"?slug="+slug, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var resp viewcount.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

func TestCollectAndBlogViews(t *testing.T) {
	s := setupTestStore(t)
	e := newTestServer(t, s)

	for _, p := range []string{"/blog/hello-world/", "/blog/hello-world", "/blog/other/", "/"} {
		rec := collect(e, `{"path":"`+p+`"}`, firefoxUA)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	// Crawlers are recorded separately and never counted.
	collect(e, `{"path":"/blog/hello-world/"}`, "Googlebot/2.1")

	code, resp := blogViews(t, e, "hello-world")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Status)
	assert.Equal(t, 2, resp.Data)

	_, resp = blogViews(t, e, "never-visited")
	assert.Equal(t, 0, resp.Data)
}

func TestBlogViewsDecodesWithClient(t *testing.T) {
	s := setupTestStore(t)
	e := newTestServer(t, s)
	collect(e, `{"path":"/blog/a/"}`, firefoxUA)

	srv := httptest.NewServer(e)
	defer srv.Close()

	res := viewcount.New(srv.URL).Fetch(context.Background(), "a")
	require.True(t, res.OK, "err: %v", res.Err)
	assert.Equal(t, 1, res.Value)
}

func TestBlogViewsRequiresSlug(t *testing.T) {
	e := newTestServer(t, setupTestStore(t))
	code, resp := blogViews(t, e, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Status)
}

func TestCollectRejectsInvalid(t *testing.T) {
	e := newTestServer(t, setupTestStore(t))
	assert.Equal(t, http.StatusBadRequest, collect(e, `{"path":"relative"}`, firefoxUA).Code)
	assert.Equal(t, http.StatusBadRequest, collect(e, `{"path":"/`+strings.Repeat("a", maxPathLen)+`"}`, firefoxUA).Code)
	assert.Equal(t, http.StatusBadRequest, collect(e, `not json`, firefoxUA).Code)
}

func TestCollectHonoursDoNotTrack(t *testing.T) {
	s := setupTestStore(t)
	e := newTestServer(t, s)
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/collect", strings.NewReader(`{"path":"/blog/a/"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("DNT", "1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	n, err := s.CountViews(context.Background(), BlogPaths("a")...)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTopPostsAndCleanup(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	old := time.Now().AddDate(0, 0, -400)
	require.NoError(t, s.SaveVisit(ctx, Visit{Path: "/blog/old/", Timestamp: old}))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveVisit(ctx, Visit{Path: "/blog/popular/", Timestamp: time.Now()}))
	}
	require.NoError(t, s.SaveVisit(ctx, Visit{Path: "/blog/quiet/", Timestamp: time.Now()}))
	require.NoError(t, s.SaveVisit(ctx, Visit{Path: "/about/", Timestamp: time.Now()}))

	top, err := s.TopPages(ctx, "/blog/", 2)
	require.NoError(t, err)
	assert.Equal(t, []PageStat{{Path: "/blog/popular/", Views: 3}, {Path: "/blog/old/", Views: 1}}, top)

	n, err := s.DeleteBefore(ctx, time.Now().AddDate(0, 0, -365))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSaltPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.db")
	s1, err := NewStore(path)
	require.NoError(t, err)
	salt := s1.Salt()
	require.NoError(t, s1.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.NotEmpty(t, salt)
	assert.Equal(t, salt, s2.Salt())
}
