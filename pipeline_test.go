package staticblog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/staticblog/content"
	"github.com/eringen/staticblog/metrics"
	"github.com/eringen/staticblog/viewcount"
)

type memRepo struct {
	order []string
	posts map[string]content.Post
}

func newMemRepo(posts ...content.Post) *memRepo {
	r := &memRepo{posts: make(map[string]content.Post)}
	for _, p := range posts {
		r.order = append(r.order, p.Header.Slug)
		r.posts[p.Header.Slug] = p
	}
	return r
}

func (r *memRepo) ListPosts(ctx context.Context) ([]content.Header, error) {
	headers := make([]content.Header, 0, len(r.order))
	for _, slug := range r.order {
		headers = append(headers, r.posts[slug].Header.Clone())
	}
	return headers, nil
}

func (r *memRepo) GetPost(ctx context.Context, slug string) (content.Post, error) {
	if err := ctx.Err(); err != nil {
		return content.Post{}, err
	}
	p, ok := r.posts[slug]
	if !ok {
		return content.Post{}, fmt.Errorf("%w: %q", content.ErrNotFound, slug)
	}
	return p, nil
}

func testPost(slug, raw string) content.Post {
	return content.Post{
		Header: content.Header{
			Slug:        slug,
			Title:       "Post " + slug,
			Summary:     "About " + slug,
			AuthorName:  "Ada",
			AuthorImage: "/images/ada.png",
			Published:   "2024-03-01",
		},
		Raw: raw,
	}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func writeTestFile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func viewServer(t *testing.T, handler http.HandlerFunc) *viewcount.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return viewcount.New(srv.URL)
}

func fixedViews(n int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":true,"message":"ok","data":%d}`, n)
	}
}

func TestBuildPageWithViews(t *testing.T) {
	repo := newMemRepo(testPost("hello", "# Hello\n\n"+words(200)))
	var gotSlug string
	views := viewServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotSlug = r.URL.Query().Get("slug")
		fixedViews(42)(w, r)
	})

	page, err := NewBuilder(repo, views).BuildPage(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "hello", gotSlug)
	assert.Equal(t, 42, page.Header.Views)
	assert.Equal(t, "1 min read", page.Header.EstRead)
	assert.Equal(t, "Post hello", page.Header.Title)
	assert.Contains(t, page.Content.HTML, `<h1 id="hello">Hello</h1>`)
}

func TestBuildPageViewFailureIsSoft(t *testing.T) {
	refused := httptest.NewServer(http.NotFoundHandler())
	refusedURL := refused.URL
	refused.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	tests := []struct {
		name  string
		views ViewCounter
	}{
		{"non-200", viewServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})},
		{"bad body", viewServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":true,"data":"many"}`))
		})},
		{"connection refused", viewcount.New(refusedURL)},
		{"timeout", viewcount.New(slow.URL, viewcount.WithTimeout(50*time.Millisecond))},
		{"no counter", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(testPost("p", words(200)))
			page, err := NewBuilder(repo, tt.views).BuildPage(context.Background(), "p")
			require.NoError(t, err)
			assert.Equal(t, 0, page.Header.Views)
			assert.Equal(t, "1 min read", page.Header.EstRead)
			assert.NotEmpty(t, page.Content.HTML)
		})
	}
}

func TestBuildPageNotFound(t *testing.T) {
	var calls atomic.Int32
	views := viewServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fixedViews(1)(w, r)
	})
	_, err := NewBuilder(newMemRepo(), views).BuildPage(context.Background(), "missing")
	require.ErrorIs(t, err, ErrContentNotFound)
	assert.ErrorIs(t, err, content.ErrNotFound)
	assert.Zero(t, calls.Load(), "views must not be fetched for a missing post")
}

func TestBuildPageSerializationError(t *testing.T) {
	repo := newMemRepo(testPost("broken", "intro\n\n```go\nfunc main() {}\n"))
	_, err := NewBuilder(repo, viewServer(t, fixedViews(3))).BuildPage(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrSerialization)
	assert.NotErrorIs(t, err, ErrContentNotFound)
}

func TestBuildPageMalformedFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "bad.mdx", "---\ntitle: [unclosed\n---\nbody\n")
	_, err := NewBuilder(content.NewFileRepository(dir), nil).BuildPage(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestBuildPageIgnoresUnrelatedBrokenPost(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "good.mdx", "---\ntitle: Good\npublished: 2024-01-01\n---\n# Good\n")
	writeTestFile(t, dir, "bad.mdx", "---\ntitle: [unclosed\n---\nbody\n")

	page, err := NewBuilder(content.NewFileRepository(dir), nil).BuildPage(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "Good", page.Header.Title)
}

// brokenRepo fails every lookup the way an unreadable store would.
type brokenRepo struct{ *memRepo }

var errDiskGone = errors.New("disk gone")

func (brokenRepo) GetPost(context.Context, string) (content.Post, error) {
	return content.Post{}, errDiskGone
}

func TestBuildPageRepositoryFailureKeepsItsKind(t *testing.T) {
	_, err := NewBuilder(brokenRepo{newMemRepo()}, nil).BuildPage(context.Background(), "a")
	require.ErrorIs(t, err, errDiskGone)
	assert.NotErrorIs(t, err, ErrContentNotFound)
	assert.NotErrorIs(t, err, ErrSerialization)

	_, err = NewBuilder(content.NewFileRepository(filepath.Join(t.TempDir(), "missing")), nil).
		BuildPage(context.Background(), "a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrContentNotFound, "an unreadable content dir is not a missing post")
}

func TestBuildPageDoesNotMutateRepository(t *testing.T) {
	p := testPost("a", "# A\n\ntext")
	p.Header.Tags = []string{"go"}
	repo := newMemRepo(p)

	page, err := NewBuilder(repo, viewServer(t, fixedViews(7))).BuildPage(context.Background(), "a")
	require.NoError(t, err)
	page.Header.Tags[0] = "changed"

	stored, err := repo.GetPost(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, stored.Header.EstRead)
	assert.Zero(t, stored.Header.Views)
	assert.Equal(t, []string{"go"}, stored.Header.Tags)
}

func TestBuildPageIsDeterministic(t *testing.T) {
	raw := "# Title\n\n## Setup\n\n```go\nfmt.Println(1)\n```\n\n[link](https://example.com)"
	b := NewBuilder(newMemRepo(testPost("d", raw)), viewServer(t, fixedViews(5)))
	first, err := b.BuildPage(context.Background(), "d")
	require.NoError(t, err)
	second, err := b.BuildPage(context.Background(), "d")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildPageCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(newMemRepo(testPost("a", "x")), nil).BuildPage(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListSlugs(t *testing.T) {
	repo := newMemRepo(testPost("b", "x"), testPost("a", "y"))
	slugs, err := NewBuilder(repo, nil).ListSlugs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, slugs)
}

func TestBuildAllPreservesOrder(t *testing.T) {
	var posts []content.Post
	for i := 0; i < 12; i++ {
		posts = append(posts, testPost(fmt.Sprintf("post-%02d", i), words(i*50)))
	}
	repo := newMemRepo(posts...)

	pages, err := NewBuilder(repo, viewServer(t, fixedViews(9))).BuildAll(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, pages, 12)
	for i, p := range pages {
		assert.Equal(t, fmt.Sprintf("post-%02d", i), p.Slug())
		assert.Equal(t, 9, p.Header.Views)
	}
}

// listsGhost enumerates a slug it cannot resolve.
type listsGhost struct{ *memRepo }

func (r listsGhost) ListPosts(ctx context.Context) ([]content.Header, error) {
	headers, _ := r.memRepo.ListPosts(ctx)
	return append(headers, content.Header{Slug: "ghost"}), nil
}

func TestBuildAllAbortsOnFatalError(t *testing.T) {
	repo := listsGhost{newMemRepo(testPost("a", "x"), testPost("b", "y"))}
	pages, err := NewBuilder(repo, nil).BuildAll(context.Background(), 2)
	assert.ErrorIs(t, err, ErrContentNotFound)
	assert.Nil(t, pages)
}

type recordingMetrics struct {
	metrics.NoopRecorder
	mu      sync.Mutex
	results []string
	views   []metrics.ViewOutcome
}

func (r *recordingMetrics) IncPageResult(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingMetrics) IncViewFetch(o metrics.ViewOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, o)
}

func TestBuildPageRecordsMetrics(t *testing.T) {
	rec := &recordingMetrics{}
	b := NewBuilder(newMemRepo(testPost("a", "x")), nil, WithMetrics(rec))

	_, err := b.BuildPage(context.Background(), "a")
	require.NoError(t, err)
	_, err = b.BuildPage(context.Background(), "nope")
	require.Error(t, err)

	assert.Equal(t, []string{"built", "not_found"}, rec.results)
	assert.Equal(t, []metrics.ViewOutcome{metrics.ViewUnavailable}, rec.views)
}
