package staticblog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eringen/staticblog/content"
	"github.com/eringen/staticblog/markdown"
	"github.com/eringen/staticblog/metrics"
	"github.com/eringen/staticblog/readtime"
	"github.com/eringen/staticblog/viewcount"
)

var (
	// ErrContentNotFound is returned when a slug does not resolve to a post.
	ErrContentNotFound = errors.New("staticblog: content not found")

	// ErrSerialization is returned when a post body or header cannot be turned
	// into renderable content.
	ErrSerialization = errors.New("staticblog: serialization failed")
)

// Repository is the source of posts.
type Repository interface {
	ListPosts(ctx context.Context) ([]content.Header, error)
	GetPost(ctx context.Context, slug string) (content.Post, error)
}

// ViewCounter looks up the view count of a slug. Failures are reported in
// the Result, never as an error.
type ViewCounter interface {
	Fetch(ctx context.Context, slug string) viewcount.Result
}

// Builder turns slugs into page payloads.
type Builder struct {
	repo    Repository
	views   ViewCounter
	plugins markdown.Plugins
	metrics metrics.Recorder
	logger  *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithPlugins overrides the serializer plugins.
func WithPlugins(p markdown.Plugins) BuilderOption {
	return func(b *Builder) { b.plugins = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) BuilderOption {
	return func(b *Builder) {
		if r != nil {
			b.metrics = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder returns a Builder reading posts from repo. views may be nil, in
// which case every page reports zero views.
func NewBuilder(repo Repository, views ViewCounter, opts ...BuilderOption) *Builder {
	b := &Builder{
		repo:    repo,
		views:   views,
		plugins: markdown.DefaultPlugins,
		metrics: metrics.NoopRecorder{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ListSlugs returns the slug of every publishable post in listing order.
func (b *Builder) ListSlugs(ctx context.Context) ([]string, error) {
	headers, err := b.repo.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	slugs := make([]string, 0, len(headers))
	for _, h := range headers {
		slugs = append(slugs, h.Slug)
	}
	return slugs, nil
}

// BuildPage produces the payload for slug. A view count that cannot be
// fetched is recorded as zero views; it never fails the page.
func (b *Builder) BuildPage(ctx context.Context, slug string) (PagePayload, error) {
	start := time.Now()
	page, err := b.buildPage(ctx, slug)
	b.metrics.ObservePageDuration(time.Since(start))
	b.metrics.IncPageResult(pageResult(err))
	if err != nil {
		return PagePayload{}, err
	}
	b.logger.Debug("page built", "slug", slug, "duration_ms", time.Since(start).Milliseconds())
	return page, nil
}

func (b *Builder) buildPage(ctx context.Context, slug string) (PagePayload, error) {
	post, err := b.resolve(ctx, slug)
	if err != nil {
		return PagePayload{}, err
	}

	header := post.Header.Clone()
	if header.Slug == "" {
		header.Slug = slug
	}
	header.EstRead = readtime.Estimate(post.Raw).Text

	var (
		body  markdown.Serialized
		views viewcount.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		s, err := markdown.Serialize(post.Raw, b.plugins)
		b.metrics.ObserveStageDuration("serialize", time.Since(t))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSerialization, slug, err)
		}
		body = s
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		views = b.fetchViews(gctx, slug)
		b.metrics.ObserveStageDuration("views", time.Since(t))
		return nil
	})
	if err := g.Wait(); err != nil {
		return PagePayload{}, err
	}
	if err := ctx.Err(); err != nil {
		return PagePayload{}, err
	}

	if views.OK {
		b.metrics.IncViewFetch(metrics.ViewOK)
	} else {
		b.metrics.IncViewFetch(metrics.ViewUnavailable)
		b.logger.Warn("view count unavailable, using 0", "slug", slug, "error", views.Err)
	}
	header.Views = views.Views()

	return PagePayload{Header: header, Content: body}, nil
}

func (b *Builder) resolve(ctx context.Context, slug string) (content.Post, error) {
	post, err := b.repo.GetPost(ctx, slug)
	switch {
	case err == nil:
		return post, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return content.Post{}, err
	case errors.Is(err, content.ErrNotFound):
		return content.Post{}, fmt.Errorf("%w: %s: %w", ErrContentNotFound, slug, err)
	case errors.Is(err, content.ErrMalformedFrontmatter):
		return content.Post{}, fmt.Errorf("%w: %s: %w", ErrSerialization, slug, err)
	default:
		return content.Post{}, fmt.Errorf("get post %s: %w", slug, err)
	}
}

func (b *Builder) fetchViews(ctx context.Context, slug string) viewcount.Result {
	if b.views == nil {
		return viewcount.Failure(errors.New("no view counter configured"))
	}
	return b.views.Fetch(ctx, slug)
}

func pageResult(err error) string {
	switch {
	case err == nil:
		return "built"
	case errors.Is(err, ErrContentNotFound):
		return "not_found"
	case errors.Is(err, ErrSerialization):
		return "serialization"
	default:
		return "error"
	}
}

// BuildAll enumerates every post and builds its page using at most workers
// concurrent builds (GOMAXPROCS when workers <= 0). Pages come back in
// enumeration order. The first fatal error aborts the remaining builds.
func (b *Builder) BuildAll(ctx context.Context, workers int) ([]PagePayload, error) {
	slugs, err := b.ListSlugs(ctx)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	pages := make([]PagePayload, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, slug := range slugs {
		g.Go(func() error {
			page, err := b.BuildPage(gctx, slug)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}
