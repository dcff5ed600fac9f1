// Package staticblog generates a static blog from a directory of MDX and
// Markdown posts. Each post page embeds its reading time and a view count
// fetched from the site's analytics API at build time.
//
// The preview server (App) serves the generated directory, hosts the
// view-count API that builds read from, and regenerates the site on demand.
package staticblog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eringen/staticblog/analytics"
	"github.com/eringen/staticblog/content"
	"github.com/eringen/staticblog/markdown"
	"github.com/eringen/staticblog/metrics"
	"github.com/eringen/staticblog/viewcount"
	"github.com/eringen/staticblog/views"
)

// App is the preview server. It wires together the site generator,
// analytics, admin routes, and middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Site    *Site
	Metrics *metrics.PrometheusRecorder

	logger         *slog.Logger
	repo           Repository
	viewCounter    ViewCounter
	loginLimiter   *LoginLimiter
	analyticsStore *analytics.Store
	analytics      *analytics.Handler
	customRoutes   []func(*App)
	watch          bool

	mu        sync.Mutex
	lastBuild views.BuildSummary
}

// WithWatch rebuilds the site whenever the content or static dir changes.
func WithWatch() Option {
	return func(a *App) {
		a.watch = true
	}
}

// WithViewCounter replaces the view-count client derived from the config.
func WithViewCounter(vc ViewCounter) Option {
	return func(a *App) {
		a.viewCounter = vc
	}
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		logger: slog.Default(),
	}
	a.Echo.HideBanner = true
	for _, opt := range opts {
		opt(a)
	}
	if a.repo == nil {
		a.repo = content.NewFileRepository(cfg.ContentDir)
	}
	if a.viewCounter == nil {
		a.viewCounter = NewViewCounter(cfg)
	}

	a.Metrics = metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	a.Site = NewSite(cfg, NewBuilder(a.repo, a.viewCounter,
		WithPlugins(markdown.Plugins{HeadingAnchors: true, Highlight: true, Style: cfg.HighlightStyle}),
		WithMetrics(a.Metrics),
		WithLogger(a.logger),
	))
	return a
}

// NewViewCounter returns the view-count client for cfg.
func NewViewCounter(cfg SiteConfig) *viewcount.Client {
	return viewcount.New(cfg.ViewsBaseURL(), viewcount.WithTimeout(cfg.ViewsTimeout))
}

// Start sets up routes and serves until ctx is cancelled. The site is
// regenerated in the background once the server is listening, so that
// development builds can read view counts from this same server.
func (a *App) Start(ctx context.Context) error {
	stop, err := a.setup()
	if err != nil {
		return err
	}
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go func() {
		if _, err := a.Rebuild(ctx); err != nil {
			a.logger.Error("initial build failed", "error", err)
		}
	}()
	if a.watch {
		go func() {
			if err := a.Watch(ctx); err != nil {
				a.logger.Error("watch stopped", "error", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Echo.Shutdown(shutdownCtx)
}

// setup validates the config, opens the analytics store, and installs
// middleware and routes. The returned function stops background work.
func (a *App) setup() (func(), error) {
	if a.Config.AdminPassword == "" {
		return nil, fmt.Errorf("staticblog: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return nil, fmt.Errorf("staticblog: SessionSecret is required")
	}

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	stop := func() {}
	if !a.Config.AnalyticsDisabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return nil, fmt.Errorf("staticblog: init analytics: %w", err)
		}
		a.analyticsStore = store
		a.analytics = analytics.NewHandler(store)
		stop = store.StartCleanupScheduler(365, 24*time.Hour)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return stop, nil
}

// Rebuild regenerates the site and records the outcome for the dashboard.
func (a *App) Rebuild(ctx context.Context) (BuildReport, error) {
	report, err := a.Site.Generate(ctx)
	summary := views.BuildSummary{
		Pages:    report.Pages,
		Duration: report.Duration.Round(time.Millisecond).String(),
	}
	if err != nil {
		summary.Error = err.Error()
	} else {
		summary.Finished = report.Finished.Format(time.RFC3339)
	}
	a.mu.Lock()
	a.lastBuild = summary
	a.mu.Unlock()
	return report, err
}

// LastBuild returns the summary of the most recent build.
func (a *App) LastBuild() views.BuildSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastBuild
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/rebuild/", a.handleAdminRebuild, requireAdmin)

	if a.analytics != nil {
		a.analytics.RegisterRoutes(e, requireAdmin)
	}

	e.GET("/blog", handleBlogRedirect)
	e.GET("/*", a.handleStatic)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.analytics != nil {
		a.analytics.Close()
	}
	if a.analyticsStore != nil {
		a.analyticsStore.Close()
	}
	return nil
}
