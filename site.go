package staticblog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/eringen/staticblog/content"
	"github.com/eringen/staticblog/markdown"
	"github.com/eringen/staticblog/reveal"
	"github.com/eringen/staticblog/views"
)

// ErrBuildInProgress is returned when another process or goroutine holds
// the output directory lock.
var ErrBuildInProgress = errors.New("staticblog: build already in progress")

// BuildReport summarizes one site generation.
type BuildReport struct {
	Pages    int
	Assets   int // files copied from the static dir
	Resized  int // images shrunk while copying
	Duration time.Duration
	Finished time.Time
}

// Site renders built pages into a static output directory.
type Site struct {
	cfg     SiteConfig
	builder *Builder
}

// NewSite returns a Site writing cfg.OutputDir from pages produced by builder.
func NewSite(cfg SiteConfig, builder *Builder) *Site {
	cfg.setDefaults()
	return &Site{cfg: cfg, builder: builder}
}

// Config returns the site configuration.
func (s *Site) Config() SiteConfig {
	return s.cfg
}

// Generate builds every page and replaces the output directory with the
// result. The previous output stays in place until the new one is complete.
func (s *Site) Generate(ctx context.Context) (BuildReport, error) {
	start := time.Now()
	log := s.builder.logger

	out := filepath.Clean(s.cfg.OutputDir)
	parent := filepath.Dir(out)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return BuildReport{}, err
	}
	lock := flock.New(out + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return BuildReport{}, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return BuildReport{}, ErrBuildInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("failed to release output lock", "error", err)
		}
	}()

	report, err := s.generate(ctx, parent, out)
	report.Duration = time.Since(start)
	s.builder.metrics.ObserveSiteBuild(report.Duration, report.Pages, err == nil)
	if err != nil {
		return report, err
	}
	report.Finished = time.Now().UTC()
	log.Info("site generated", "output", out, "pages", report.Pages,
		"assets", report.Assets, "duration_ms", report.Duration.Milliseconds())
	return report, nil
}

func (s *Site) generate(ctx context.Context, parent, out string) (BuildReport, error) {
	var report BuildReport

	pages, err := s.builder.BuildAll(ctx, s.cfg.Workers)
	if err != nil {
		return report, err
	}

	staging, err := os.MkdirTemp(parent, ".staticblog-*")
	if err != nil {
		return report, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)
	// MkdirTemp creates 0700; the published tree must be world-readable.
	if err := os.Chmod(staging, 0o755); err != nil {
		return report, err
	}

	t := time.Now()
	if err := s.writePages(ctx, staging, pages); err != nil {
		return report, err
	}
	report.Pages = len(pages)
	s.builder.metrics.ObserveStageDuration("render", time.Since(t))

	t = time.Now()
	if err := s.writeAssets(staging); err != nil {
		return report, err
	}
	report.Assets, report.Resized, err = s.copyStatic(ctx, staging)
	if err != nil {
		return report, err
	}
	s.builder.metrics.ObserveStageDuration("assets", time.Since(t))

	return report, swapDir(staging, out)
}

// swapDir replaces dst with src.
func swapDir(src, dst string) error {
	old := dst + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if err := os.Rename(dst, old); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("move previous output: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("publish output: %w", err)
	}
	return os.RemoveAll(old)
}

func (s *Site) viewConfig() views.SiteConfig {
	return views.SiteConfig{
		Name:        s.cfg.Name,
		URL:         s.cfg.URL,
		Description: s.cfg.Description,
		Author:      s.cfg.Author,
		EditURL:     s.cfg.EditURL,
	}
}

// PageData returns the page data shared by every page of the site.
func (s *Site) PageData(meta views.PageMeta, jsonLD string) views.PageData {
	return views.PageData{
		Site:      s.viewConfig(),
		Meta:      meta,
		JsonLD:    jsonLD,
		Analytics: !s.cfg.AnalyticsDisabled,
	}
}

func (s *Site) writePages(ctx context.Context, dir string, pages []PagePayload) error {
	headers := make([]content.Header, len(pages))
	for i, p := range pages {
		headers[i] = p.Header
	}

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		h := p.Header
		if !safeSlug(h.Slug) {
			return fmt.Errorf("unsafe slug %q", h.Slug)
		}
		meta := views.PageMeta{
			Title:       h.Title,
			Description: h.Summary,
			URL:         BuildURL(s.cfg.URL, "blog", h.Slug),
			OGType:      "article",
			Image:       AbsoluteURL(s.cfg.URL, h.Thumbnail),
		}
		post := views.PostView{
			Header:  h,
			Body:    markdown.Component(p.Content),
			TOC:     p.Content.TOC,
			Related: RelatedPosts(h, headers, maxRelatedPosts),
		}
		page := views.Post(post, s.PageData(meta, BlogPostingJsonLD(h, s.cfg)))
		if err := renderFile(ctx, filepath.Join(dir, "blog", h.Slug, "index.html"), page); err != nil {
			return fmt.Errorf("render %s: %w", h.Slug, err)
		}
	}

	home := views.PageMeta{
		Title:       s.cfg.Name,
		Description: s.cfg.Description,
		URL:         BuildURL(s.cfg.URL),
		OGType:      "website",
	}
	if err := renderFile(ctx, filepath.Join(dir, "index.html"),
		views.Index(headers, s.PageData(home, WebsiteJsonLD(s.cfg)))); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	if err := renderFile(ctx, filepath.Join(dir, "404.html"),
		views.NotFound(s.PageData(views.PageMeta{Title: "Not found"}, ""))); err != nil {
		return fmt.Errorf("render 404: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteSitemap(&buf, s.cfg.URL, headers); err != nil {
		return fmt.Errorf("render sitemap: %w", err)
	}
	if err := writeFile(filepath.Join(dir, "sitemap.xml"), buf.Bytes()); err != nil {
		return err
	}
	buf.Reset()
	if err := WriteFeed(&buf, s.cfg, headers); err != nil {
		return fmt.Errorf("render feed: %w", err)
	}
	if err := writeFile(filepath.Join(dir, "feed.xml"), buf.Bytes()); err != nil {
		return err
	}
	robots := "User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: " +
		strings.TrimRight(s.cfg.URL, "/") + "/sitemap.xml\n"
	return writeFile(filepath.Join(dir, "robots.txt"), []byte(robots))
}

// writeAssets writes the generated stylesheet and client scripts.
func (s *Site) writeAssets(dir string) error {
	var css bytes.Buffer
	if err := markdown.HighlightCSS(&css, s.cfg.HighlightStyle); err != nil {
		return fmt.Errorf("highlight css: %w", err)
	}
	assets := map[string][]byte{
		views.HighlightCSSPath: css.Bytes(),
		views.RevealJSPath:     []byte(reveal.Script(reveal.DefaultConfig)),
	}
	if !s.cfg.AnalyticsDisabled {
		js, err := EmbeddedAssets.ReadFile("embedded/analytics.js")
		if err != nil {
			return err
		}
		assets[views.AnalyticsJSPath] = js
	}
	for urlPath, data := range assets {
		if err := writeFile(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(urlPath, "/"))), data); err != nil {
			return err
		}
	}
	return nil
}

// copyStatic copies the static dir into dir. Images under images/ wider
// than 800px are shrunk on the way. A missing static dir is not an error.
func (s *Site) copyStatic(ctx context.Context, dir string) (copied, resized int, err error) {
	root := s.cfg.StaticDir
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return 0, 0, nil
	}
	log := s.builder.logger
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if isResizable(filepath.ToSlash(rel)) {
			out, shrunk, rerr := resizeImage(data)
			switch {
			case rerr != nil:
				log.Warn("copying image unmodified", "path", rel, "error", rerr)
			case shrunk:
				data = out
				resized++
			}
		}
		copied++
		return writeFile(filepath.Join(dir, rel), data)
	})
	return copied, resized, err
}

func safeSlug(slug string) bool {
	return slug != "" && slug != "." && slug != ".." && !strings.ContainsAny(slug, `/\`)
}
