package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/eringen/staticblog"
	"github.com/eringen/staticblog/content"
	"github.com/eringen/staticblog/markdown"
	"github.com/eringen/staticblog/readtime"
)

func loadConfig() (staticblog.SiteConfig, error) {
	cfg, err := staticblog.LoadConfig(CLI.Config)
	if err != nil {
		return cfg, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func runBuild(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if CLI.Build.Output != "" {
		cfg.OutputDir = CLI.Build.Output
	}

	if CLI.Build.DB != "" {
		cfg.DatabasePath = CLI.Build.DB
	}

	var repo staticblog.Repository = content.NewFileRepository(cfg.ContentDir)
	if CLI.Build.Source == "db" || CLI.Build.Import {
		store, err := staticblog.NewStore(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open post store: %w", err)
		}
		defer store.Close()
		if CLI.Build.Import {
			n, err := store.ImportFrom(ctx, repo)
			if err != nil {
				return fmt.Errorf("import posts: %w", err)
			}
			slog.Info("Imported posts", "count", n, "db", cfg.DatabasePath)
		}
		repo = store
	}

	var views staticblog.ViewCounter
	if !CLI.Build.Offline {
		views = staticblog.NewViewCounter(cfg)
		slog.Debug("fetching view counts", "base_url", cfg.ViewsBaseURL())
	}

	builder := staticblog.NewBuilder(repo, views,
		staticblog.WithPlugins(markdown.Plugins{HeadingAnchors: true, Highlight: true, Style: cfg.HighlightStyle}),
		staticblog.WithLogger(slog.Default()),
	)
	slog.Info("Starting site build", "content", cfg.ContentDir, "output", cfg.OutputDir)
	report, err := staticblog.NewSite(cfg, builder).Generate(ctx)
	if err != nil {
		return err
	}
	slog.Info("Build complete", "pages", report.Pages, "assets", report.Assets,
		"resized", report.Resized, "duration_ms", report.Duration.Milliseconds())
	return nil
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if CLI.Serve.Addr != "" {
		cfg.Addr = CLI.Serve.Addr
	}
	var opts []staticblog.Option
	if CLI.Serve.Watch {
		opts = append(opts, staticblog.WithWatch())
	}
	app := staticblog.New(cfg, opts...)
	defer app.Close()
	slog.Info("Preview server listening", "addr", cfg.Addr, "output", cfg.OutputDir)
	return app.Start(ctx)
}

func runList(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo := content.NewFileRepository(cfg.ContentDir)
	headers, err := repo.ListPosts(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(headers))
	for _, h := range headers {
		post, err := repo.GetPost(ctx, h.Slug)
		if err != nil {
			return err
		}
		stats := readtime.Estimate(post.Raw)
		rows = append(rows, []string{h.Slug, h.Title, h.Published, stats.Text, strconv.Itoa(stats.Words)})
	}
	fmt.Println(renderTable(
		[]string{"Slug", "Title", "Published", "Read", "Words"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}

func runPost() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := createPost(cfg.ContentDir, content.Header{
		Slug:       CLI.Post.Slug,
		Title:      CLI.Post.Title,
		AuthorName: cfg.Author,
		Tags:       CLI.Post.Tags,
		Draft:      CLI.Post.Draft,
	}, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("created %s\n", path)
	return nil
}

// createPost writes a new post skeleton for h into dir and returns its path.
func createPost(dir string, h content.Header, now time.Time) (string, error) {
	if h.Slug == "" {
		h.Slug = staticblog.Slugify(h.Title)
	}
	if h.Slug == "" {
		return "", fmt.Errorf("cannot derive a slug from title %q", h.Title)
	}
	if h.Published == "" {
		h.Published = now.Format(content.DateLayout)
	}

	path := filepath.Join(dir, h.Slug+".mdx")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("post %q already exists", path)
	}
	doc, err := content.MarshalDocument(content.Post{Header: h, Raw: "\n# " + h.Title + "\n"})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, doc, 0o644)
}
