package staticblog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DevViewsURL is where view counts are fetched from outside production.
const DevViewsURL = "http://localhost:3000"

// SiteConfig holds all configuration for a site build and its preview server.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD

	Env      string `yaml:"env"`       // "production" switches view counts to ViewsURL
	ViewsURL string `yaml:"views_url"` // Production view-count host (default URL)
	EditURL  string `yaml:"edit_url"`  // Base of the "edit this page" link; empty hides it

	ContentDir string `yaml:"content_dir"` // Post sources (default "content/blog")
	StaticDir  string `yaml:"static_dir"`  // Copied verbatim into the output (default "public")
	OutputDir  string `yaml:"output_dir"`  // Generated site (default "dist")

	Workers        int           `yaml:"workers"`         // Concurrent page builds (default GOMAXPROCS)
	ViewsTimeout   time.Duration `yaml:"views_timeout"`   // Per-fetch timeout (default 3s)
	HighlightStyle string        `yaml:"highlight_style"` // Chroma style (default "dracula")

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite post store (default "data/blog.db")

	AnalyticsDisabled     bool   `yaml:"analytics_disabled"`
	AnalyticsDatabasePath string `yaml:"analytics_database_path"` // default "data/analytics.db"

	AdminPassword string `yaml:"-"` // Required by the server: admin login password
	SessionSecret string `yaml:"-"` // Required by the server: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content/blog"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.OutputDir == "" {
		c.OutputDir = "dist"
	}
	if c.ViewsTimeout <= 0 {
		c.ViewsTimeout = 3 * time.Second
	}
	if c.HighlightStyle == "" {
		c.HighlightStyle = "dracula"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
}

// IsProduction reports whether the site is built for production.
func (c SiteConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// ViewsBaseURL returns the host view counts are fetched from.
func (c SiteConfig) ViewsBaseURL() string {
	if !c.IsProduction() {
		return DevViewsURL
	}
	if c.ViewsURL != "" {
		return c.ViewsURL
	}
	return c.URL
}

// LoadConfig builds a SiteConfig from, in increasing precedence, defaults,
// the YAML file at path, and the environment. A .env file in the working
// directory is loaded first. A missing YAML file is not an error.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv() error {
	strs := map[string]*string{
		"SITE_NAME":               &c.Name,
		"SITE_URL":                &c.URL,
		"SITE_DESCRIPTION":        &c.Description,
		"SITE_AUTHOR":             &c.Author,
		"APP_ENV":                 &c.Env,
		"VIEWS_URL":               &c.ViewsURL,
		"EDIT_URL":                &c.EditURL,
		"CONTENT_DIR":             &c.ContentDir,
		"STATIC_DIR":              &c.StaticDir,
		"OUTPUT_DIR":              &c.OutputDir,
		"HIGHLIGHT_STYLE":         &c.HighlightStyle,
		"ADDR":                    &c.Addr,
		"DATABASE_PATH":           &c.DatabasePath,
		"ANALYTICS_DATABASE_PATH": &c.AnalyticsDatabasePath,
		"ADMIN_PASSWORD":          &c.AdminPassword,
		"ADMIN_SESSION_SECRET":    &c.SessionSecret,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"COOKIE_SECURE":      &c.CookieSecure,
		"ANALYTICS_DISABLED": &c.AnalyticsDisabled,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	if v := os.Getenv("BUILD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BUILD_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("VIEWS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("VIEWS_TIMEOUT: %w", err)
		}
		c.ViewsTimeout = d
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithRepository replaces the file repository read from ContentDir.
func WithRepository(repo Repository) Option {
	return func(a *App) {
		a.repo = repo
	}
}
