package staticblog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewsBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  SiteConfig
		want string
	}{
		{"development", SiteConfig{URL: "https://blog.example.com"}, "http://localhost:3000"},
		{"production uses views url", SiteConfig{Env: "production", URL: "https://blog.example.com", ViewsURL: "https://stats.example.com"}, "https://stats.example.com"},
		{"production falls back to site url", SiteConfig{Env: "Production", URL: "https://blog.example.com"}, "https://blog.example.com"},
		{"staging is not production", SiteConfig{Env: "staging", ViewsURL: "https://stats.example.com"}, "http://localhost:3000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ViewsBaseURL())
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "content/blog", cfg.ContentDir)
	assert.Equal(t, "dist", cfg.OutputDir)
	assert.Equal(t, 3*time.Second, cfg.ViewsTimeout)
	assert.Equal(t, "dracula", cfg.HighlightStyle)
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "site.yaml", `
name: Field Notes
url: https://notes.example.com
content_dir: posts
views_timeout: 750ms
workers: 2
`)
	t.Setenv("SITE_NAME", "Env Notes")
	t.Setenv("APP_ENV", "production")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := LoadConfig(filepath.Join(dir, "site.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Env Notes", cfg.Name)
	assert.Equal(t, "https://notes.example.com", cfg.URL)
	assert.Equal(t, "posts", cfg.ContentDir)
	assert.Equal(t, 750*time.Millisecond, cfg.ViewsTimeout)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "https://notes.example.com", cfg.ViewsBaseURL())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "bad.yaml", "name: [oops\n")
	_, err := LoadConfig(filepath.Join(dir, "bad.yaml"))
	assert.Error(t, err)

	t.Setenv("VIEWS_TIMEOUT", "soon")
	_, err = LoadConfig("")
	assert.Error(t, err)
}
