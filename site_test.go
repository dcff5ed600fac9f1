package staticblog

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/staticblog/content"
)

func testSite(t *testing.T) (*Site, SiteConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := SiteConfig{
		Name:       "Field Notes",
		URL:        "https://notes.example.com",
		ContentDir: filepath.Join(root, "content"),
		StaticDir:  filepath.Join(root, "public"),
		OutputDir:  filepath.Join(root, "dist"),
		EditURL:    "https://github.com/me/notes/edit/main/content",
		Workers:    2,
	}
	writeTestFile(t, cfg.ContentDir, "hello.mdx", "---\ntitle: Hello\nsummary: First\npublished: 2024-03-01\ntags: [go]\n---\nimport X from './x'\n\n# Hello\n\nSome words here.\n")
	writeTestFile(t, cfg.ContentDir, "second.mdx", "---\ntitle: Second\npublished: 2024-02-01\ntags: [go]\n---\n## Part one\n\n```go\nfmt.Println(\"hi\")\n```\n")

	builder := NewBuilder(content.NewFileRepository(cfg.ContentDir), viewServer(t, fixedViews(42)))
	return NewSite(cfg, builder), cfg
}

func readOut(t *testing.T, cfg SiteConfig, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, rel))
	require.NoError(t, err)
	return string(data)
}

func TestGenerateWritesSite(t *testing.T) {
	site, cfg := testSite(t)
	writeTestFile(t, cfg.StaticDir, "favicon.svg", "<svg/>")

	report, err := site.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 1, report.Assets)
	assert.False(t, report.Finished.IsZero())

	post := readOut(t, cfg, "blog/hello/index.html")
	assert.Contains(t, post, "42 views")
	assert.Contains(t, post, `<h1 id="hello">Hello</h1>`)
	assert.NotContains(t, post, "import X")
	assert.Contains(t, post, `href="/blog/second/"`, "related post by tag")
	assert.Contains(t, post, "/blog/hello.mdx")

	index := readOut(t, cfg, "index.html")
	assert.Less(t, bytes.Index([]byte(index), []byte("Hello")), bytes.Index([]byte(index), []byte("Second")))

	assert.Contains(t, readOut(t, cfg, "sitemap.xml"), "<loc>https://notes.example.com/blog/second/</loc>")
	assert.Contains(t, readOut(t, cfg, "feed.xml"), "<title>Hello</title>")
	assert.Contains(t, readOut(t, cfg, "robots.txt"), "Sitemap: https://notes.example.com/sitemap.xml")
	assert.Contains(t, readOut(t, cfg, "assets/reveal.js"), "IntersectionObserver")
	assert.NotEmpty(t, readOut(t, cfg, "assets/chroma.css"))
	assert.NotEmpty(t, readOut(t, cfg, "assets/analytics.js"))
	assert.NotEmpty(t, readOut(t, cfg, "404.html"))
	assert.Equal(t, "<svg/>", readOut(t, cfg, "favicon.svg"))
}

func TestGenerateResizesWideImages(t *testing.T) {
	site, cfg := testSite(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1600, 400))))
	writeTestFile(t, cfg.StaticDir, "images/wide.png", buf.String())
	writeTestFile(t, cfg.StaticDir, "other/wide.png", buf.String())

	report, err := site.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resized)

	f, err := os.Open(filepath.Join(cfg.OutputDir, "images", "wide.png"))
	require.NoError(t, err)
	defer f.Close()
	img, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 800, img.Width)
	assert.Equal(t, 200, img.Height)

	assert.Equal(t, buf.String(), readOut(t, cfg, "other/wide.png"))
}

func TestGenerateKeepsPreviousOutputOnFailure(t *testing.T) {
	site, cfg := testSite(t)
	_, err := site.Generate(context.Background())
	require.NoError(t, err)

	writeTestFile(t, cfg.ContentDir, "broken.mdx", "---\ntitle: Broken\npublished: 2024-04-01\n---\n```go\nnever closed\n")
	_, err = site.Generate(context.Background())
	require.ErrorIs(t, err, ErrSerialization)

	assert.Contains(t, readOut(t, cfg, "blog/hello/index.html"), "Hello")
	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "blog", "broken"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateRefusesConcurrentBuild(t *testing.T) {
	site, cfg := testSite(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.OutputDir), 0o755))

	held := flock.New(cfg.OutputDir + ".lock")
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	_, err = site.Generate(context.Background())
	assert.ErrorIs(t, err, ErrBuildInProgress)
}

func TestSafeSlug(t *testing.T) {
	assert.True(t, safeSlug("hello-world"))
	assert.False(t, safeSlug(""))
	assert.False(t, safeSlug(".."))
	assert.False(t, safeSlug("a/b"))
}
