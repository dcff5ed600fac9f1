package staticblog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/staticblog/content"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello, World":        "hello-world",
		"  Go 1.24 Released ": "go-1-24-released",
		"---":                 "",
		"Ünïcode title":       "n-code-title",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://example.com/blog/hello/", BuildURL("https://example.com", "blog", "hello"))
	assert.Equal(t, "https://example.com/sub/blog/x/", BuildURL("https://example.com/sub/", "blog", "x"))
	assert.Equal(t, "https://example.com", BuildURL("https://example.com"))
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://example.com/images/a.png", AbsoluteURL("https://example.com", "/images/a.png"))
	assert.Equal(t, "https://cdn.example.org/a.png", AbsoluteURL("https://example.com", "https://cdn.example.org/a.png"))
	assert.Empty(t, AbsoluteURL("https://example.com", ""))
}

func TestRelatedPosts(t *testing.T) {
	current := content.Header{Slug: "a", Tags: []string{"Go", "sqlite"}}
	posts := []content.Header{
		{Slug: "a", Tags: []string{"go"}},
		{Slug: "b", Tags: []string{"go"}},
		{Slug: "c", Tags: []string{"rust"}},
		{Slug: "d", Tags: []string{" SQLite ", "go"}},
		{Slug: "e", Tags: []string{"sqlite"}},
	}

	got := RelatedPosts(current, posts, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].Slug, "two shared tags rank first")
	assert.Equal(t, "b", got[1].Slug, "ties keep input order")

	assert.Nil(t, RelatedPosts(content.Header{Slug: "x"}, posts, 3))
	assert.Nil(t, RelatedPosts(current, posts, 0))
}

func TestBlogPostingJsonLD(t *testing.T) {
	cfg := SiteConfig{Name: "Blog", URL: "https://example.com", Author: "Site Owner"}
	h := content.Header{
		Slug:      "hello",
		Title:     "Hello </script>",
		Published: "2024-03-01",
		Thumbnail: "/images/cover.jpg",
		Tags:      []string{"go", "web"},
	}

	raw := BlogPostingJsonLD(h, cfg)
	assert.False(t, strings.Contains(raw, "</script>"), "markup must be escaped")

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, "BlogPosting", doc["@type"])
	assert.Equal(t, "Hello </script>", doc["headline"])
	assert.Equal(t, "2024-03-01T00:00:00Z", doc["datePublished"])
	assert.Equal(t, "https://example.com/blog/hello/", doc["url"])
	assert.Equal(t, "https://example.com/images/cover.jpg", doc["image"])
	assert.Equal(t, "go, web", doc["keywords"])
	assert.Equal(t, "Site Owner", doc["author"].(map[string]any)["name"])

	h.AuthorName = "Guest"
	require.NoError(t, json.Unmarshal([]byte(BlogPostingJsonLD(h, cfg)), &doc))
	assert.Equal(t, "Guest", doc["author"].(map[string]any)["name"])
}

func TestWebsiteJsonLDOmitsEmptyAuthor(t *testing.T) {
	raw := WebsiteJsonLD(SiteConfig{Name: "Blog", URL: "https://example.com"})
	assert.NotContains(t, raw, "author")
	assert.Contains(t, raw, `"@type":"WebSite"`)
}
