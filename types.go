package staticblog

import (
	"github.com/eringen/staticblog/content"
	"github.com/eringen/staticblog/markdown"
)

// PagePayload is everything needed to render one post page. It is built
// once per slug and not modified afterwards.
type PagePayload struct {
	Header  content.Header      `json:"header"`
	Content markdown.Serialized `json:"content"`
}

// Slug returns the slug of the page.
func (p PagePayload) Slug() string {
	return p.Header.Slug
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}
