package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/staticblog/markdown"
	"github.com/eringen/staticblog/reveal"
)

// Layout wraps body in the site chrome and <head> metadata.
func Layout(data PageData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		meta := data.Meta
		title := meta.Title
		if title == "" {
			title = data.Site.Name
		} else if title != data.Site.Name {
			title += " | " + data.Site.Name
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title><meta name="description"`)
		h.attr("content", meta.Description)
		h.raw(`>`)
		if meta.URL != "" {
			h.raw(`<link rel="canonical"`)
			h.attr("href", meta.URL)
			h.raw(`><meta property="og:url"`)
			h.attr("content", meta.URL)
			h.raw(`>`)
		}
		h.raw(`<meta property="og:title"`)
		h.attr("content", meta.Title)
		h.raw(`><meta property="og:description"`)
		h.attr("content", meta.Description)
		h.raw(`><meta property="og:type"`)
		h.attr("content", ogType)
		h.raw(`><meta property="og:site_name"`)
		h.attr("content", data.Site.Name)
		h.raw(`>`)
		if meta.Image != "" {
			h.raw(`<meta property="og:image"`)
			h.attr("content", meta.Image)
			h.raw(`><meta name="twitter:card" content="summary_large_image">`)
		}
		h.raw(`<link rel="alternate" type="application/rss+xml"`)
		h.attr("title", data.Site.Name)
		h.raw(` href="/feed.xml">`)
		h.raw(`<link rel="stylesheet" href="`, HighlightCSSPath, `">`)
		if data.JsonLD != "" {
			// encoding/json escapes <, > and & so the block cannot close the script early.
			h.raw(`<script type="application/ld+json">`, data.JsonLD, `</script>`)
		}
		h.raw(`<script src="`, RevealJSPath, `" defer></script>`)
		if data.Analytics {
			h.raw(`<script src="`, AnalyticsJSPath, `" defer></script>`)
		}
		h.raw(`</head><body class="bg-stone-50 dark:bg-neutral-900">`)

		h.raw(`<header class="site-header"><nav class="flex items-center gap-4"><a href="/" class="font-bold">`)
		h.text(data.Site.Name)
		h.raw(`</a><a href="/feed.xml">RSS</a></nav></header>`)

		h.raw(`<main class="mx-auto max-w-3xl px-4 py-12">`)
		h.component(body)
		h.raw(`</main>`)

		h.raw(`<footer class="site-footer"><p>`)
		h.text(data.Site.Name)
		if data.Site.Author != "" {
			h.raw(` &middot; `)
			h.text(data.Site.Author)
		}
		h.raw(`</p></footer></body></html>`)
		return h.err
	})
}

// revealAttr marks an element for the one-shot enter animation.
var revealAttr = " " + reveal.Attr + `="` + reveal.Hidden.String() + `"`

// safeSrc sanitizes a frontmatter-provided URL.
func safeSrc(u string) string {
	return markdown.SafeURL(u)
}
