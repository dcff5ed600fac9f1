package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/staticblog/content"
	"github.com/eringen/staticblog/markdown"
)

// Post renders a full post page.
func Post(p PostView, data PageData) templ.Component {
	return Layout(data, PostBody(p, data.Site))
}

// PostBody renders the article without the site chrome.
func PostBody(p PostView, site SiteConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		hd := p.Header

		h.raw(`<article class="flex flex-col gap-8">`)
		h.raw(`<section class="pb-8 border-b border-theme-300 dark:border-theme-700"`, revealAttr, `>`)
		h.raw(`<h1 class="max-w-prose text-3xl md:text-5xl">`)
		h.text(hd.Title)
		h.raw(`</h1><p class="mt-4 md:mt-8 mb-8">`)
		h.text(hd.Summary)
		h.raw(`</p>`)

		h.raw(`<div class="post-meta flex flex-col gap-4 md:flex-row md:items-center md:justify-between">`)
		h.raw(`<div class="flex items-center gap-4"><p class="est-read">`)
		h.text(hd.EstRead)
		h.raw(`</p>`)
		if hd.Views > 0 {
			h.raw(`<p class="views">`)
			h.text(ViewsLabel(hd.Views))
			h.raw(`</p>`)
		}
		h.raw(`</div><time class="text-sm md:text-base"`)
		h.attr("datetime", hd.PublishedISO())
		h.raw(`>`)
		h.text(FormatDate(hd))
		h.raw(`</time></div></section>`)

		h.raw(`<section class="author flex items-center gap-4"`, revealAttr, `>`)
		if src := safeSrc(hd.AuthorImage); src != "" {
			h.raw(`<img class="rounded-full" width="32" height="32"`)
			h.attr("src", src)
			h.attr("alt", hd.AuthorName)
			h.raw(`>`)
		}
		h.raw(`<p>`)
		h.text(hd.AuthorName)
		h.raw(`</p></section>`)

		if src := safeSrc(hd.Thumbnail); src != "" {
			h.raw(`<figure class="relative w-full my-4"><img loading="eager" decoding="async"`)
			h.attr("src", src)
			h.attr("alt", hd.Title)
			h.attr("title", hd.Title)
			h.raw(`></figure>`)
		}

		if len(p.TOC) > 1 {
			tableOfContents(h, p.TOC)
		}

		h.raw(`<section class="prose dark:prose-invert md:prose-lg prose-headings:scroll-mt-24 prose-img:my-4">`)
		h.component(p.Body)
		h.raw(`</section>`)

		if len(hd.Tags) > 0 {
			h.raw(`<ul class="tags flex gap-2">`)
			for _, t := range hd.Tags {
				h.raw(`<li`)
				h.attr("class", TagClass())
				h.raw(`>`)
				h.text(t)
				h.raw(`</li>`)
			}
			h.raw(`</ul>`)
		}
		h.raw(`</article>`)

		if len(p.Related) > 0 {
			h.raw(`<aside class="related mt-12"><h2>Related posts</h2><ul>`)
			for _, r := range p.Related {
				h.raw(`<li`, revealAttr, `><a`)
				h.attr("href", r.Link())
				h.raw(`>`)
				h.text(r.Title)
				h.raw(`</a></li>`)
			}
			h.raw(`</ul></aside>`)
		}

		if link := EditLink(site.EditURL, hd.Slug); link != "" {
			h.raw(`<a class="edit-link" target="_blank" rel="noopener noreferrer"`)
			h.attr("href", link)
			h.raw(`>Edit this page</a>`)
		}
		return h.err
	})
}

func tableOfContents(h *htmlWriter, toc []markdown.Heading) {
	h.raw(`<nav class="toc" aria-label="Table of contents"><ol>`)
	for _, e := range toc {
		h.raw(`<li class="toc-level-`, strconv.Itoa(e.Level), `"><a`)
		h.attr("href", "#"+e.ID)
		h.raw(`>`)
		h.text(e.Text)
		h.raw(`</a></li>`)
	}
	h.raw(`</ol></nav>`)
}

// Index renders the post listing.
func Index(posts []content.Header, data PageData) templ.Component {
	list := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<section class="intro"><h1>`)
		h.text(data.Site.Name)
		h.raw(`</h1>`)
		if data.Site.Description != "" {
			h.raw(`<p>`)
			h.text(data.Site.Description)
			h.raw(`</p>`)
		}
		h.raw(`</section>`)
		if len(posts) == 0 {
			h.raw(`<p class="empty">No posts yet.</p>`)
			return h.err
		}
		h.raw(`<ul class="post-list flex flex-col gap-8">`)
		for _, p := range posts {
			h.raw(`<li class="post-card"`, revealAttr, `><a`)
			h.attr("href", p.Link())
			h.raw(`><h2>`)
			h.text(p.Title)
			h.raw(`</h2></a><p>`)
			h.text(p.Summary)
			h.raw(`</p><time`)
			h.attr("datetime", p.PublishedISO())
			h.raw(`>`)
			h.text(FormatDate(p))
			h.raw(`</time></li>`)
		}
		h.raw(`</ul>`)
		return h.err
	})
	return Layout(data, list)
}

// NotFound renders the 404 page.
func NotFound(data PageData) templ.Component {
	return Layout(data, message("Page not found", "The page you are looking for does not exist."))
}

// ServerError renders the 500 page.
func ServerError(data PageData) templ.Component {
	return Layout(data, message("Something went wrong", "Please try again later."))
}

func message(title, body string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<section class="message"><h1>`)
		h.text(title)
		h.raw(`</h1><p>`)
		h.text(body)
		h.raw(`</p><a href="/">Back home</a></section>`)
		return h.err
	})
}
