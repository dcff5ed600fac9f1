package views

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/staticblog/content"
)

// Asset paths written by the site generator.
const (
	HighlightCSSPath = "/assets/chroma.css"
	RevealJSPath     = "/assets/reveal.js"
	AnalyticsJSPath  = "/assets/analytics.js"
)

// DateFormat renders published dates, e.g. "Fri, Mar 1, 2024".
const DateFormat = "Mon, Jan 2, 2006"

// htmlWriter writes markup and stops at the first error.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTMLWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (h *htmlWriter) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (h *htmlWriter) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (h *htmlWriter) component(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

// FormatDate formats a header's published date for display. Unparseable
// dates are shown as written.
func FormatDate(h content.Header) string {
	t, err := h.PublishedTime()
	if err != nil {
		return h.Published
	}
	return t.Format(DateFormat)
}

// ViewsLabel returns "1 view" or "N views".
func ViewsLabel(n int) string {
	if n == 1 {
		return "1 view"
	}
	return strconv.Itoa(n) + " views"
}

// EditLink returns the source link of slug under base, or "" when base is empty.
func EditLink(base, slug string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/blog/" + slug + ".mdx"
}

// TagClass returns CSS classes for a tag pill.
func TagClass() string {
	return "inline-flex items-center rounded border border-ink dark:border-white/30 bg-stone-100 dark:bg-neutral-700 px-2.5 py-1 text-[11px] font-semibold uppercase tracking-[0.12em]"
}
