package markdown

import (
	"html"
	"io"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/util"
)

// DefaultStyle is the chroma style used for syntax highlighting.
const DefaultStyle = "dracula"

// Plugins is the text-transform configuration applied by Serialize.
type Plugins struct {
	HeadingAnchors bool   // inject slug ids into headings
	Highlight      bool   // annotate fenced code with syntax classes
	Style          string // chroma style name, DefaultStyle when empty
}

// DefaultPlugins is the fixed configuration posts are built with.
var DefaultPlugins = Plugins{HeadingAnchors: true, Highlight: true, Style: DefaultStyle}

// Names lists the enabled plugins in a stable order.
func (p Plugins) Names() []string {
	names := []string{}
	if p.HeadingAnchors {
		names = append(names, "heading-slug")
	}
	if p.Highlight {
		names = append(names, "highlight:"+p.style())
	}
	return names
}

func (p Plugins) style() string {
	if p.Style == "" {
		return DefaultStyle
	}
	return p.Style
}

func (p Plugins) highlighter() goldmark.Extender {
	return highlighting.NewHighlighting(
		highlighting.WithStyle(p.style()),
		highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		highlighting.WithWrapperRenderer(renderCodeWrapper),
	)
}

// HighlightCSS writes the stylesheet matching the classes emitted for style.
func HighlightCSS(w io.Writer, style string) error {
	if style == "" {
		style = DefaultStyle
	}
	return chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(w, styles.Get(style))
}

// renderCodeWrapper adds the language badge around a code block. Chroma
// writes its own <pre> for highlighted blocks; plain blocks get ours.
func renderCodeWrapper(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	lang, ok := c.Language()
	badge := ok && len(lang) > 0
	if entering {
		if badge {
			l := html.EscapeString(string(lang))
			_, _ = w.WriteString(`<div class="code-block-wrapper"><span class="code-lang code-lang-` + l + `">` + l + `</span>`)
		}
		if !c.Highlighted() {
			if badge {
				_, _ = w.WriteString(`<pre class="code-block"><code class="language-` + html.EscapeString(string(lang)) + `">`)
			} else {
				_, _ = w.WriteString(`<pre class="code-block"><code>`)
			}
		}
		return
	}
	if !c.Highlighted() {
		_, _ = w.WriteString("</code></pre>")
	}
	if badge {
		_, _ = w.WriteString("</div>")
	}
	_ = w.WriteByte('\n')
}
