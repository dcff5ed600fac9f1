// Package markdown serializes MDX/Markdown post bodies into renderable HTML.
package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// ErrMalformed is returned for input the serializer refuses to render.
var ErrMalformed = errors.New("markdown: malformed content")

// Heading is one entry of a post's table of contents.
type Heading struct {
	Level int    `json:"level"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

// Serialized is the renderable form of a post body. It is a pure function of
// the raw text and the plugin set.
type Serialized struct {
	HTML    string    `json:"html"`
	TOC     []Heading `json:"toc,omitempty"`
	Plugins []string  `json:"plugins"`
}

// reESM matches the first line of a top-level MDX import/export statement.
var reESM = regexp.MustCompile(`^(import\s+(\S.*\sfrom\s+)?['"{*]|export\s+(const|let|var|default|function|async|class|\{|\*))`)

// Serialize converts raw into HTML using the given plugins.
func Serialize(raw string, plugins Plugins) (Serialized, error) {
	if err := Validate(raw); err != nil {
		return Serialized{}, err
	}
	src := []byte(stripESM(raw))

	md := plugins.newMarkdown()
	ctx := parser.NewContext()
	doc := md.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, src, doc); err != nil {
		return Serialized{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := Serialized{
		HTML:    buf.String(),
		Plugins: plugins.Names(),
	}
	if plugins.HeadingAnchors {
		out.TOC = collectHeadings(doc, src)
	}
	return out, nil
}

// Validate reports whether raw can be serialized: it must be valid UTF-8,
// free of NUL bytes and have every fenced code block closed.
func Validate(raw string) error {
	if !utf8.ValidString(raw) {
		return fmt.Errorf("%w: invalid UTF-8", ErrMalformed)
	}
	if i := strings.IndexByte(raw, 0); i >= 0 {
		return fmt.Errorf("%w: NUL byte at offset %d", ErrMalformed, i)
	}
	if line := unclosedFence(raw); line > 0 {
		return fmt.Errorf("%w: code fence opened on line %d is never closed", ErrMalformed, line)
	}
	return nil
}

// Component returns a templ.Component that writes the serialized HTML.
func Component(s Serialized) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s.HTML)
		return err
	})
}

// Markdown returns a templ.Component that serializes content with the
// default plugins at render time.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		s, err := Serialize(content, DefaultPlugins)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, s.HTML)
		return err
	})
}

func (p Plugins) newMarkdown() goldmark.Markdown {
	exts := []goldmark.Extender{extension.GFM}
	if p.Highlight {
		exts = append(exts, p.highlighter())
	}
	parserOpts := []parser.Option{
		parser.WithASTTransformers(util.Prioritized(linkTransformer{}, 500)),
	}
	if p.HeadingAnchors {
		parserOpts = append(parserOpts, parser.WithAutoHeadingID())
	}
	return goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parserOpts...),
		// Posts embed MDX components as raw HTML; URLs are checked by linkTransformer.
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// stripESM drops top-level import/export statements, which carry no prose.
// A statement runs until its brackets balance; a blank line always ends it.
func stripESM(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	var fs fenceState
	depth := 0
	inESM := false
	for _, line := range lines {
		bare := strings.TrimRight(line, "\r")
		if inESM {
			if strings.TrimSpace(bare) == "" {
				inESM = false
				out = append(out, line)
				continue
			}
			depth = bracketDepth(bare, depth)
			inESM = depth > 0
			continue
		}
		if fs.feed(line) {
			out = append(out, line)
			continue
		}
		if bare == strings.TrimLeft(bare, " \t") && reESM.MatchString(bare) {
			depth = bracketDepth(bare, 0)
			inESM = depth > 0
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// bracketDepth adds the bracket nesting opened by line to depth. Brackets
// inside quoted strings and after a // comment are ignored.
func bracketDepth(line string, depth int) int {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return depth
			}
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		}
	}
	return depth
}

// unclosedFence returns the 1-based line of a fence that is never closed, or 0.
func unclosedFence(raw string) int {
	var fs fenceState
	openedAt := 0
	for i, line := range strings.Split(raw, "\n") {
		wasOpen := fs.open != ""
		fs.feed(line)
		if !wasOpen && fs.open != "" {
			openedAt = i + 1
		}
	}
	if fs.open != "" {
		return openedAt
	}
	return 0
}

// fenceState tracks whether a line sequence is inside a fenced code block.
type fenceState struct {
	open string
}

// feed consumes one line and reports whether it belongs to a code block,
// fence lines included.
func (s *fenceState) feed(line string) bool {
	f := fenceMarker(line)
	if s.open == "" {
		if f == "" {
			return false
		}
		s.open = f
		return true
	}
	rest := strings.TrimSpace(strings.TrimRight(line, "\r"))
	if f != "" && f[0] == s.open[0] && len(f) >= len(s.open) && strings.TrimLeft(rest, f[:1]) == "" {
		s.open = ""
	}
	return true
}

// fenceMarker returns the run of backticks or tildes that opens line as a
// code fence, or "" when the line is not a fence.
func fenceMarker(line string) string {
	line = strings.TrimRight(line, "\r")
	indent := len(line) - len(strings.TrimLeft(line, " "))
	if indent > 3 {
		return ""
	}
	line = line[indent:]
	if len(line) < 3 || (line[0] != '`' && line[0] != '~') {
		return ""
	}
	n := 0
	for n < len(line) && line[n] == line[0] {
		n++
	}
	if n < 3 {
		return ""
	}
	if line[0] == '`' && strings.Contains(line[n:], "`") {
		return ""
	}
	return line[:n]
}

func collectHeadings(doc ast.Node, src []byte) []Heading {
	var toc []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		id := ""
		if v, ok := h.AttributeString("id"); ok {
			if b, ok := v.([]byte); ok {
				id = string(b)
			}
		}
		toc = append(toc, Heading{Level: h.Level, ID: id, Text: plainText(h, src)})
		return ast.WalkSkipChildren, nil
	})
	return toc
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeSpan:
			for child := t.FirstChild(); child != nil; child = child.NextSibling() {
				if s, ok := child.(*ast.Text); ok {
					b.Write(s.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// SafeURL validates a link or image destination. Relative paths, fragments
// and http, https, mailto and tel URLs pass; anything else yields "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") || strings.HasPrefix(val, "./") || strings.HasPrefix(val, "../") {
		return val
	}
	parsed, err := url.Parse(val)
	if err != nil {
		return ""
	}
	if parsed.Scheme == "" {
		// Bare relative references such as "images/a.png".
		if strings.Contains(strings.SplitN(val, "/", 2)[0], ":") {
			return ""
		}
		return val
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return val
	default:
		return ""
	}
}

// IsExternal reports whether dest points to another site.
func IsExternal(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return (s == "http" || s == "https") && u.Host != ""
}
