package markdown

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

const linkClass = "underline decoration-2 underline-offset-4"

// linkTransformer drops unsafe link and image destinations and decorates
// the rest: external links open in a new tab, images load lazily after the first.
type linkTransformer struct{}

func (linkTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	var unsafe []ast.Node
	images := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			dest := SafeURL(string(node.Destination))
			if dest == "" {
				unsafe = append(unsafe, node)
				return ast.WalkSkipChildren, nil
			}
			node.Destination = []byte(dest)
			node.SetAttributeString("class", []byte(linkClass))
			if IsExternal(dest) {
				node.SetAttributeString("target", []byte("_blank"))
				node.SetAttributeString("rel", []byte("noopener noreferrer"))
			}
		case *ast.Image:
			dest := SafeURL(string(node.Destination))
			if dest == "" {
				unsafe = append(unsafe, node)
				return ast.WalkSkipChildren, nil
			}
			node.Destination = []byte(dest)
			images++
			if images == 1 {
				node.SetAttributeString("loading", []byte("eager"))
			} else {
				node.SetAttributeString("loading", []byte("lazy"))
			}
			node.SetAttributeString("decoding", []byte("async"))
		}
		return ast.WalkContinue, nil
	})

	// Unsafe links keep their text; unsafe images keep nothing.
	for _, n := range unsafe {
		parent := n.Parent()
		if parent == nil {
			continue
		}
		if _, isLink := n.(*ast.Link); isLink {
			for c := n.FirstChild(); c != nil; {
				next := c.NextSibling()
				parent.InsertBefore(parent, n, c)
				c = next
			}
		}
		parent.RemoveChild(parent, n)
	}
}
