package content

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SplitFrontmatter separates a `---` delimited YAML block from the body.
// If the document does not start with a delimiter, had is false and body is
// the full input.
func SplitFrontmatter(doc []byte) (fm []byte, body []byte, had bool, err error) {
	nl := []byte("\n")
	if bytes.HasPrefix(doc, []byte("---\r\n")) {
		nl = []byte("\r\n")
	}
	open := append([]byte("---"), nl...)
	if !bytes.HasPrefix(doc, open) {
		return nil, doc, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(doc[start:], open) {
		return []byte{}, doc[start+len(open):], true, nil
	}

	closeSeq := append(append(append([]byte{}, nl...), "---"...), nl...)
	idx := bytes.Index(doc[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter at EOF without a trailing newline is still valid.
		tail := append(append([]byte{}, nl...), "---"...)
		if bytes.HasSuffix(doc, tail) {
			return doc[start : len(doc)-len(tail)+len(nl)], []byte{}, true, nil
		}
		return nil, nil, false, fmt.Errorf("%w: closing delimiter is missing", ErrMalformedFrontmatter)
	}
	end := start + idx + len(nl)
	return doc[start:end], doc[start+idx+len(closeSeq):], true, nil
}

// ParseDocument splits doc and decodes its frontmatter into a Header.
func ParseDocument(doc []byte) (Post, error) {
	fm, body, _, err := SplitFrontmatter(doc)
	if err != nil {
		return Post{}, err
	}
	var h Header
	if len(bytes.TrimSpace(fm)) > 0 {
		if err := yaml.Unmarshal(fm, &h); err != nil {
			return Post{}, fmt.Errorf("%w: %v", ErrMalformedFrontmatter, err)
		}
	}
	// Computed fields are never taken from the source.
	h.EstRead = ""
	h.Views = 0
	return Post{Header: h, Raw: string(body)}, nil
}

// MarshalDocument renders a post back to frontmatter + body form.
func MarshalDocument(p Post) ([]byte, error) {
	fm, err := yaml.Marshal(p.Header)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	buf.WriteString(p.Raw)
	return buf.Bytes(), nil
}
