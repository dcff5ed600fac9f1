package staticblog

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/eringen/staticblog/content"
)

// maxRelatedPosts bounds the related list rendered under a post.
const maxRelatedPosts = 3

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// AbsoluteURL resolves a site-relative reference such as "/images/a.png"
// against base. Absolute references are returned unchanged.
func AbsoluteURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// RelatedPosts returns up to limit posts sharing a tag with current, most
// shared tags first. Ties keep the order of posts, which is newest first.
func RelatedPosts(current content.Header, posts []content.Header, limit int) []content.Header {
	tags := make(map[string]struct{}, len(current.Tags))
	for _, t := range current.Tags {
		if tag := normalizeTag(t); tag != "" {
			tags[tag] = struct{}{}
		}
	}
	if len(tags) == 0 || limit <= 0 {
		return nil
	}

	type scored struct {
		header content.Header
		shared int
	}
	var matches []scored
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		n := 0
		for _, t := range p.Tags {
			if _, ok := tags[normalizeTag(t)]; ok {
				n++
			}
		}
		if n > 0 {
			matches = append(matches, scored{p, n})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].shared > matches[j].shared
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	related := make([]content.Header, len(matches))
	for i, m := range matches {
		related[i] = m.header
	}
	return related
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
