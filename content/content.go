// Package content holds the post model and the file-backed content repository.
package content

import (
	"errors"
	"time"
)

// DateLayout is the layout of the published date stored in frontmatter.
const DateLayout = "2006-01-02"

var (
	// ErrNotFound is returned when no post matches a slug.
	ErrNotFound = errors.New("content: post not found")

	// ErrMalformedFrontmatter is returned when a post's header block cannot be parsed.
	ErrMalformedFrontmatter = errors.New("content: malformed frontmatter")

	// ErrDuplicateSlug is returned when two posts claim the same slug.
	ErrDuplicateSlug = errors.New("content: duplicate slug")
)

// Header is the structured metadata of one post. EstRead and Views are
// computed at build time and never read from the source file.
type Header struct {
	Slug        string   `yaml:"slug" json:"slug"`
	Title       string   `yaml:"title" json:"title"`
	Summary     string   `yaml:"summary" json:"summary"`
	AuthorName  string   `yaml:"author_name" json:"author_name"`
	AuthorImage string   `yaml:"author_image" json:"author_image"`
	Published   string   `yaml:"published" json:"published"`
	Thumbnail   string   `yaml:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Draft       bool     `yaml:"draft,omitempty" json:"-"`

	EstRead string `yaml:"-" json:"est_read"`
	Views   int    `yaml:"-" json:"views"`
}

// Link returns the site-relative path of the post page.
func (h Header) Link() string {
	return "/blog/" + h.Slug + "/"
}

// PublishedTime parses the published date. Both date-only and RFC3339 values are accepted.
func (h Header) PublishedTime() (time.Time, error) {
	if t, err := time.Parse(DateLayout, h.Published); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, h.Published)
}

// PublishedISO returns the published date as a canonical UTC instant, or ""
// when the date cannot be parsed.
func (h Header) PublishedISO() string {
	t, err := h.PublishedTime()
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Clone returns a copy of h that shares no mutable state with it.
func (h Header) Clone() Header {
	if h.Tags != nil {
		h.Tags = append([]string(nil), h.Tags...)
	}
	return h
}

// Post is one post as stored: the raw marked-up body and its header.
type Post struct {
	Header Header
	Raw    string
}
