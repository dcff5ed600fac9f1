package staticblog

import (
	"encoding/json"
	"strings"

	"github.com/eringen/staticblog/content"
)

const schemaContext = "https://schema.org"

type jsonLDThing struct {
	Type string `json:"@type"`
	Name string `json:"name,omitempty"`
	ID   string `json:"@id,omitempty"`
}

type websiteJSONLD struct {
	Context     string       `json:"@context"`
	Type        string       `json:"@type"`
	Name        string       `json:"name"`
	URL         string       `json:"url"`
	Description string       `json:"description,omitempty"`
	Author      *jsonLDThing `json:"author,omitempty"`
}

type blogPostingJSONLD struct {
	Context          string       `json:"@context"`
	Type             string       `json:"@type"`
	Headline         string       `json:"headline"`
	Description      string       `json:"description,omitempty"`
	DatePublished    string       `json:"datePublished,omitempty"`
	URL              string       `json:"url"`
	MainEntityOfPage jsonLDThing  `json:"mainEntityOfPage"`
	Author           *jsonLDThing `json:"author,omitempty"`
	Publisher        *jsonLDThing `json:"publisher,omitempty"`
	Image            string       `json:"image,omitempty"`
	Keywords         string       `json:"keywords,omitempty"`
}

// WebsiteJsonLD returns the WebSite schema for the home page.
func WebsiteJsonLD(cfg SiteConfig) string {
	return marshalJsonLD(websiteJSONLD{
		Context:     schemaContext,
		Type:        "WebSite",
		Name:        cfg.Name,
		URL:         BuildURL(cfg.URL),
		Description: cfg.Description,
		Author:      person(cfg.Author),
	})
}

// BlogPostingJsonLD returns the BlogPosting schema for a post page. The
// post's author wins over the site author.
func BlogPostingJsonLD(post content.Header, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "blog", post.Slug)
	author := post.AuthorName
	if author == "" {
		author = cfg.Author
	}
	doc := blogPostingJSONLD{
		Context:          schemaContext,
		Type:             "BlogPosting",
		Headline:         post.Title,
		Description:      post.Summary,
		DatePublished:    post.PublishedISO(),
		URL:              postURL,
		MainEntityOfPage: jsonLDThing{Type: "WebPage", ID: postURL},
		Author:           person(author),
		Image:            AbsoluteURL(cfg.URL, post.Thumbnail),
		Keywords:         strings.Join(post.Tags, ", "),
	}
	if cfg.Name != "" {
		doc.Publisher = &jsonLDThing{Type: "Organization", Name: cfg.Name}
	}
	return marshalJsonLD(doc)
}

func person(name string) *jsonLDThing {
	if name == "" {
		return nil
	}
	return &jsonLDThing{Type: "Person", Name: name}
}

// marshalJsonLD encodes v for a <script> block; json.Marshal escapes <, >
// and & so the payload cannot close the tag.
func marshalJsonLD(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
