package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/staticblog/content"
	"github.com/eringen/staticblog/markdown"
)

// SiteConfig holds the site-wide settings every page needs.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
	EditURL     string // base of "edit this page" links; empty hides them
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// PageData is passed to every page component.
type PageData struct {
	Site      SiteConfig
	Meta      PageMeta
	JsonLD    string
	Analytics bool // include the visit beacon
}

// PostView is a built post ready to render.
type PostView struct {
	Header  content.Header
	Body    templ.Component
	TOC     []markdown.Heading
	Related []content.Header
}

// PageViews is one row of the admin view report.
type PageViews struct {
	Path  string
	Views int
}

// BuildSummary describes the last site generation.
type BuildSummary struct {
	Pages    int
	Duration string
	Finished string
	Error    string
}

// Dashboard is the admin landing page.
type Dashboard struct {
	Posts     []content.Header
	TopPages  []PageViews
	LastBuild BuildSummary
	Message   string
	CSRFToken string
}
