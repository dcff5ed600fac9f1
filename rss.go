package staticblog

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/eringen/staticblog/content"
)

// dublinCoreNS carries dc:creator; RSS 2.0 <author> must be an email address.
const dublinCoreNS = "http://purl.org/dc/elements/1.1/"

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	DC      string     `xml:"xmlns:dc,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Creator     string `xml:"dc:creator,omitempty"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// WriteFeed writes an RSS 2.0 feed of posts.
func WriteFeed(w io.Writer, cfg SiteConfig, posts []content.Header) error {
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		pubDate := ""
		if t, err := p.PublishedTime(); err == nil {
			pubDate = t.Format(time.RFC1123Z)
		}
		postURL := BuildURL(cfg.URL, "blog", p.Slug)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Summary,
			Creator:     p.AuthorName,
			PubDate:     pubDate,
			GUID:        postURL,
		})
	}
	feed := rssXML{
		Version: "2.0",
		DC:      dublinCoreNS,
		Channel: rssChannel{
			Title:       cfg.Name,
			Link:        cfg.URL,
			Description: cfg.Description,
			Items:       items,
		},
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(feed)
}
