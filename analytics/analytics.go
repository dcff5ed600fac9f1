// Package analytics records page visits and serves the per-post view counts
// that static builds embed into each page.
package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// Visit is a single human page view.
type Visit struct {
	VisitorID  string
	IPHash     string
	Browser    string
	Device     string
	Path       string
	Referrer   string
	ScreenSize string
	Timestamp  time.Time
}

// BotVisit is a page view from a crawler. Bot visits never count as views.
type BotVisit struct {
	BotName   string
	IPHash    string
	UserAgent string
	Path      string
	Timestamp time.Time
}

// PageStat is the view count of one path.
type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

// BlogPaths returns the request paths that count as views of slug.
func BlogPaths(slug string) []string {
	return []string{"/blog/" + slug + "/", "/blog/" + slug}
}

// SlugFromPath returns the slug of a post path, or "" for other paths.
func SlugFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/blog/")
	if !ok {
		return ""
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

func hash16(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])[:16]
}

// HashIP returns a salted, truncated hash of ip.
func HashIP(salt, ip string) string {
	return hash16(salt, ip)
}

// VisitorID returns an anonymous visitor fingerprint from ip and user agent.
func VisitorID(salt, ip, userAgent string) string {
	return hash16(salt, ip, userAgent)
}

type uaRule struct {
	needles []string
	name    string
}

// Order matters: more specific patterns come first.
var (
	browserRules = []uaRule{
		{[]string{"firefox"}, "Firefox"},
		{[]string{"opera", "opr/"}, "Opera"},
		{[]string{"edg"}, "Edge"},
		{[]string{"chrome"}, "Chrome"},
		{[]string{"safari"}, "Safari"},
	}
	deviceRules = []uaRule{
		{[]string{"tablet", "ipad"}, "Tablet"},
		{[]string{"mobile"}, "Mobile"},
	}
	botRules = []uaRule{
		{[]string{"googlebot"}, "Googlebot"},
		{[]string{"bingbot"}, "Bingbot"},
		{[]string{"duckduckbot"}, "DuckDuckBot"},
		{[]string{"yandex"}, "Yandex"},
		{[]string{"baidu"}, "Baidu"},
		{[]string{"facebookexternalhit"}, "Facebook"},
		{[]string{"twitterbot"}, "Twitterbot"},
		{[]string{"linkedinbot"}, "LinkedIn"},
		{[]string{"ahrefsbot"}, "Ahrefs"},
		{[]string{"semrushbot"}, "SEMrush"},
		{[]string{"slurp"}, "Yahoo Slurp"},
		{[]string{"crawler", "crawl", "spider", "scrape"}, "Generic Crawler"},
		{[]string{"bot"}, "Other Bot"},
	}
)

func match(rules []uaRule, ua, fallback string) string {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(ua, n) {
				return r.name
			}
		}
	}
	return fallback
}

// ParseUserAgent extracts a coarse browser and device class.
func ParseUserAgent(ua string) (browser, device string) {
	ua = strings.ToLower(ua)
	return match(browserRules, ua, "Other"), match(deviceRules, ua, "Desktop")
}

// BotName returns the crawler name for ua, or "" for human user agents.
func BotName(ua string) string {
	return match(botRules, strings.ToLower(ua), "")
}

var referrerDomain = regexp.MustCompile(`^https?://(?:www\.)?([^/:?#]+)`)

// CleanReferrer reduces a referrer URL to its domain.
func CleanReferrer(ref string) string {
	if ref == "" {
		return "Direct"
	}
	if m := referrerDomain.FindStringSubmatch(ref); len(m) > 1 {
		return strings.ToLower(m[1])
	}
	return "Other"
}
