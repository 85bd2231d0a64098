// Package profile holds the per-profile output of a scrape run.
package profile

import (
	"net/url"
	"strings"
	"time"

	"github.com/Nehilsa2/linkedin_scraper/enrich"
)

// Record is one scraped profile. Records are built once during extraction
// and not modified afterwards.
type Record struct {
	Name       string        `json:"name"`
	ProfileURL string        `json:"profile_url"`
	Enrichment enrich.Result `json:"linkedin_scraping_dog_info"`

	Role      string    `json:"role,omitempty"`
	Page      int       `json:"page,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Canonical resolves href against base and drops the query string and
// fragment. It returns "" when href cannot be turned into an absolute URL.
func Canonical(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if b, err := url.Parse(base); err == nil && base != "" {
		ref = b.ResolveReference(ref)
	}
	if !ref.IsAbs() || ref.Host == "" {
		return ""
	}

	ref.RawQuery = ""
	ref.ForceQuery = false
	ref.Fragment = ""
	ref.RawFragment = ""
	return ref.String()
}

// Slug returns the public identifier following "/in/" in a profile URL,
// or the last path segment when the URL has no "/in/" part.
func Slug(profileURL string) string {
	path := profileURL
	if u, err := url.Parse(profileURL); err == nil {
		path = u.Path
	}

	if _, after, ok := strings.Cut(path, "/in/"); ok {
		slug, _, _ := strings.Cut(after, "/")
		return slug
	}

	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
