// extract profile links from a rendered results page
package search

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/failure"
	"github.com/Nehilsa2/linkedin_scraper/profile"
)

// Strategy is one way of locating result anchors on a results page
type Strategy struct {
	Name     string
	Selector string
	// Parent uses the parent of each match, when it is an anchor, instead
	// of the match itself.
	Parent bool
}

// DefaultStrategies are tried in order until one matches something
var DefaultStrategies = []Strategy{
	{Name: "ltr-span-anchor", Selector: `span[dir="ltr"]`, Parent: true},
	{Name: "result-container", Selector: `li.reusable-search__result-container a[href*="/in/"]`},
	{Name: "entity-result", Selector: `div.entity-result a[href*="/in/"]`},
	{Name: "profile-link", Selector: `a[href*="/in/"]`},
}

// Candidate is a profile found on a page, before enrichment
type Candidate struct {
	Name       string
	ProfileURL string
}

// Extraction is the outcome of reading one results page
type Extraction struct {
	Strategy   string // name of the strategy that matched, "" when none did
	Candidates []Candidate
	Skipped    []*failure.Error
}

// Extractor turns results markup into candidates
type Extractor struct {
	Strategies []Strategy
}

// NewExtractor uses DefaultStrategies when none are given.
func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Extractor{Strategies: strategies}
}

// Extract reads the candidates from html. Every candidate has a non-empty
// ProfileURL and no two candidates share one.
func (e *Extractor) Extract(pageURL, html string) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, failure.Extraction("parse results page", err)
	}

	out := &Extraction{}
	anchors, strategy := e.locate(doc)
	if anchors == nil {
		zap.L().Info("no profile containers found", zap.String("url", pageURL))
		return out, nil
	}
	out.Strategy = strategy.Name

	seen := make(map[string]bool)
	anchors.Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := profile.Canonical(pageURL, href)
		if link == "" {
			out.Skipped = append(out.Skipped,
				failure.Newf(failure.KindExtraction, "derive profile url", "element %d (%s) has no usable href %q", i, strategy.Name, href))
			return
		}

		name := displayName(a, link)
		if name == "" {
			out.Skipped = append(out.Skipped,
				failure.Newf(failure.KindExtraction, "derive display name", "no name for %s", link))
			return
		}

		if seen[link] {
			return
		}
		seen[link] = true
		out.Candidates = append(out.Candidates, Candidate{Name: name, ProfileURL: link})
	})

	zap.L().Info("extracted profiles",
		zap.String("strategy", strategy.Name),
		zap.Int("elements", anchors.Length()),
		zap.Int("profiles", len(out.Candidates)),
		zap.Int("skipped", len(out.Skipped)),
	)
	return out, nil
}

func (e *Extractor) locate(doc *goquery.Document) (*goquery.Selection, Strategy) {
	for _, s := range e.Strategies {
		sel := doc.Find(s.Selector)
		if s.Parent {
			sel = sel.Parent().Filter("a")
		}
		if sel.Length() > 0 {
			return sel, s
		}
	}
	return nil, Strategy{}
}

// displayName tries the structured title, then the anchor's visible text,
// then the URL slug
func displayName(a *goquery.Selection, link string) string {
	title := a.Find("span.entity-result__title-text")
	if title.Length() == 0 {
		title = a.Closest("div.entity-result__item").Find("span.entity-result__title-text")
	}
	if title.Length() > 0 {
		if name := visibleText(title.First()); name != "" {
			return name
		}
	}

	if name := visibleText(a); name != "" {
		return name
	}

	return profile.Slug(link)
}

// visibleText drops screen-reader-only spans and collapses whitespace
func visibleText(s *goquery.Selection) string {
	c := s.Clone()
	c.Find(".visually-hidden").Remove()
	return strings.Join(strings.Fields(c.Text()), " ")
}
