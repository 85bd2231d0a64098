package search

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Signal names the evidence that a results page is the last one
type Signal string

const (
	SignalNextDisabled Signal = "next-control-disabled"
	SignalNextAbsent   Signal = "next-control-absent"
	SignalEndMessage   Signal = "end-of-results-message"
	SignalFewResults   Signal = "few-results"
	SignalEndInMarkup  Signal = "end-phrase-in-markup"
)

// Terminator decides whether the current results page is the last one.
// All checks are heuristics against LinkedIn markup; with no evidence the
// page is treated as not being the last.
type Terminator struct {
	// NextControls matches pagination "next" buttons
	NextControls string
	// Pagination matches a rendered pagination bar
	Pagination string
	// EndMessages are looked for, case-insensitively, in the own text of
	// p, div and span elements
	EndMessages []string
	// ResultItems matches one result per element
	ResultItems string
	// SmallPage: a page with fewer results than this (but at least one)
	// is taken as the last
	SmallPage int
	// MarkupPhrases are looked for in the lowercased raw markup
	MarkupPhrases []string
}

// DefaultTerminator returns the checks used against live pages.
func DefaultTerminator() Terminator {
	return Terminator{
		NextControls: `button[data-testid="pagination-controls-next-button"], button.artdeco-pagination__button--next, ` +
			`button[aria-label="View next page"], button[class*="next"], button[aria-label*="Next"]`,
		Pagination:   `.artdeco-pagination, [data-testid="pagination-controls"]`,
		EndMessages:  []string{"end of results", "no more results"},
		ResultItems:  `li[class*="search-result"]`,
		SmallPage:    5,
		MarkupPhrases: []string{
			"end of results",
			"no more results",
			"last page",
			"final page",
		},
	}
}

// Detect returns the first signal found in html.
func (t Terminator) Detect(html string) (Signal, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if s, ok := t.detectDOM(doc); ok {
			return s, true
		}
	}

	lower := strings.ToLower(html)
	for _, phrase := range t.MarkupPhrases {
		if strings.Contains(lower, phrase) {
			return SignalEndInMarkup, true
		}
	}
	return "", false
}

func (t Terminator) detectDOM(doc *goquery.Document) (Signal, bool) {
	if t.NextControls != "" {
		next := doc.Find(t.NextControls)
		disabled := next.FilterFunction(func(_ int, b *goquery.Selection) bool {
			return isDisabled(b)
		})
		if disabled.Length() > 0 {
			return SignalNextDisabled, true
		}
		if next.Length() == 0 && t.Pagination != "" && doc.Find(t.Pagination).Length() > 0 {
			return SignalNextAbsent, true
		}
	}

	if len(t.EndMessages) > 0 {
		found := false
		doc.Find("p, div, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.ToLower(ownText(s))
			for _, msg := range t.EndMessages {
				if strings.Contains(text, msg) {
					found = true
					return false
				}
			}
			return true
		})
		if found {
			return SignalEndMessage, true
		}
	}

	if t.ResultItems != "" && t.SmallPage > 0 {
		if n := doc.Find(t.ResultItems).Length(); n > 0 && n < t.SmallPage {
			return SignalFewResults, true
		}
	}

	return "", false
}

func isDisabled(b *goquery.Selection) bool {
	if _, ok := b.Attr("disabled"); ok {
		return true
	}
	if v, _ := b.Attr("aria-disabled"); v == "true" {
		return true
	}
	class, _ := b.Attr("class")
	return strings.Contains(class, "disabled")
}

// ownText joins the element's direct text nodes
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}
