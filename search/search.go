// submit a role search and narrow it to people
package search

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/browser"
	"github.com/Nehilsa2/linkedin_scraper/failure"
	"github.com/Nehilsa2/linkedin_scraper/pacing"
)

// DefaultBaseURL is the site root every search URL is built from
const DefaultBaseURL = "https://www.linkedin.com"

var (
	searchBox      = browser.CSS("input.search-global-typeahead__input")
	resultsCluster = browser.CSS("div.search-results__cluster")
)

// DefaultPeopleFilters are clicked in order until one succeeds
var DefaultPeopleFilters = []browser.Locator{
	browser.CSS(`button[aria-label*="People"]`),
	browser.WithText("button", "People"),
	browser.WithText("div.search-reusables__filter-bar button", "People"),
}

// Searcher submits a role search through the global search box
type Searcher struct {
	Session     browser.Session
	Pacer       pacing.Policy
	BaseURL     string
	Filters     []browser.Locator
	WaitTimeout time.Duration
}

// NewSearcher returns a Searcher with the default filters.
func NewSearcher(s browser.Session, p pacing.Policy, baseURL string) *Searcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Searcher{
		Session:     s,
		Pacer:       p,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Filters:     DefaultPeopleFilters,
		WaitTimeout: 15 * time.Second,
	}
}

// PeopleSearchURL builds the people results URL for a role.
func PeopleSearchURL(baseURL, role string) string {
	keywords := strings.ReplaceAll(url.QueryEscape(role), "+", "%20")
	return strings.TrimRight(baseURL, "/") + "/search/results/people/?keywords=" + keywords
}

// Submit leaves the session on the first page of people results for role.
// Every UI step falls back to loading the people results URL directly; only
// a failure of that direct load is returned.
func (s *Searcher) Submit(ctx context.Context, role string) error {
	if err := s.submitUI(ctx, role); err != nil {
		zap.L().Warn("search through the UI failed", zap.Error(err))
		return s.direct(ctx, role, "after error")
	}

	if err := s.Session.WaitFor(ctx, resultsCluster, s.WaitTimeout); err != nil {
		return s.direct(ctx, role, "as fallback")
	}
	zap.L().Info("filtered to people results", zap.String("role", role))
	return nil
}

func (s *Searcher) submitUI(ctx context.Context, role string) error {
	if err := s.Session.Navigate(ctx, s.BaseURL+"/search/results/all/"); err != nil {
		return err
	}
	if err := s.Pacer.Pause(ctx, pacing.PageSettle); err != nil {
		return err
	}

	if err := s.Session.Click(ctx, searchBox); err != nil {
		return err
	}
	if err := s.Session.Clear(ctx, searchBox); err != nil {
		return err
	}
	if err := s.Session.Type(ctx, searchBox, role); err != nil {
		return err
	}
	if err := s.Session.PressEnter(ctx, searchBox); err != nil {
		return err
	}
	if err := s.Pacer.Pause(ctx, pacing.PageSettle); err != nil {
		return err
	}

	if !s.applyPeopleFilter(ctx) {
		target := PeopleSearchURL(s.BaseURL, role)
		zap.L().Info("people filter not found, using direct url", zap.String("url", target))
		if err := s.Session.Navigate(ctx, target); err != nil {
			return err
		}
	}
	return s.Pacer.Pause(ctx, pacing.PageSettle)
}

func (s *Searcher) applyPeopleFilter(ctx context.Context) bool {
	for _, f := range s.Filters {
		if err := s.Session.Click(ctx, f); err != nil {
			zap.L().Debug("people filter attempt failed", zap.Stringer("locator", f), zap.Error(err))
			continue
		}
		return true
	}
	return false
}

func (s *Searcher) direct(ctx context.Context, role, why string) error {
	target := PeopleSearchURL(s.BaseURL, role)
	zap.L().Info("using direct people search url "+why, zap.String("url", target))

	if err := s.Session.Navigate(ctx, target); err != nil {
		return failure.Navigation("open people search", err)
	}
	if err := s.Pacer.Pause(ctx, pacing.PageSettle); err != nil {
		return failure.Navigation("open people search", err)
	}
	return nil
}
