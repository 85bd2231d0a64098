package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nehilsa2/linkedin_scraper/browser/browsertest"
	"github.com/Nehilsa2/linkedin_scraper/failure"
	"github.com/Nehilsa2/linkedin_scraper/pacing"
)

const (
	allURL     = "https://www.linkedin.com/search/results/all/"
	allRoleURL = "https://www.linkedin.com/search/results/all/?keywords=Data%20Analyst"

	allPage = `<html><body>
	  <input class="search-global-typeahead__input" placeholder="Search">
	</body></html>`
	allResultsPage = `<html><body>
	  <input class="search-global-typeahead__input" placeholder="Search">
	  <div class="search-reusables__filter-bar">
	    <button aria-label="Posts">Posts</button>
	    <button aria-label="People">People</button>
	  </div>
	</body></html>`
	peoplePage = `<html><body><div class="search-results__cluster"><ul></ul></div></body></html>`
)

func TestPeopleSearchURL(t *testing.T) {
	assert.Equal(t, peopleURL, PeopleSearchURL("https://www.linkedin.com", "Data Analyst"))
	assert.Equal(t,
		"https://www.linkedin.com/search/results/people/?keywords=C%2B%2B%20%26%20Go",
		PeopleSearchURL("https://www.linkedin.com/", "C++ & Go"))
}

func newSearchSession() *browsertest.Session {
	s := browsertest.New(map[string]string{
		allURL:     allPage,
		allRoleURL: allResultsPage,
		peopleURL:  peoplePage,
	})
	s.EnterTargets["input.search-global-typeahead__input"] = allRoleURL
	s.ClickTargets[`button[aria-label*="People"]`] = peopleURL
	return s
}

func TestSubmit_ThroughUI(t *testing.T) {
	s := newSearchSession()

	err := NewSearcher(s, pacing.None{}, "").Submit(context.Background(), "Data Analyst")
	require.NoError(t, err)

	assert.Equal(t, []string{allURL}, s.Navigations)
	assert.Equal(t, "Data Analyst", s.Typed["input.search-global-typeahead__input"])

	u, _ := s.URL(context.Background())
	assert.Equal(t, peopleURL, u)
}

func TestSubmit_FilterMissingUsesDirectURL(t *testing.T) {
	s := newSearchSession()
	s.Pages[allRoleURL] = allPage

	err := NewSearcher(s, pacing.None{}, "").Submit(context.Background(), "Data Analyst")
	require.NoError(t, err)

	assert.Equal(t, []string{allURL, peopleURL}, s.Navigations)
}

func TestSubmit_SearchBoxMissingUsesDirectURL(t *testing.T) {
	s := newSearchSession()
	s.Pages[allURL] = `<html><body>checkpoint</body></html>`

	err := NewSearcher(s, pacing.None{}, "").Submit(context.Background(), "Data Analyst")
	require.NoError(t, err)

	assert.Equal(t, peopleURL, s.Navigations[len(s.Navigations)-1])
	assert.Empty(t, s.Typed)
}

func TestSubmit_NoResultsClusterReloadsDirectURL(t *testing.T) {
	s := newSearchSession()
	s.Pages[peopleURL] = `<html><body><ul></ul></body></html>`

	err := NewSearcher(s, pacing.None{}, "").Submit(context.Background(), "Data Analyst")
	require.NoError(t, err)

	assert.Equal(t, []string{allURL, peopleURL}, s.Navigations)
}

func TestSubmit_DirectURLFailure(t *testing.T) {
	s := newSearchSession()
	s.Pages[allURL] = `<html></html>`
	s.NavigateErr[peopleURL] = errors.New("net::ERR_NAME_NOT_RESOLVED")

	err := NewSearcher(s, pacing.None{}, "").Submit(context.Background(), "Data Analyst")
	require.Error(t, err)
	assert.Equal(t, failure.KindNavigation, failure.KindOf(err))
}
