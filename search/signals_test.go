package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	term := DefaultTerminator()

	tests := []struct {
		name   string
		html   string
		want   Signal
		isLast bool
	}{
		{
			name:   "next enabled",
			html:   `<div class="artdeco-pagination"><button aria-label="Next">Next</button></div>`,
			isLast: false,
		},
		{
			name:   "next disabled attribute",
			html:   `<div class="artdeco-pagination"><button aria-label="Next" disabled>Next</button></div>`,
			want:   SignalNextDisabled,
			isLast: true,
		},
		{
			name:   "next aria-disabled",
			html:   `<button class="artdeco-pagination__button--next" aria-disabled="true">Next</button>`,
			want:   SignalNextDisabled,
			isLast: true,
		},
		{
			name:   "next disabled class",
			html:   `<button class="artdeco-pagination__button--next artdeco-button--disabled">Next</button>`,
			want:   SignalNextDisabled,
			isLast: true,
		},
		{
			name:   "pagination without next",
			html:   `<div class="artdeco-pagination"><button aria-label="Previous">Previous</button></div>`,
			want:   SignalNextAbsent,
			isLast: true,
		},
		{
			name:   "end message",
			html:   `<main><p>You've reached the End of Results</p></main>`,
			want:   SignalEndMessage,
			isLast: true,
		},
		{
			name:   "no more results message",
			html:   `<div><span>No more results</span></div>`,
			want:   SignalEndMessage,
			isLast: true,
		},
		{
			name: "few results",
			html: `<ul><li class="search-result">a</li><li class="search-result">b</li></ul>`,
			want: SignalFewResults, isLast: true,
		},
		{
			name: "phrase in attribute only",
			html: `<div data-state="final page"></div>`,
			want: SignalEndInMarkup, isLast: true,
		},
		{
			name:   "no pagination and no markers",
			html:   `<ul><li class="reusable-search__result-container">x</li></ul>`,
			isLast: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, last := term.Detect(tt.html)
			assert.Equal(t, tt.isLast, last)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_FullPageNotLast(t *testing.T) {
	html := `<ul>`
	for i := 0; i < 10; i++ {
		html += `<li class="search-result">r</li>`
	}
	html += `</ul>`

	_, last := DefaultTerminator().Detect(html)
	assert.False(t, last)
}

func TestDetect_ExtractionFixtureNotLast(t *testing.T) {
	_, last := DefaultTerminator().Detect(readFixture(t, "results_ltr.html"))
	assert.False(t, last)
}

func TestDetect_LinkedInNextButtonVariants(t *testing.T) {
	term := DefaultTerminator()

	for _, button := range []string{
		`<button data-testid="pagination-controls-next-button" disabled>Next</button>`,
		`<button aria-label="View next page" aria-disabled="true"><span>Next</span></button>`,
		`<button class="artdeco-pagination__button artdeco-pagination__button--next artdeco-button--disabled">Next</button>`,
	} {
		signal, last := term.Detect(`<html><body><div class="artdeco-pagination">` + button + `</div></body></html>`)
		assert.True(t, last, button)
		assert.Equal(t, SignalNextDisabled, signal, button)
	}

	_, last := term.Detect(`<html><body><div class="artdeco-pagination">
	  <button aria-label="View next page"><span>Next</span></button></div></body></html>`)
	assert.False(t, last, "an enabled next button keeps the walk going")
}
