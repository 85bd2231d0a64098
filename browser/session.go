// Package browser wraps the single browser session a scrape run drives.
package browser

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Locator addresses an element by CSS selector, optionally narrowed to
// elements whose text contains Text.
type Locator struct {
	CSS  string
	Text string
}

// CSS returns a locator for a plain selector.
func CSS(selector string) Locator {
	return Locator{CSS: selector}
}

// WithText narrows a selector to elements containing text.
func WithText(selector, text string) Locator {
	return Locator{CSS: selector, Text: text}
}

func (l Locator) String() string {
	if l.Text == "" {
		return l.CSS
	}
	return l.CSS + " ~ " + `"` + l.Text + `"`
}

// Find evaluates a locator against parsed markup.
func Find(root *goquery.Selection, l Locator) *goquery.Selection {
	sel := root.Find(l.CSS)
	if l.Text == "" {
		return sel
	}
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), l.Text)
	})
}

// Cookie is the subset of a browser cookie needed to restore a session
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Session is one browser tab driven for the whole run. It is owned by the
// run orchestrator and closed when the run ends.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// URL returns the address currently loaded.
	URL(ctx context.Context) (string, error)
	// HTML returns the rendered markup of the current document.
	HTML(ctx context.Context) (string, error)

	// WaitFor blocks until the locator matches or timeout elapses.
	WaitFor(ctx context.Context, l Locator, timeout time.Duration) error
	Clear(ctx context.Context, l Locator) error
	Click(ctx context.Context, l Locator) error
	// ClickScripted dispatches a click from page script, for controls
	// that reject native input.
	ClickScripted(ctx context.Context, l Locator) error
	Type(ctx context.Context, l Locator, text string) error
	PressEnter(ctx context.Context, l Locator) error

	Screenshot(ctx context.Context, path string) error

	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error

	Close() error
}

// Launcher opens a new session.
type Launcher func(ctx context.Context) (Session, error)
