// Package browsertest provides an in-memory browser.Session that serves
// fixture markup, for tests that exercise navigation logic without Chrome.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nehilsa2/linkedin_scraper/browser"
)

const blankPage = "<html><head></head><body></body></html>"

// Session is a scripted browser. Pages maps a URL to the markup served for
// it; unknown URLs render a blank document.
type Session struct {
	Pages map[string]string

	// Redirects maps a requested URL to the URL the browser lands on.
	Redirects map[string]string
	// ClickTargets maps a locator's CSS selector to the URL loaded when a
	// matching element is clicked.
	ClickTargets map[string]string
	// EnterTargets maps a locator's CSS selector to the URL loaded when
	// Enter is pressed inside a matching element.
	EnterTargets map[string]string
	// NativeClickFails makes Click fail for these selectors, so only the
	// scripted click works.
	NativeClickFails map[string]bool
	// NavigateErr fails navigation to specific URLs.
	NavigateErr map[string]error

	Navigations []string
	Clicks      []browser.Locator
	Typed       map[string]string
	Screenshots []string
	Closed      bool

	current string
	cookies []browser.Cookie
}

// New returns a Session serving pages.
func New(pages map[string]string) *Session {
	return &Session{
		Pages:            pages,
		Redirects:        map[string]string{},
		ClickTargets:     map[string]string{},
		EnterTargets:     map[string]string{},
		NativeClickFails: map[string]bool{},
		NavigateErr:      map[string]error{},
		Typed:            map[string]string{},
	}
}

// Launcher returns a browser.Launcher handing out s and counting launches.
func (s *Session) Launcher(launches *int) browser.Launcher {
	return func(context.Context) (browser.Session, error) {
		if launches != nil {
			*launches++
		}
		return s, nil
	}
}

func (s *Session) load(url string) {
	if to, ok := s.Redirects[url]; ok {
		url = to
	}
	s.current = url
}

func (s *Session) document() (*goquery.Document, error) {
	html, ok := s.Pages[s.current]
	if !ok {
		html = blankPage
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *Session) present(l browser.Locator) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	if browser.Find(doc.Selection, l).Length() == 0 {
		return fmt.Errorf("browsertest: %s not found on %s", l, s.current)
	}
	return nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Navigations = append(s.Navigations, url)
	if err := s.NavigateErr[url]; err != nil {
		return err
	}
	s.load(url)
	return nil
}

func (s *Session) URL(context.Context) (string, error) {
	return s.current, nil
}

func (s *Session) HTML(context.Context) (string, error) {
	if html, ok := s.Pages[s.current]; ok {
		return html, nil
	}
	return blankPage, nil
}

func (s *Session) WaitFor(_ context.Context, l browser.Locator, _ time.Duration) error {
	return s.present(l)
}

func (s *Session) Clear(_ context.Context, l browser.Locator) error {
	if err := s.present(l); err != nil {
		return err
	}
	delete(s.Typed, l.String())
	return nil
}

func (s *Session) Click(ctx context.Context, l browser.Locator) error {
	if s.NativeClickFails[l.CSS] {
		return fmt.Errorf("browsertest: element %s is not clickable", l)
	}
	return s.ClickScripted(ctx, l)
}

func (s *Session) ClickScripted(_ context.Context, l browser.Locator) error {
	if err := s.present(l); err != nil {
		return err
	}
	s.Clicks = append(s.Clicks, l)
	if to, ok := s.ClickTargets[l.CSS]; ok {
		s.load(to)
	}
	return nil
}

func (s *Session) Type(_ context.Context, l browser.Locator, text string) error {
	if err := s.present(l); err != nil {
		return err
	}
	s.Typed[l.String()] += text
	return nil
}

func (s *Session) PressEnter(_ context.Context, l browser.Locator) error {
	if err := s.present(l); err != nil {
		return err
	}
	if to, ok := s.EnterTargets[l.CSS]; ok {
		s.load(to)
	}
	return nil
}

func (s *Session) Screenshot(_ context.Context, path string) error {
	s.Screenshots = append(s.Screenshots, path)
	return nil
}

func (s *Session) Cookies(context.Context) ([]browser.Cookie, error) {
	return append([]browser.Cookie(nil), s.cookies...), nil
}

func (s *Session) SetCookies(_ context.Context, cookies []browser.Cookie) error {
	s.cookies = append([]browser.Cookie(nil), cookies...)
	return nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

var _ browser.Session = (*Session)(nil)
