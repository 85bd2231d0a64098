package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/browser"
	"github.com/Nehilsa2/linkedin_scraper/failure"
	"github.com/Nehilsa2/linkedin_scraper/pacing"
)

// DefaultNextControls are the "next" controls tried when the URL has no
// page parameter, in order
var DefaultNextControls = []browser.Locator{
	browser.CSS(`button[data-testid="pagination-controls-next-button"]`),
	browser.CSS(`button[aria-label*="Next"]`),
	browser.CSS(`button.artdeco-pagination__button--next`),
	browser.CSS(`button[aria-label="View next page"]`),
	browser.CSS(`button[class*="next"]`),
	browser.WithText("button span", "Next"),
	browser.CSS(`a[class*="next"]`),
}

// selectedPage matches the pagination button for the page being shown
const selectedPage = `button.selected, button.active, button[aria-current="true"], button[aria-current="page"], li.active button, li.selected button`

// Paginator moves a session from one results page to the next
type Paginator struct {
	Session      browser.Session
	Pacer        pacing.Policy
	Terminator   Terminator
	NextControls []browser.Locator
	// DebugDir receives screenshots taken while paginating; empty disables them
	DebugDir string
}

// NewPaginator uses the default terminator and next controls.
func NewPaginator(s browser.Session, p pacing.Policy, debugDir string) *Paginator {
	return &Paginator{
		Session:      s,
		Pacer:        p,
		Terminator:   DefaultTerminator(),
		NextControls: DefaultNextControls,
		DebugDir:     debugDir,
	}
}

// Advance loads the next results page. It returns false with a nil error
// when the current page is the last one, and false with a navigation
// failure when moving on did not work.
func (p *Paginator) Advance(ctx context.Context) (bool, error) {
	ok, err := p.advance(ctx)
	if err != nil {
		p.capture(ctx, "error_next_page.png")
		return false, failure.Navigation("advance results page", err)
	}
	return ok, nil
}

func (p *Paginator) advance(ctx context.Context) (bool, error) {
	current, err := p.Session.URL(ctx)
	if err != nil {
		return false, err
	}
	html, err := p.Session.HTML(ctx)
	if err != nil {
		return false, err
	}

	if signal, last := p.Terminator.Detect(html); last {
		zap.L().Info("last results page detected", zap.String("signal", string(signal)), zap.String("url", current))
		return false, nil
	}
	previous := contentHash(html)

	if n, ok := PageNumber(current); ok {
		next := n + 1
		target := WithPage(current, next)
		zap.L().Info("navigating to next page", zap.Int("page", next), zap.String("url", target))

		if err := p.load(ctx, target, pacing.AfterNavigate); err != nil {
			return false, err
		}
		if err := p.confirm(ctx, next, previous); err != nil {
			return false, err
		}
		zap.L().Info("navigated to next page", zap.Int("page", next))
		return true, nil
	}

	zap.L().Info("url has no page parameter, looking for pagination controls", zap.String("url", current))
	p.capture(ctx, "pagination_debug.png")

	if p.clickNext(ctx, html) {
		return true, nil
	}

	target := FirstPageURL(current)
	zap.L().Info("trying first pagination url", zap.String("url", target))
	if err := p.load(ctx, target, pacing.AfterNavigate); err != nil {
		return false, err
	}

	landed, err := p.Session.URL(ctx)
	if err != nil {
		return false, err
	}
	if !strings.Contains(landed, "page=2") {
		return false, eris.Errorf("page 2 not reached, browser is on %s", landed)
	}
	return true, nil
}

func (p *Paginator) load(ctx context.Context, target string, settle pacing.Span) error {
	if err := p.Session.Navigate(ctx, target); err != nil {
		return err
	}
	return p.Pacer.Pause(ctx, settle)
}

// confirm checks the URL, then the selected pagination button, then
// whether the content changed at all
func (p *Paginator) confirm(ctx context.Context, expected int, previousHash string) error {
	landed, err := p.Session.URL(ctx)
	if err != nil {
		return err
	}
	if n, ok := PageNumber(landed); ok && n == expected {
		return nil
	}

	html, err := p.Session.HTML(ctx)
	if err != nil {
		return err
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		want := strconv.Itoa(expected)
		match := doc.Find(selectedPage).FilterFunction(func(_ int, b *goquery.Selection) bool {
			return strings.TrimSpace(b.Text()) == want
		})
		if match.Length() > 0 {
			return nil
		}
	}

	if contentHash(html) != previousHash {
		zap.L().Debug("page content changed")
		return nil
	}
	return eris.Errorf("page %d not confirmed: url %s, content unchanged", expected, landed)
}

// clickNext activates the first next control that moves the URL onto a
// paginated address
func (p *Paginator) clickNext(ctx context.Context, html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	for _, control := range p.NextControls {
		if browser.Find(doc.Selection, control).Length() == 0 {
			continue
		}

		err := p.Session.Click(ctx, control)
		if err == nil {
			if p.paginated(ctx) {
				zap.L().Info("advanced with next control", zap.Stringer("control", control))
				return true
			}
			continue
		}
		zap.L().Debug("native click failed", zap.Stringer("control", control), zap.Error(err))

		if err := p.Session.ClickScripted(ctx, control); err != nil {
			zap.L().Debug("scripted click failed", zap.Stringer("control", control), zap.Error(err))
			continue
		}
		if p.paginated(ctx) {
			zap.L().Info("advanced with scripted next control", zap.Stringer("control", control))
			return true
		}
	}
	return false
}

func (p *Paginator) paginated(ctx context.Context) bool {
	if err := p.Pacer.Pause(ctx, pacing.AfterClick); err != nil {
		return false
	}
	u, err := p.Session.URL(ctx)
	return err == nil && strings.Contains(u, "page=")
}

func (p *Paginator) capture(ctx context.Context, name string) {
	if p.DebugDir == "" {
		return
	}
	path := filepath.Join(p.DebugDir, name)
	if err := p.Session.Screenshot(ctx, path); err != nil {
		zap.L().Warn("screenshot failed", zap.String("path", path), zap.Error(err))
		return
	}
	zap.L().Info("screenshot saved", zap.String("path", path))
}

// PageNumber returns the value of the page query parameter.
func PageNumber(rawURL string) (int, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	v := u.Query().Get("page")
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// WithPage rewrites the page query parameter to n, leaving every other
// parameter byte for byte as it was.
func WithPage(rawURL string, n int) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	pairs := strings.Split(u.RawQuery, "&")
	replaced := false
	for i, pair := range pairs {
		if key, _, _ := strings.Cut(pair, "="); key == "page" {
			pairs[i] = "page=" + strconv.Itoa(n)
			replaced = true
		}
	}
	if !replaced {
		if u.RawQuery == "" {
			pairs = nil
		}
		pairs = append(pairs, "page="+strconv.Itoa(n))
	}
	u.RawQuery = strings.Join(pairs, "&")
	return u.String()
}

// FirstPageURL appends page=2 to a URL that has never been paginated.
func FirstPageURL(rawURL string) string {
	switch {
	case strings.HasSuffix(rawURL, "?"), strings.HasSuffix(rawURL, "&"):
		return rawURL + "page=2"
	case strings.Contains(rawURL, "?"):
		return rawURL + "&page=2"
	default:
		return rawURL + "?page=2"
	}
}

func contentHash(html string) string {
	sum := sha256.Sum256([]byte(html))
	return hex.EncodeToString(sum[:])
}
