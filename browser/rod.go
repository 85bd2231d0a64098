package browser

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultUserAgent is sent instead of the headless default
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"

// Options configures the Chrome instance behind a RodSession
type Options struct {
	Headless        bool
	UserAgent       string
	Bin             string // Chrome binary; empty lets rod locate or download one
	Width           int
	Height          int
	PageLoadTimeout time.Duration
	WaitTimeout     time.Duration // default wait for a single element
}

func (o *Options) defaults() {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Width == 0 || o.Height == 0 {
		o.Width, o.Height = 1920, 1080
	}
	if o.PageLoadTimeout == 0 {
		o.PageLoadTimeout = 30 * time.Second
	}
	if o.WaitTimeout == 0 {
		o.WaitTimeout = 15 * time.Second
	}
}

// RodSession implements Session on top of go-rod
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	opts     Options
}

// newLauncher builds the Chrome command line
func newLauncher(opts Options) *launcher.Launcher {
	l := launcher.New().
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-notifications").
		Set("start-maximized").
		Set("disable-gpu").
		Set("disable-extensions").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("window-size", fmt.Sprintf("%d,%d", opts.Width, opts.Height)).
		Set("user-agent", opts.UserAgent).
		Headless(opts.Headless).
		Leakless(false)

	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	return l
}

// Launch starts Chrome and opens the tab the run will drive.
func Launch(ctx context.Context, opts Options) (*RodSession, error) {
	opts.defaults()

	l := newLauncher(opts).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "browser: launch chrome")
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, eris.Wrap(err, "browser: connect")
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, eris.Wrap(err, "browser: open page")
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		zap.L().Warn("browser: set viewport", zap.Error(err))
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
		zap.L().Warn("browser: set user agent", zap.Error(err))
	}

	zap.L().Info("browser session started",
		zap.Bool("headless", opts.Headless),
		zap.Int("width", opts.Width),
		zap.Int("height", opts.Height),
	)

	return &RodSession{launcher: l, browser: b, page: page, opts: opts}, nil
}

// RodLauncher adapts Launch to the Launcher signature.
func RodLauncher(opts Options) Launcher {
	return func(ctx context.Context) (Session, error) {
		return Launch(ctx, opts)
	}
}

func (s *RodSession) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.PageLoadTimeout)
	defer cancel()

	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", url)
	}
	if err := p.WaitLoad(); err != nil {
		return eris.Wrapf(err, "browser: wait load %s", url)
	}
	return nil
}

func (s *RodSession) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", eris.Wrap(err, "browser: page info")
	}
	return info.URL, nil
}

func (s *RodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", eris.Wrap(err, "browser: page html")
	}
	return html, nil
}

// element waits up to timeout for the locator to match
func (s *RodSession) element(ctx context.Context, l Locator, timeout time.Duration) (*rod.Element, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	p := s.page.Context(ctx)

	var (
		el  *rod.Element
		err error
	)
	if l.Text != "" {
		el, err = p.ElementR(l.CSS, regexp.QuoteMeta(l.Text))
	} else {
		el, err = p.Element(l.CSS)
	}
	if err != nil {
		cancel()
		return nil, nil, eris.Wrapf(err, "browser: locate %s", l)
	}
	return el, cancel, nil
}

func (s *RodSession) WaitFor(ctx context.Context, l Locator, timeout time.Duration) error {
	_, cancel, err := s.element(ctx, l, timeout)
	if err != nil {
		return err
	}
	cancel()
	return nil
}

func (s *RodSession) Clear(ctx context.Context, l Locator) error {
	el, cancel, err := s.element(ctx, l, s.opts.WaitTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := el.SelectAllText(); err != nil {
		return eris.Wrapf(err, "browser: select text %s", l)
	}
	if err := el.Input(""); err != nil {
		return eris.Wrapf(err, "browser: clear %s", l)
	}
	return nil
}

func (s *RodSession) Click(ctx context.Context, l Locator) error {
	el, cancel, err := s.element(ctx, l, s.opts.WaitTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return eris.Wrapf(err, "browser: click %s", l)
	}
	return nil
}

func (s *RodSession) ClickScripted(ctx context.Context, l Locator) error {
	el, cancel, err := s.element(ctx, l, s.opts.WaitTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := el.Eval(`() => this.click()`); err != nil {
		return eris.Wrapf(err, "browser: scripted click %s", l)
	}
	return nil
}

func (s *RodSession) Type(ctx context.Context, l Locator, text string) error {
	el, cancel, err := s.element(ctx, l, s.opts.WaitTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := el.Input(text); err != nil {
		return eris.Wrapf(err, "browser: type into %s", l)
	}
	return nil
}

func (s *RodSession) PressEnter(ctx context.Context, l Locator) error {
	el, cancel, err := s.element(ctx, l, s.opts.WaitTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := el.Type(input.Enter); err != nil {
		return eris.Wrapf(err, "browser: press enter in %s", l)
	}
	return nil
}

func (s *RodSession) Screenshot(ctx context.Context, path string) error {
	data, err := s.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return eris.Wrap(err, "browser: capture screenshot")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "browser: write screenshot %s", path)
	}
	return nil
}

func (s *RodSession) Cookies(ctx context.Context) ([]Cookie, error) {
	raw, err := s.browser.Context(ctx).GetCookies()
	if err != nil {
		return nil, eris.Wrap(err, "browser: get cookies")
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		})
	}
	return cookies, nil
}

func (s *RodSession) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	if err := s.browser.Context(ctx).SetCookies(params); err != nil {
		return eris.Wrap(err, "browser: set cookies")
	}
	return nil
}

// Close shuts Chrome down and removes its temporary profile.
func (s *RodSession) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	if err != nil {
		return eris.Wrap(err, "browser: close")
	}
	return nil
}
