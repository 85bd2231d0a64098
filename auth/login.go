package auth

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/browser"
	"github.com/Nehilsa2/linkedin_scraper/failure"
	"github.com/Nehilsa2/linkedin_scraper/pacing"
)

// DefaultBaseURL is the site the session signs in to
const DefaultBaseURL = "https://www.linkedin.com"

var (
	usernameField = browser.CSS("input#username")
	passwordField = browser.CSS("input#password")
	submitButton  = browser.CSS(`button[type="submit"]`)

	// signedIn appears in the global nav once a session is authenticated
	signedIn = browser.CSS("div.global-nav__me")
)

// Credentials for the login form
type Credentials struct {
	Username string
	Password string
}

// Authenticator signs a browser session in
type Authenticator struct {
	Session browser.Session
	Pacer   pacing.Policy
	BaseURL string
	// Timeout bounds the wait for the signed-in marker
	Timeout time.Duration
	// CookieFile, when set, is used to resume and save sessions
	CookieFile string
}

// NewAuthenticator returns an Authenticator with a 15 second confirmation timeout.
func NewAuthenticator(s browser.Session, p pacing.Policy, baseURL, cookieFile string) *Authenticator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Authenticator{
		Session:    s,
		Pacer:      p,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Timeout:    15 * time.Second,
		CookieFile: cookieFile,
	}
}

// Login fills and submits the login form, then waits for the signed-in
// marker. A timeout is an authentication failure and is not retried.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return failure.Newf(failure.KindConfiguration, "login", "username or password is missing")
	}

	if err := a.Session.Navigate(ctx, a.BaseURL+"/login"); err != nil {
		return failure.Authentication("open login page", err)
	}
	if err := a.Pacer.Pause(ctx, pacing.PageSettle); err != nil {
		return failure.Authentication("open login page", err)
	}

	zap.L().Info("typing username")
	if err := a.fill(ctx, usernameField, creds.Username); err != nil {
		return failure.Authentication("fill username", err)
	}
	zap.L().Info("typing password")
	if err := a.fill(ctx, passwordField, creds.Password); err != nil {
		return failure.Authentication("fill password", err)
	}

	if err := a.Session.Click(ctx, submitButton); err != nil {
		return failure.Authentication("submit login form", err)
	}
	if err := a.Pacer.Pause(ctx, pacing.PageSettle); err != nil {
		return failure.Authentication("submit login form", err)
	}

	if err := a.Session.WaitFor(ctx, signedIn, a.Timeout); err != nil {
		current, _ := a.Session.URL(ctx)
		if strings.Contains(current, "/checkpoint") {
			return failure.Newf(failure.KindAuthentication, "confirm login", "checkpoint detected (captcha or 2FA required) at %s", current)
		}
		return failure.Authentication("confirm login", eris.Wrap(err, "login failed or authentication challenge detected"))
	}

	zap.L().Info("login successful")
	return nil
}

// fill clears and focuses a field, pauses, then types into it
func (a *Authenticator) fill(ctx context.Context, field browser.Locator, value string) error {
	if err := a.Session.WaitFor(ctx, field, a.Timeout); err != nil {
		return err
	}
	if err := a.Session.Clear(ctx, field); err != nil {
		return err
	}
	if err := a.Session.Click(ctx, field); err != nil {
		return err
	}
	if err := a.Pacer.Pause(ctx, pacing.Keystroke); err != nil {
		return err
	}
	return a.Session.Type(ctx, field, value)
}
