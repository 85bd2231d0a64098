package auth

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/pacing"
)

// EnsureAuthenticated guarantees a logged-in session, reusing saved
// cookies when they are still accepted
func (a *Authenticator) EnsureAuthenticated(ctx context.Context, creds Credentials) error {
	if a.resume(ctx) {
		return nil
	}

	zap.L().Info("performing fresh login")
	if err := a.Login(ctx, creds); err != nil {
		return err
	}

	if a.CookieFile != "" {
		if err := SaveCookies(ctx, a.Session, a.CookieFile); err != nil {
			// the run can go on without a saved session
			zap.L().Warn("failed to save cookies", zap.String("file", a.CookieFile), zap.Error(err))
		} else {
			zap.L().Info("cookies saved", zap.String("file", a.CookieFile))
		}
	}
	return nil
}

func (a *Authenticator) resume(ctx context.Context) bool {
	if a.CookieFile == "" {
		return false
	}
	if err := LoadCookies(ctx, a.Session, a.CookieFile); err != nil {
		zap.L().Debug("no reusable cookies", zap.String("file", a.CookieFile), zap.Error(err))
		return false
	}

	if err := a.Session.Navigate(ctx, a.BaseURL+"/feed/"); err != nil {
		zap.L().Warn("could not open feed with saved cookies", zap.Error(err))
		return false
	}
	if err := a.Pacer.Pause(ctx, pacing.PageSettle); err != nil {
		return false
	}

	current, err := a.Session.URL(ctx)
	if err != nil || strings.Contains(current, "/login") || strings.Contains(current, "/checkpoint") {
		zap.L().Info("saved cookies expired or invalid")
		return false
	}

	zap.L().Info("authenticated using existing cookies")
	return true
}
