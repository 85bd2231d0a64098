package auth

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/Nehilsa2/linkedin_scraper/browser"
)

// SaveCookies writes the session's cookies to file
func SaveCookies(ctx context.Context, s browser.Session, file string) error {
	cookies, err := s.Cookies(ctx)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return eris.Wrap(err, "auth: create cookie file")
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(cookies)
}

// LoadCookies restores cookies saved by SaveCookies into the session
func LoadCookies(ctx context.Context, s browser.Session, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return eris.Wrap(err, "auth: open cookie file")
	}
	defer f.Close()

	var cookies []browser.Cookie
	if err := json.NewDecoder(f).Decode(&cookies); err != nil {
		return eris.Wrap(err, "auth: decode cookie file")
	}
	if len(cookies) == 0 {
		return eris.New("auth: cookie file is empty")
	}

	return s.SetCookies(ctx, cookies)
}
