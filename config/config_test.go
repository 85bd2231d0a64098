package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nehilsa2/linkedin_scraper/failure"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"USERNAME", "PASSWORD", "SCRAPINGDOG_API_KEY", "MONGO_URI", "SCRAPER_SEARCH_MAX_PAGES", "SCRAPER_MONGO_DATABASE"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Search.MaxPages)
	assert.Equal(t, "flexon", cfg.Mongo.Database)
	assert.Equal(t, "jobApplicants", cfg.Mongo.Collection)
	assert.Equal(t, "https://www.linkedin.com", cfg.LinkedIn.BaseURL)
	assert.Equal(t, "https://api.scrapingdog.com/linkedin", cfg.Enrich.BaseURL)
	assert.Equal(t, "linkedin_data.xlsx", cfg.Input.Path)
	assert.Equal(t, "linkedin_results", cfg.ResultsDir())
	assert.Equal(t, 30*time.Second, cfg.Browser.PageLoadTimeout)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoad_EnvFileOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERNAME", "system-user")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("USERNAME=me@example.com\nPASSWORD=pw\nSCRAPINGDOG_API_KEY=key-123\nMONGO_URI=mongodb://db:27017\n"), 0o600))

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "me@example.com", cfg.Credentials.Username)
	assert.Equal(t, "pw", cfg.Credentials.Password)
	assert.Equal(t, "key-123", cfg.Enrich.APIKey)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "nope.env")})
	assert.True(t, failure.Is(err, failure.KindConfiguration))
}

func TestLoad_ConfigFileAndPrefixedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCRAPER_MONGO_DATABASE", "staging")

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
input:
  path: data/input.xlsx
search:
  max_pages: 2
browser:
  headless: true
`), 0o600))

	cfg, err := Load(LoadOptions{ConfigFile: file})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Search.MaxPages)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "staging", cfg.Mongo.Database)
	assert.Equal(t, filepath.Join("data", "linkedin_results"), cfg.ResultsDir())

	cfg.Export.Dir = "/srv/out"
	assert.Equal(t, "/srv/out", cfg.ResultsDir())
}

func TestLoad_ZeroPagesFailsValidateUntilOverridden(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCRAPER_SEARCH_MAX_PAGES", "0")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Search.MaxPages)

	err = cfg.Validate()
	assert.True(t, failure.Is(err, failure.KindConfiguration))

	cfg.Search.MaxPages = 3
	assert.NoError(t, cfg.Validate())
}

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, Credentials{Username: "u", Password: "p"}.Validate())

	err := Credentials{Username: "u"}.Validate()
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindConfiguration))
	assert.Contains(t, err.Error(), "PASSWORD")
	assert.NotContains(t, err.Error(), "USERNAME")

	err = Credentials{}.Validate()
	assert.Contains(t, err.Error(), "USERNAME and PASSWORD")
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
