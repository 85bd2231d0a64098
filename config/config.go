// Package config loads run settings, credentials and the search role.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Nehilsa2/linkedin_scraper/failure"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Browser  BrowserConfig  `yaml:"browser" mapstructure:"browser"`
	LinkedIn LinkedInConfig `yaml:"linkedin" mapstructure:"linkedin"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Pacing   PacingConfig   `yaml:"pacing" mapstructure:"pacing"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Mongo    MongoConfig    `yaml:"mongo" mapstructure:"mongo"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`

	// Credentials come only from USERNAME and PASSWORD in the environment.
	Credentials Credentials `yaml:"-" mapstructure:"-"`
}

// InputConfig locates the workbook holding the search role.
type InputConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	Headless        bool          `yaml:"headless" mapstructure:"headless"`
	Bin             string        `yaml:"bin" mapstructure:"bin"`
	UserAgent       string        `yaml:"user_agent" mapstructure:"user_agent"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" mapstructure:"page_load_timeout"`
	WaitTimeout     time.Duration `yaml:"wait_timeout" mapstructure:"wait_timeout"`
	DebugDir        string        `yaml:"debug_dir" mapstructure:"debug_dir"`
}

// LinkedInConfig holds site settings.
type LinkedInConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	CookieFile string `yaml:"cookie_file" mapstructure:"cookie_file"`
}

// SearchConfig bounds the results walk.
type SearchConfig struct {
	MaxPages int `yaml:"max_pages" mapstructure:"max_pages"`
}

// PacingConfig scales the delays between browser actions. 0 disables them.
type PacingConfig struct {
	Factor float64 `yaml:"factor" mapstructure:"factor"`
	Seed   int64   `yaml:"seed" mapstructure:"seed"`
}

// EnrichConfig holds Scrapingdog API settings.
type EnrichConfig struct {
	APIKey     string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// MongoConfig targets the document store.
type MongoConfig struct {
	URI        string        `yaml:"uri" mapstructure:"uri"`
	Database   string        `yaml:"database" mapstructure:"database"`
	Collection string        `yaml:"collection" mapstructure:"collection"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ExportConfig places the spreadsheet export. An empty Dir means
// "linkedin_results" next to the input workbook.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LedgerConfig locates the SQLite run ledger. An empty path disables it.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Credentials sign the browser session in.
type Credentials struct {
	Username string
	Password string
}

// Validate fails with a configuration error when either value is missing.
func (c Credentials) Validate() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "PASSWORD")
	}
	if len(missing) > 0 {
		return failure.Newf(failure.KindConfiguration, "load credentials",
			"%s not found in environment variables", strings.Join(missing, " and "))
	}
	return nil
}

// CredentialsFromEnv reads USERNAME and PASSWORD.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Username: os.Getenv("USERNAME"),
		Password: os.Getenv("PASSWORD"),
	}
}

// LoadOptions points Load at specific files.
type LoadOptions struct {
	ConfigFile string // optional; defaults to ./config.yaml when present
	EnvFile    string // optional; defaults to ./.env when present
}

// Load reads the .env file, config file and environment.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// .env values win over the process environment, USERNAME included
	if err := godotenv.Overload(envFile); err != nil {
		if opts.EnvFile != "" {
			return nil, failure.Configuration("load env file", err)
		}
		zap.L().Debug("no .env file, using existing environment variables")
	}

	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("enrich.api_key", "SCRAPER_ENRICH_API_KEY", "SCRAPINGDOG_API_KEY")
	_ = v.BindEnv("mongo.uri", "SCRAPER_MONGO_URI", "MONGO_URI")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || opts.ConfigFile != "" {
			return nil, failure.Configuration("read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, failure.Configuration("unmarshal config", err)
	}
	cfg.Credentials = CredentialsFromEnv()

	return &cfg, nil
}

// Validate checks values that have no usable default. Callers run it after
// command-line overrides are applied.
func (c *Config) Validate() error {
	if c.Search.MaxPages < 1 {
		return failure.Newf(failure.KindConfiguration, "validate config", "search.max_pages must be at least 1, got %d", c.Search.MaxPages)
	}
	if c.Input.Path == "" {
		return failure.Newf(failure.KindConfiguration, "validate config", "input.path is empty")
	}
	return nil
}

// ResultsDir is export.dir, or linkedin_results next to the input workbook.
func (c *Config) ResultsDir() string {
	if c.Export.Dir != "" {
		return c.Export.Dir
	}
	return filepath.Join(filepath.Dir(c.Input.Path), "linkedin_results")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.path", "linkedin_data.xlsx")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.page_load_timeout", 30*time.Second)
	v.SetDefault("browser.wait_timeout", 15*time.Second)
	v.SetDefault("browser.debug_dir", ".")
	v.SetDefault("linkedin.base_url", "https://www.linkedin.com")
	v.SetDefault("linkedin.cookie_file", "")
	v.SetDefault("search.max_pages", 5)
	v.SetDefault("pacing.factor", 1.0)
	v.SetDefault("enrich.base_url", "https://api.scrapingdog.com/linkedin")
	v.SetDefault("enrich.rate_per_sec", 1.0)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "flexon")
	v.SetDefault("mongo.collection", "jobApplicants")
	v.SetDefault("mongo.timeout", 30*time.Second)
	v.SetDefault("export.dir", "")
	v.SetDefault("ledger.path", "linkedin_scraper.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
