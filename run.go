package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/browser"
	"github.com/Nehilsa2/linkedin_scraper/config"
	"github.com/Nehilsa2/linkedin_scraper/enrich"
	"github.com/Nehilsa2/linkedin_scraper/export"
	"github.com/Nehilsa2/linkedin_scraper/pacing"
	"github.com/Nehilsa2/linkedin_scraper/persistence"
	"github.com/Nehilsa2/linkedin_scraper/workflow"
)

func runScrape(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// nothing touches the network before credentials and role are known
	if err := cfg.Credentials.Validate(); err != nil {
		zap.L().Error("cannot start", zap.Error(err))
		return err
	}
	role, err := config.ReadRole(cfg.Input.Path)
	if err != nil {
		zap.L().Error("cannot read role", zap.String("input", cfg.Input.Path), zap.Error(err))
		return err
	}
	zap.L().Info("loaded search role", zap.String("role", role), zap.String("input", cfg.Input.Path))

	sink, err := persistence.ConnectMongo(ctx, persistence.MongoOptions{
		URI:        cfg.Mongo.URI,
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
		Timeout:    cfg.Mongo.Timeout,
	})
	if err != nil {
		zap.L().Error("mongo unavailable", zap.Error(err))
		return err
	}
	defer func() {
		if err := sink.Close(context.Background()); err != nil {
			zap.L().Warn("mongo disconnect failed", zap.Error(err))
		}
	}()

	runner := &workflow.Runner{
		Credentials: cfg.Credentials,
		Role:        workflow.StaticRole(role),
		Launcher: browser.RodLauncher(browser.Options{
			Headless:        cfg.Browser.Headless,
			UserAgent:       cfg.Browser.UserAgent,
			Bin:             cfg.Browser.Bin,
			PageLoadTimeout: cfg.Browser.PageLoadTimeout,
			WaitTimeout:     cfg.Browser.WaitTimeout,
		}),
		Pacer:       newPacer(cfg.Pacing),
		Enricher:    newEnricher(cfg.Enrich),
		Sink:        sink,
		Exporter:    export.NewWriter(cfg.ResultsDir()),
		BaseURL:     cfg.LinkedIn.BaseURL,
		CookieFile:  cfg.LinkedIn.CookieFile,
		DebugDir:    cfg.Browser.DebugDir,
		WaitTimeout: cfg.Browser.WaitTimeout,
		MaxPages:    cfg.Search.MaxPages,
	}

	if cfg.Ledger.Path != "" {
		store, err := persistence.NewStore(cfg.Ledger.Path)
		if err != nil {
			zap.L().Warn("run ledger disabled", zap.String("path", cfg.Ledger.Path), zap.Error(err))
		} else {
			defer store.Close()
			runner.Ledger = store
			logPreviousRun(ctx, store)
		}
	}

	sum, err := runner.Run(ctx)
	zap.L().Info("run summary",
		zap.String("run_id", sum.RunID),
		zap.String("status", sum.Status),
		zap.Int("pages", sum.Pages),
		zap.Int("records", len(sum.Records)),
		zap.Int("inserted", sum.Inserted),
		zap.Int("issues", len(sum.Issues)),
		zap.String("export", sum.ExportPath))
	for _, issue := range sum.Issues {
		zap.L().Warn("run issue", zap.String("kind", string(issue.Kind)), zap.String("op", issue.Op), zap.Error(issue.Err))
	}
	return err
}

func newPacer(c config.PacingConfig) pacing.Policy {
	if c.Factor <= 0 {
		return pacing.None{}
	}
	var p pacing.Policy = pacing.NewRandom(c.Seed)
	if c.Factor != 1 {
		p = pacing.Scaled{Inner: p, Factor: c.Factor}
	}
	return p
}

func newEnricher(c config.EnrichConfig) enrich.Client {
	if c.APIKey == "" {
		zap.L().Warn("SCRAPINGDOG_API_KEY is not set, lookups will be rejected")
	}
	opts := []enrich.Option{enrich.WithRateLimit(c.RatePerSec, 1)}
	if c.BaseURL != "" {
		opts = append(opts, enrich.WithBaseURL(c.BaseURL))
	}
	return enrich.NewClient(c.APIKey, opts...)
}

func logPreviousRun(ctx context.Context, store *persistence.Store) {
	prev, err := store.LastRun(ctx)
	if err != nil {
		zap.L().Warn("could not read previous run", zap.Error(err))
		return
	}
	if prev == nil {
		return
	}
	fields := []zap.Field{
		zap.String("run_id", prev.ID),
		zap.String("role", prev.Role),
		zap.String("status", prev.Status),
		zap.Int("records", prev.Records),
		zap.Time("started_at", prev.StartedAt),
	}
	if prev.Status == persistence.RunStatusInProgress {
		zap.L().Warn("previous run never finished", fields...)
		return
	}
	zap.L().Info("previous run", fields...)
}
