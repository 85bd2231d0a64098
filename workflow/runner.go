// Package workflow runs a complete scrape: sign in, search for a role, walk
// the results pages, enrich every profile and store the outcome.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/auth"
	"github.com/Nehilsa2/linkedin_scraper/browser"
	"github.com/Nehilsa2/linkedin_scraper/config"
	"github.com/Nehilsa2/linkedin_scraper/enrich"
	"github.com/Nehilsa2/linkedin_scraper/failure"
	"github.com/Nehilsa2/linkedin_scraper/pacing"
	"github.com/Nehilsa2/linkedin_scraper/profile"
	"github.com/Nehilsa2/linkedin_scraper/search"
)

// DefaultMaxPages bounds the results walk when MaxPages is not set
const DefaultMaxPages = 5

// DefaultFlushTimeout bounds the end-of-run writes
const DefaultFlushTimeout = 2 * time.Minute

// Run outcomes reported in Summary.Status
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Sink stores all records of a run in one call
type Sink interface {
	Save(ctx context.Context, records []profile.Record) (int, error)
}

// Exporter writes the records to a file and returns its path
type Exporter interface {
	Write(role string, records []profile.Record) (string, error)
}

// Ledger keeps a local history of runs
type Ledger interface {
	StartRun(ctx context.Context, id, role string, startedAt time.Time) error
	RecordIssue(ctx context.Context, runID string, issue *failure.Error) error
	SaveProfiles(ctx context.Context, runID string, records []profile.Record) error
	FinishRun(ctx context.Context, id string, pages, records int, runErr error) error
}

// Summary describes a finished run
type Summary struct {
	RunID      string
	Role       string
	Pages      int
	Records    []profile.Record
	Issues     []*failure.Error
	ExportPath string
	Inserted   int
	Status     string
}

// Runner wires the pipeline together. Launcher, Enricher, Sink and
// Exporter are required; Ledger is optional.
type Runner struct {
	Credentials config.Credentials
	// Role returns the job title to search for
	Role func() (string, error)

	Launcher browser.Launcher
	Pacer    pacing.Policy
	Enricher enrich.Client
	Sink     Sink
	Exporter Exporter
	Ledger   Ledger

	BaseURL     string
	CookieFile  string
	DebugDir    string
	WaitTimeout time.Duration
	MaxPages    int
	Extractor   *search.Extractor
	// FlushTimeout bounds saving, exporting and ledger writes, which still
	// run after ctx is cancelled
	FlushTimeout time.Duration

	NewID func() string
	Now   func() time.Time
}

// StaticRole returns a role source that always yields role.
func StaticRole(role string) func() (string, error) {
	return func() (string, error) { return role, nil }
}

func (r *Runner) defaults() {
	if r.Pacer == nil {
		r.Pacer = pacing.None{}
	}
	if r.MaxPages < 1 {
		r.MaxPages = DefaultMaxPages
	}
	if r.Extractor == nil {
		r.Extractor = search.NewExtractor()
	}
	if r.FlushTimeout <= 0 {
		r.FlushTimeout = DefaultFlushTimeout
	}
	if r.NewID == nil {
		r.NewID = uuid.NewString
	}
	if r.Now == nil {
		r.Now = time.Now
	}
}

// Run executes the pipeline once. Credentials are checked before the
// browser starts. Fatal failures are returned; recoverable ones end up in
// Summary.Issues. The returned Summary is never nil.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	r.defaults()
	sum := &Summary{RunID: r.NewID(), Status: StatusFailed}

	if err := r.Credentials.Validate(); err != nil {
		zap.L().Error("missing credentials", zap.Error(err))
		return sum, err
	}

	role, err := r.Role()
	if err != nil {
		return sum, err
	}
	sum.Role = role

	log := zap.L().With(zap.String("run_id", sum.RunID), zap.String("role", role))
	log.Info("starting run", zap.Int("max_pages", r.MaxPages))

	ledger := r.Ledger
	if ledger != nil {
		if err := ledger.StartRun(ctx, sum.RunID, role, r.Now()); err != nil {
			log.Warn("ledger unavailable for this run", zap.Error(err))
			ledger = nil
		}
	}

	runErr := r.run(ctx, log, sum)
	if runErr == nil {
		sum.Status = StatusCompleted
	}

	if ledger != nil {
		flushCtx, cancel := r.flushContext(ctx)
		defer cancel()

		for _, issue := range sum.Issues {
			if err := ledger.RecordIssue(flushCtx, sum.RunID, issue); err != nil {
				log.Warn("failed to record issue", zap.Error(err))
			}
		}
		if err := ledger.SaveProfiles(flushCtx, sum.RunID, sum.Records); err != nil {
			log.Warn("failed to record profiles", zap.Error(err))
		}
		if err := ledger.FinishRun(flushCtx, sum.RunID, sum.Pages, len(sum.Records), runErr); err != nil {
			log.Warn("failed to finish run in ledger", zap.Error(err))
		}
	}

	if runErr != nil {
		log.Error("run failed", zap.Error(runErr), zap.Int("records", len(sum.Records)))
		return sum, runErr
	}
	log.Info("run completed",
		zap.Int("pages", sum.Pages),
		zap.Int("records", len(sum.Records)),
		zap.Int("inserted", sum.Inserted),
		zap.Int("issues", len(sum.Issues)),
		zap.String("export", sum.ExportPath))
	return sum, nil
}

func (r *Runner) run(ctx context.Context, log *zap.Logger, sum *Summary) error {
	session, err := r.Launcher(ctx)
	if err != nil {
		return failure.Configuration("launch browser", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("failed to close browser", zap.Error(err))
		}
		log.Info("browser closed")
	}()

	authenticator := auth.NewAuthenticator(session, r.Pacer, r.BaseURL, r.CookieFile)
	creds := auth.Credentials{Username: r.Credentials.Username, Password: r.Credentials.Password}
	if err := authenticator.EnsureAuthenticated(ctx, creds); err != nil {
		return err
	}

	searcher := search.NewSearcher(session, r.Pacer, r.BaseURL)
	if r.WaitTimeout > 0 {
		searcher.WaitTimeout = r.WaitTimeout
	}
	if err := searcher.Submit(ctx, sum.Role); err != nil {
		return err
	}

	r.walk(ctx, log, session, sum)

	flushCtx, cancel := r.flushContext(ctx)
	defer cancel()
	err = r.persist(flushCtx, log, sum)

	if ctx.Err() != nil {
		log.Warn("run interrupted, scraped records were kept", zap.Int("records", len(sum.Records)))
		return errors.Join(err, eris.Wrap(ctx.Err(), "run interrupted"))
	}
	return err
}

// flushContext outlives cancellation of ctx so scraped records still reach
// the sink and the ledger
func (r *Runner) flushContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.FlushTimeout)
}

// walk extracts and enriches each results page until the last page, the
// page cap or a navigation failure
func (r *Runner) walk(ctx context.Context, log *zap.Logger, session browser.Session, sum *Summary) {
	paginator := search.NewPaginator(session, r.Pacer, r.DebugDir)

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			sum.Issues = append(sum.Issues, failure.Navigation("walk results", ctx.Err()))
			return
		}

		log.Info("scraping page", zap.Int("page", page))
		r.scrapePage(ctx, log, session, page, sum)
		sum.Pages = page

		if page >= r.MaxPages {
			log.Info("reached page limit", zap.Int("max_pages", r.MaxPages))
			return
		}

		more, err := paginator.Advance(ctx)
		if err != nil {
			var fe *failure.Error
			if errors.As(err, &fe) {
				sum.Issues = append(sum.Issues, fe)
			} else {
				sum.Issues = append(sum.Issues, failure.Navigation("advance results page", err))
			}
			log.Warn("could not move to the next page", zap.Int("page", page), zap.Error(err))
			return
		}
		if !more {
			log.Info("no more pages available", zap.Int("page", page))
			return
		}
	}
}

func (r *Runner) scrapePage(ctx context.Context, log *zap.Logger, session browser.Session, page int, sum *Summary) {
	pageURL, err := session.URL(ctx)
	if err != nil {
		sum.Issues = append(sum.Issues, failure.Extraction("read page url", err))
		return
	}
	html, err := session.HTML(ctx)
	if err != nil {
		sum.Issues = append(sum.Issues, failure.Extraction("read page markup", err))
		return
	}

	extraction, err := r.Extractor.Extract(pageURL, html)
	if err != nil {
		sum.Issues = append(sum.Issues, failure.Extraction("extract profiles", err))
		return
	}
	sum.Issues = append(sum.Issues, extraction.Skipped...)

	for _, c := range extraction.Candidates {
		result := r.Enricher.Lookup(ctx, profile.Slug(c.ProfileURL))
		if !result.OK() {
			sum.Issues = append(sum.Issues,
				failure.Newf(failure.KindEnrichment, "enrich profile", "%s: %s", c.ProfileURL, result.Failure))
		}

		sum.Records = append(sum.Records, profile.Record{
			Name:       c.Name,
			ProfileURL: c.ProfileURL,
			Enrichment: result,
			Role:       sum.Role,
			Page:       page,
			RunID:      sum.RunID,
			ScrapedAt:  r.Now(),
		})
		log.Debug("profile scraped", zap.String("name", c.Name), zap.String("url", c.ProfileURL), zap.Bool("enriched", result.OK()))
	}
	log.Info("page scraped", zap.Int("page", page), zap.Int("profiles", len(extraction.Candidates)))
}

// persist writes to the sink and then exports; the export runs even when
// the sink failed so the results are not lost
func (r *Runner) persist(ctx context.Context, log *zap.Logger, sum *Summary) error {
	var errs []error

	inserted, err := r.Sink.Save(ctx, sum.Records)
	if err != nil {
		log.Error("saving records failed", zap.Error(err))
		errs = append(errs, err)
	}
	sum.Inserted = inserted

	path, err := r.Exporter.Write(sum.Role, sum.Records)
	if err != nil {
		log.Error("export failed", zap.Error(err))
		errs = append(errs, failure.Persistence("export results", err))
	}
	sum.ExportPath = path

	return errors.Join(errs...)
}
