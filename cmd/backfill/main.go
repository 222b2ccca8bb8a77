package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/halfline/internal/backfill"
	"github.com/fortuna/halfline/internal/config"
	"github.com/fortuna/halfline/internal/feed"
	"github.com/fortuna/halfline/internal/ingest"
	"github.com/fortuna/halfline/internal/ingest/directory"
	"github.com/fortuna/halfline/internal/prediction"
	"github.com/fortuna/halfline/internal/store"
	"github.com/fortuna/halfline/internal/store/repository"
)

const (
	appName    = "halfline-backfill"
	appVersion = "1.0.0"
)

func main() {
	log.Printf("=== %s v%s ===", appName, appVersion)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var (
		dsn          = flag.String("dsn", cfg.Database.DSN, "Postgres DSN")
		season       = flag.Int("season", 0, "Season to backfill, by starting year (e.g. 2023 for 2023-24)")
		startDate    = flag.String("start", "", "Start date (YYYY-MM-DD)")
		endDate      = flag.String("end", "", "End date (YYYY-MM-DD)")
		dryRun       = flag.Bool("dry-run", false, "Dry run (do not call the feed or write to DB)")
		abbreviation = flag.Bool("abbreviations", false, "Fill missing team abbreviations from the directory page and exit")
	)

	flag.Parse()

	if *season == 0 && *startDate == "" && !*abbreviation {
		log.Fatalf("Specify --season, --start/--end, or --abbreviations")
	}

	db, err := store.NewDatabase(*dsn)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	teams := repository.NewTeamRepository(db)

	if *abbreviation {
		if err := runDirectory(ctx, cfg, teams); err != nil {
			log.Fatalf("directory backfill failed: %v", err)
		}
		return
	}

	mode, err := prediction.ParsePushMode(cfg.Prediction.PushMode)
	if err != nil {
		log.Fatalf("push mode: %v", err)
	}
	engine := prediction.NewEngine(prediction.Config{
		HalfLineFraction: cfg.Prediction.HalfLineFraction,
		PushMode:         mode,
		Season:           cfg.Prediction.Season,
	}, log.Default())

	ingester := ingest.NewIngester(ingest.Options{
		Feed: feed.New(feed.Options{
			BaseURL:  cfg.Feed.BaseURL,
			APIKey:   cfg.Feed.APIKey,
			APIHost:  cfg.Feed.APIHost,
			League:   cfg.Feed.League,
			PageSize: cfg.Feed.PageSize,
			MaxSkip:  cfg.Feed.MaxSkip,
			Timeout:  cfg.Feed.Timeout,
		}),
		Teams:    teams,
		Games:    repository.NewGameRepository(db),
		Engine:   engine,
		Market:   feed.MarketSource(cfg.Prediction.MarketTotal),
		Location: cfg.Location(),
	})

	spec, err := buildSpec(*season, *startDate, *endDate)
	if err != nil {
		log.Fatalf("build spec: %v", err)
	}
	spec.DryRun = *dryRun

	reporter := &consoleReporter{dryRun: *dryRun}

	if err := backfill.NewRunner(ingester).Run(ctx, spec, reporter); err != nil {
		log.Fatalf("backfill failed: %v", err)
	}

	log.Printf("✓ Backfill completed: %d games seen, %d written, %d predicted, %d graded, %d skipped",
		reporter.totals.Seen, reporter.totals.Written, reporter.totals.Predicted, reporter.totals.Graded, reporter.totals.Skipped)
}

func runDirectory(ctx context.Context, cfg *config.Config, teams *repository.TeamRepository) error {
	if cfg.Directory.URL == "" {
		return fmt.Errorf("DIRECTORY_URL is not set")
	}
	browser := directory.NewClient(cfg.Directory.Headless, cfg.Directory.Timeout)
	defer browser.Close()

	res, err := directory.NewBackfiller(browser, teams, cfg.Directory.URL).Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("✓ Directory: %d entries, %d abbreviations filled, %d teams unmatched", res.Entries, res.Updated, res.Missing)
	return nil
}

func buildSpec(season int, startStr, endStr string) (backfill.JobSpec, error) {
	spec := backfill.JobSpec{Season: season}

	switch {
	case startStr != "" && endStr != "":
		spec.Type = backfill.JobTypeDateRange
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return spec, fmt.Errorf("invalid start date: %w", err)
		}
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return spec, fmt.Errorf("invalid end date: %w", err)
		}
		spec.Start = start
		spec.End = end
	case season != 0:
		spec.Type = backfill.JobTypeSeason
		spec.Start, spec.End = backfill.SeasonWindow(season)
	default:
		return spec, fmt.Errorf("unable to determine job type")
	}

	return spec, nil
}

type consoleReporter struct {
	dryRun bool
	totals backfill.Totals
}

func (c *consoleReporter) OnJobStart(spec backfill.JobSpec) {
	log.Printf("Starting %s job %s..%s (dry_run=%v)", spec.Type,
		spec.Start.Format("2006-01-02"), spec.End.Format("2006-01-02"), c.dryRun)
}

func (c *consoleReporter) OnDateStart(date time.Time, index int, total int) {
	log.Printf("[%d/%d] %s", index+1, total, date.Format("2006-01-02"))
}

func (c *consoleReporter) OnDateComplete(date time.Time, res backfill.DayResult) {
	c.totals.Seen += res.Seen
	c.totals.Written += res.Written
	c.totals.Skipped += res.Skipped
	c.totals.Predicted += res.Predicted
	c.totals.Graded += res.Graded
	if res.Seen > 0 {
		log.Printf("  %d games, %d predicted, %d graded, %d skipped", res.Seen, res.Predicted, res.Graded, res.Skipped)
	}
}

func (c *consoleReporter) OnProgress(message string, current int, total int) {
	log.Printf("Progress: %s (%d/%d)", message, current, total)
}

func (c *consoleReporter) OnJobComplete() {
	log.Println("Job complete")
}

func (c *consoleReporter) OnJobError(err error) {
	log.Printf("Job error: %v", err)
}
