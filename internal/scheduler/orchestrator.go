package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fortuna/halfline/internal/ingest"
	"github.com/fortuna/halfline/internal/ingest/directory"
	"github.com/robfig/cron/v3"
)

// Syncer ingests the feed for a date range.
type Syncer interface {
	Sync(ctx context.Context, from, to time.Time) (*ingest.SyncReport, error)
}

// DirectoryBackfiller fills missing team abbreviations.
type DirectoryBackfiller interface {
	Run(ctx context.Context) (*directory.Result, error)
}

// PicksNotifier sends the day's over/under calls somewhere people read them.
type PicksNotifier interface {
	SendDailyPicks(ctx context.Context, day time.Time) error
}

// Config holds scheduler configuration
type Config struct {
	SyncCron      string // empty disables the sync job
	DirectoryCron string // empty disables the directory job
	PicksCron     string // empty disables the picks job
	Location      *time.Location
	LookbackDays  int
	LookaheadDays int
	JobTimeout    time.Duration
	RunOnStart    bool
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		loc = time.UTC
	}
	return &Config{
		SyncCron:      "0 */2 * * *",
		Location:      loc,
		LookbackDays:  2,
		LookaheadDays: 1,
		JobTimeout:    10 * time.Minute,
		RunOnStart:    true,
	}
}

// Orchestrator runs the sync, directory and picks jobs on cron schedules.
// A job that is still running when its next tick fires is skipped.
type Orchestrator struct {
	config    *Config
	syncer    Syncer
	directory DirectoryBackfiller
	notifier  PicksNotifier

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	entries  map[string]cron.EntryID
	lastSync *ingest.SyncReport
	lastErr  error
	now      func() time.Time
}

// NewOrchestrator creates a new scheduler orchestrator. The directory
// backfiller and notifier are optional.
func NewOrchestrator(syncer Syncer, dir DirectoryBackfiller, notifier PicksNotifier, config *Config) (*Orchestrator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 10 * time.Minute
	}

	logger := cron.VerbosePrintfLogger(log.New(os.Stdout, "[scheduler] ", log.LstdFlags))
	o := &Orchestrator{
		config:    config,
		syncer:    syncer,
		directory: dir,
		notifier:  notifier,
		cron: cron.New(
			cron.WithLocation(config.Location),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		entries: make(map[string]cron.EntryID),
		now:     time.Now,
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
		on   bool
	}{
		{"sync", config.SyncCron, o.RunSync, syncer != nil},
		{"directory", config.DirectoryCron, o.runDirectory, dir != nil},
		{"picks", config.PicksCron, o.runPicks, notifier != nil},
	}
	for _, j := range jobs {
		if j.spec == "" || !j.on {
			continue
		}
		id, err := o.cron.AddFunc(j.spec, o.wrap(j.name, j.run))
		if err != nil {
			return nil, fmt.Errorf("scheduling %s job %q: %w", j.name, j.spec, err)
		}
		o.entries[j.name] = id
	}

	return o, nil
}

// Start begins all scheduled tasks and blocks until ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)

	log.Printf("[scheduler] Sync: %q  Directory: %q  Picks: %q  (%s)",
		o.config.SyncCron, o.config.DirectoryCron, o.config.PicksCron, o.config.Location)
	log.Printf("[scheduler] Sync window: today-%d .. today+%d", o.config.LookbackDays, o.config.LookaheadDays)

	o.cron.Start()

	if o.config.RunOnStart && o.syncer != nil {
		go o.wrap("sync", o.RunSync)()
	}

	<-o.ctx.Done()
	log.Println("[scheduler] Orchestrator stopping...")
}

// Stop gracefully stops the scheduler and waits for running jobs.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	<-o.cron.Stop().Done()
	log.Println("[scheduler] ✓ Orchestrator stopped")
}

func (o *Orchestrator) wrap(name string, run func(context.Context) error) func() {
	return func() {
		parent := o.ctx
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, o.config.JobTimeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			log.Printf("[scheduler] ❌ %s job failed after %v: %v", name, time.Since(start).Round(time.Millisecond), err)
			return
		}
		log.Printf("[scheduler] ✓ %s job complete in %v", name, time.Since(start).Round(time.Millisecond))
	}
}

// SyncWindow returns the first and last calendar days a sync covers.
func (o *Orchestrator) SyncWindow() (time.Time, time.Time) {
	now := o.now().In(o.config.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, o.config.Location)
	return today.AddDate(0, 0, -o.config.LookbackDays), today.AddDate(0, 0, o.config.LookaheadDays)
}

// RunSync ingests the current window immediately.
func (o *Orchestrator) RunSync(ctx context.Context) error {
	from, to := o.SyncWindow()
	report, err := o.syncer.Sync(ctx, from, to)

	o.mu.Lock()
	o.lastErr = err
	if err == nil {
		o.lastSync = report
	}
	o.mu.Unlock()

	if err != nil {
		return err
	}
	log.Printf("[scheduler] Synced %s..%s: %d seen, %d written, %d predicted, %d graded, %d skipped",
		from.Format("2006-01-02"), to.Format("2006-01-02"),
		report.Seen, report.Written(), report.Predicted, report.Graded, report.Skipped)
	return nil
}

func (o *Orchestrator) runDirectory(ctx context.Context) error {
	res, err := o.directory.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("[scheduler] Directory: %d entries, %d abbreviations filled, %d teams unmatched",
		res.Entries, res.Updated, res.Missing)
	return nil
}

func (o *Orchestrator) runPicks(ctx context.Context) error {
	now := o.now().In(o.config.Location)
	return o.notifier.SendDailyPicks(ctx, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, o.config.Location))
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"timezone":       o.config.Location.String(),
		"lookback_days":  o.config.LookbackDays,
		"lookahead_days": o.config.LookaheadDays,
	}

	next := map[string]time.Time{}
	for name, id := range o.entries {
		next[name] = o.cron.Entry(id).Next
	}
	status["next_runs"] = next

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastSync != nil {
		status["last_sync"] = o.lastSync
	}
	if o.lastErr != nil {
		status["last_error"] = o.lastErr.Error()
	}
	return status
}
