package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/halfline/internal/ingest"
)

// Syncer ingests every feed game scheduled between two dates.
type Syncer interface {
	Sync(ctx context.Context, from, to time.Time) (*ingest.SyncReport, error)
}

// Runner executes backfill specs one day at a time. Days run oldest first
// so each day's predictions see every earlier day's results.
type Runner struct {
	syncer Syncer
}

// NewRunner constructs a runner
func NewRunner(syncer Syncer) *Runner {
	return &Runner{syncer: syncer}
}

// Run executes the job spec, reporting progress via the Reporter if provided.
func (r *Runner) Run(ctx context.Context, spec JobSpec, reporter Reporter) error {
	if reporter != nil {
		reporter.OnJobStart(spec)
	}

	if spec.Type != JobTypeSeason && spec.Type != JobTypeDateRange {
		err := fmt.Errorf("unsupported job type %s", spec.Type)
		if reporter != nil {
			reporter.OnJobError(err)
		}
		return err
	}

	if spec.DryRun {
		if reporter != nil {
			reporter.OnProgress("Dry-run mode: no data will be written", 0, 0)
			reporter.OnJobComplete()
		}
		return nil
	}

	dates := enumerateDates(spec.Start, spec.End)
	if len(dates) == 0 {
		if reporter != nil {
			reporter.OnProgress("No dates to process", 0, 0)
		}
	}

	total := len(dates)
	for idx, date := range dates {
		if err := ctx.Err(); err != nil {
			return err
		}

		if reporter != nil {
			reporter.OnDateStart(date, idx, total)
		}

		report, err := r.syncer.Sync(ctx, date, date)
		if err != nil {
			if reporter != nil {
				reporter.OnJobError(err)
			}
			return err
		}

		if reporter != nil {
			reporter.OnDateComplete(date, DayResult{
				Seen:      report.Seen,
				Written:   report.Written(),
				Skipped:   report.Skipped,
				Predicted: report.Predicted,
				Graded:    report.Graded,
			})
			reporter.OnProgress(fmt.Sprintf("Processed %s", date.Format("Jan 2, 2006")), idx+1, total)
		}
	}

	if reporter != nil {
		reporter.OnJobComplete()
	}

	return nil
}

// SeasonWindow returns the span of the season that starts in the given
// year: November 1 through April 30 of the next year.
func SeasonWindow(season int) (time.Time, time.Time) {
	start := time.Date(season, time.November, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(season+1, time.April, 30, 0, 0, 0, 0, time.UTC)
	return start, end
}

func enumerateDates(start, end time.Time) []time.Time {
	if end.Before(start) {
		start, end = end, start
	}

	var dates []time.Time
	current := truncateDate(start)
	final := truncateDate(end)

	for !current.After(final) {
		dates = append(dates, current)
		current = current.AddDate(0, 0, 1)
	}

	return dates
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
