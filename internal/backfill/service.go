package backfill

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrQueueFull is returned when too many jobs are waiting.
var ErrQueueFull = errors.New("backfill queue is full")

// Request represents a backfill invocation request.
type Request struct {
	Season    int
	StartDate *time.Time
	EndDate   *time.Time
	DryRun    bool
}

// DeriveType infers the job type based on populated fields.
func (r Request) DeriveType() (JobType, error) {
	if r.StartDate != nil && r.EndDate != nil {
		return JobTypeDateRange, nil
	}
	if r.Season != 0 {
		return JobTypeSeason, nil
	}
	return "", fmt.Errorf("unable to determine job type from request")
}

// Service queues backfill jobs in memory and runs them one at a time.
type Service struct {
	runner *Runner

	mu           sync.Mutex
	jobs         map[string]*Job
	order        []string
	active       string
	historyLimit int

	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewService constructs a Service. Call Start to launch the worker.
func NewService(runner *Runner, logger *log.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	if logger == nil {
		logger = log.New(log.Writer(), "[backfill] ", log.LstdFlags)
	}

	return &Service{
		runner:       runner,
		jobs:         make(map[string]*Job),
		historyLimit: 10,
		queue:        make(chan string, 16),
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
	}
}

// Start launches the background worker loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops workers and waits for completion.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Enqueue creates a new job from the provided request.
func (s *Service) Enqueue(ctx context.Context, req Request) (*Job, error) {
	jobType, err := req.DeriveType()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	job := &Job{
		JobID:         uuid.NewString(),
		JobType:       jobType,
		Season:        req.Season,
		DryRun:        req.DryRun,
		Status:        JobStatusQueued,
		StatusMessage: "Queued",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch jobType {
	case JobTypeSeason:
		job.StartDate, job.EndDate = SeasonWindow(req.Season)
	case JobTypeDateRange:
		job.StartDate = truncateDate(*req.StartDate)
		job.EndDate = truncateDate(*req.EndDate)
		if job.EndDate.Before(job.StartDate) {
			return nil, fmt.Errorf("end_date %s is before start_date %s", job.EndDate.Format("2006-01-02"), job.StartDate.Format("2006-01-02"))
		}
	}
	job.ProgressTotal = len(enumerateDates(job.StartDate, job.EndDate))

	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case s.queue <- job.JobID:
	default:
		return nil, ErrQueueFull
	}
	s.jobs[job.JobID] = job
	s.order = append(s.order, job.JobID)
	s.logger.Printf("queued %s job %s (%s..%s)", job.JobType, job.JobID, job.StartDate.Format("2006-01-02"), job.EndDate.Format("2006-01-02"))

	return job.Copy(), nil
}

// GetStatus returns the currently running job plus recent history.
func (s *Service) GetStatus(ctx context.Context) (*StatusSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &StatusSummary{}
	if s.active != "" {
		summary.ActiveJob = s.jobs[s.active].Copy()
	}
	for i := len(s.order) - 1; i >= 0 && len(summary.History) < s.historyLimit; i-- {
		summary.History = append(summary.History, s.jobs[s.order[i]].Copy())
	}
	return summary, nil
}

// GetJob returns a job by id.
func (s *Service) GetJob(jobID string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	return j.Copy(), ok
}

func (s *Service) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			s.cancelQueued()
			return
		case id := <-s.queue:
			s.executeJob(id)
		}
	}
}

func (s *Service) executeJob(jobID string) {
	var spec JobSpec
	s.update(jobID, func(j *Job) {
		now := time.Now()
		j.Status = JobStatusRunning
		j.StatusMessage = "Starting job..."
		j.StartedAt = &now
		spec = JobSpec{Type: j.JobType, Season: j.Season, Start: j.StartDate, End: j.EndDate, DryRun: j.DryRun}
	})

	s.mu.Lock()
	s.active = jobID
	s.mu.Unlock()

	err := s.runner.Run(s.ctx, spec, &jobReporter{svc: s, jobID: jobID})

	s.mu.Lock()
	s.active = ""
	s.mu.Unlock()

	s.update(jobID, func(j *Job) {
		now := time.Now()
		j.CompletedAt = &now
		switch {
		case err == nil:
			j.Status = JobStatusCompleted
			j.StatusMessage = "Job completed"
		case errors.Is(err, context.Canceled):
			j.Status = JobStatusCancelled
			j.StatusMessage = "Job cancelled"
		default:
			j.Status = JobStatusFailed
			j.StatusMessage = "Job failed"
			j.LastError = err.Error()
		}
	})

	if err != nil {
		s.logger.Printf("job %s ended: %v", jobID, err)
	} else {
		s.logger.Printf("job %s completed", jobID)
	}
}

func (s *Service) cancelQueued() {
	for {
		select {
		case id := <-s.queue:
			s.update(id, func(j *Job) {
				j.Status = JobStatusCancelled
				j.StatusMessage = "Service shut down before the job started"
			})
		default:
			return
		}
	}
}

func (s *Service) update(jobID string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[jobID]; ok {
		fn(j)
		j.UpdatedAt = time.Now()
	}
}

type jobReporter struct {
	svc   *Service
	jobID string
}

func (r *jobReporter) OnJobStart(spec JobSpec) {
	r.svc.update(r.jobID, func(j *Job) { j.StatusMessage = "Job starting" })
}

func (r *jobReporter) OnDateStart(date time.Time, index int, total int) {
	msg := fmt.Sprintf("Processing %s (%d/%d)", date.Format("Jan 2, 2006"), index+1, total)
	r.svc.update(r.jobID, func(j *Job) {
		j.StatusMessage = msg
		j.ProgressCurrent = index
		j.ProgressTotal = valueOr(total, j.ProgressTotal)
	})
}

func (r *jobReporter) OnDateComplete(date time.Time, res DayResult) {
	r.svc.update(r.jobID, func(j *Job) {
		j.Totals.Seen += res.Seen
		j.Totals.Written += res.Written
		j.Totals.Skipped += res.Skipped
		j.Totals.Predicted += res.Predicted
		j.Totals.Graded += res.Graded
	})
}

func (r *jobReporter) OnProgress(message string, current int, total int) {
	r.svc.update(r.jobID, func(j *Job) {
		j.StatusMessage = message
		j.ProgressCurrent = current
		j.ProgressTotal = valueOr(total, j.ProgressTotal)
	})
}

func (r *jobReporter) OnJobComplete() {
	r.svc.update(r.jobID, func(j *Job) {
		j.ProgressCurrent = j.ProgressTotal
		j.StatusMessage = "Job complete"
	})
}

func (r *jobReporter) OnJobError(err error) {
	r.svc.update(r.jobID, func(j *Job) { j.LastError = err.Error() })
}

func valueOr(val, fallback int) int {
	if val > 0 {
		return val
	}
	return fallback
}
