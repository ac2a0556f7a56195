package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/metrics"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	DefaultPollInterval = 30 * time.Second
)

var (
	ErrJobNotFound = errors.New("job not found")
	// errNotDue is returned when a due run finds the slot already taken by
	// another execution
	errNotDue = errors.New("job is no longer due")
)

// Store persists run bookkeeping for jobs that come from schedule rows
type Store interface {
	List(ctx context.Context, activeOnly bool) ([]gormModels.Schedule, error)
	RecordRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time, status, message string) error
	Deactivate(ctx context.Context, id string) error
}

// RunOutcome describes one execution of a job
type RunOutcome struct {
	JobID     string     `json:"jobId"`
	Status    string     `json:"status"`
	Message   string     `json:"message"`
	StartedAt time.Time  `json:"startedAt"`
	Duration  float64    `json:"durationSeconds"`
	NextRun   *time.Time `json:"nextRun,omitempty"`
}

type Options struct {
	PollInterval time.Duration
	Location     *time.Location
	Defaults     []config.DefaultJob
	Cron         CronStrategy
	Metrics      *metrics.MetricsRegistry
	// Now overrides the clock in tests
	Now func() time.Time
}

// Scheduler owns the job table. Every mutation goes through mu; handlers run
// outside the lock.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	handlers map[constants.JobType]Handler

	store    Store
	cron     CronStrategy
	interval time.Duration
	defaults []config.DefaultJob
	loc      *time.Location
	now      func() time.Time
	flight   singleflight.Group
	metrics  *metrics.MetricsRegistry
	log      *zap.SugaredLogger
}

func New(store Store, opts Options) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]*Job),
		handlers: make(map[constants.JobType]Handler),
		store:    store,
		cron:     opts.Cron,
		interval: opts.PollInterval,
		defaults: opts.Defaults,
		loc:      opts.Location,
		now:      opts.Now,
		metrics:  opts.Metrics,
		log:      logging.Component("scheduler"),
	}
	if s.cron == nil {
		s.cron = StandardCron{}
	}
	if s.interval <= 0 {
		s.interval = DefaultPollInterval
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register binds the handler that runs jobs of the given type
func (s *Scheduler) Register(jobType constants.JobType, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = h
}

func (s *Scheduler) clock() time.Time {
	return s.now().In(s.loc)
}

// NextRun computes the next activation of job from the scheduler's clock
func (s *Scheduler) NextRun(job Job) (*time.Time, error) {
	return NextRun(job, s.clock(), s.cron)
}

// Add inserts or replaces a job. A job without a NextRun gets one computed
// from now; a job whose window has closed is kept but never becomes due.
func (s *Scheduler) Add(job Job) (Job, error) {
	if job.ID == "" {
		return Job{}, fmt.Errorf("%w: job needs an id", ErrInvalidRecurrence)
	}
	if job.NextRun == nil {
		next, err := s.NextRun(job)
		if err != nil {
			return Job{}, err
		}
		job.NextRun = next
	} else if err := validateRecurrence(job); err != nil {
		return Job{}, err
	}

	stored := job.clone()
	s.mu.Lock()
	s.jobs[job.ID] = &stored
	s.mu.Unlock()
	s.updateGauge()
	return job, nil
}

// Update replaces the rule of an existing job and recomputes its next run,
// keeping the run bookkeeping
func (s *Scheduler) Update(job Job) (Job, error) {
	next, err := s.NextRun(job)
	if err != nil {
		return Job{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.jobs[job.ID]; ok {
		job.LastRun = copyTime(current.LastRun)
		job.LastStatus = current.LastStatus
		job.LastMessage = current.LastMessage
	}
	job.NextRun = next
	stored := job.clone()
	s.jobs[job.ID] = &stored
	return job, nil
}

// Remove drops a job. Removing an unknown id is a no-op.
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
	s.updateGauge()
}

func (s *Scheduler) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.clone(), true
}

// Jobs returns a snapshot of the table ordered by next run, jobs without a
// next run last
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.clone())
	}
	s.mu.Unlock()

	sortByNextRun(out)
	return out
}

// Load rebuilds the table from active schedule rows and the configured
// default jobs. A persisted next run is kept so restarts do not shift slots.
func (s *Scheduler) Load(ctx context.Context) error {
	jobs := make(map[string]*Job)
	now := s.clock()

	if s.store != nil {
		rows, err := s.store.List(ctx, true)
		if err != nil {
			return fmt.Errorf("failed to load schedules: %w", err)
		}
		for _, row := range rows {
			job := JobFromSchedule(row)
			if job.NextRun == nil {
				next, err := NextRun(job, now, s.cron)
				if err != nil {
					s.log.Warnw("Skipping invalid schedule", "schedule_id", row.ID, "error", err)
					continue
				}
				job.NextRun = next
			}
			jobs[job.ID] = &job
		}
	}

	for _, d := range s.defaults {
		job, err := JobFromDefault(d)
		if err != nil {
			s.log.Warnw("Skipping invalid default job", "job_id", d.ID, "error", err)
			continue
		}
		if job.NextRun, err = NextRun(job, now, s.cron); err != nil {
			s.log.Warnw("Skipping default job", "job_id", d.ID, "error", err)
			continue
		}
		jobs[job.ID] = &job
	}

	s.mu.Lock()
	s.jobs = jobs
	s.mu.Unlock()
	s.updateGauge()

	s.log.Infow("Scheduler loaded", "jobs", len(jobs))
	return nil
}

// TriggerNow runs a job immediately through the same path as a due run. A
// trigger that arrives while the job is running joins that execution.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*RunOutcome, error) {
	if _, ok := s.Get(id); !ok {
		return nil, ErrJobNotFound
	}
	outcome, err := s.execute(ctx, id, true)
	if errors.Is(err, errNotDue) {
		// joined a due run that found nothing to do
		return s.execute(ctx, id, true)
	}
	return outcome, err
}

// RunDue executes every job whose next run has passed, one at a time in
// next-run order
func (s *Scheduler) RunDue(ctx context.Context) []RunOutcome {
	now := s.clock()

	s.mu.Lock()
	var due []Job
	for _, job := range s.jobs {
		if job.NextRun != nil && !job.NextRun.After(now) {
			due = append(due, job.clone())
		}
	}
	s.mu.Unlock()

	sortByNextRun(due)

	outcomes := make([]RunOutcome, 0, len(due))
	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		outcome, err := s.execute(ctx, job.ID, false)
		if err != nil {
			// removed, or already run by a trigger, since the scan
			continue
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes
}

// Start polls for due jobs until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Infow("Scheduler started", "interval", s.interval.String())
	s.RunDue(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunDue(ctx)
		case <-ctx.Done():
			s.log.Infow("Shutting down scheduler")
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, id string, manual bool) (*RunOutcome, error) {
	v, err, _ := s.flight.Do(id, func() (interface{}, error) {
		return s.runJob(ctx, id, manual)
	})
	if err != nil {
		return nil, err
	}
	outcome := *v.(*RunOutcome)
	return &outcome, nil
}

// runJob executes one job. A run that is not manual only proceeds while the
// job's slot is still due.
func (s *Scheduler) runJob(ctx context.Context, id string, manual bool) (*RunOutcome, error) {
	s.mu.Lock()
	current, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrJobNotFound
	}
	if !manual && (current.NextRun == nil || current.NextRun.After(s.clock())) {
		s.mu.Unlock()
		return nil, errNotDue
	}
	job := current.clone()
	handler := s.handlers[job.Type]
	s.mu.Unlock()

	log := s.log.With("job_id", job.ID, "job_type", job.Type)
	if job.ScheduleID != "" {
		log = log.With("schedule_id", job.ScheduleID)
	}

	started := s.clock()
	message, runErr := s.invoke(ctx, handler, job)
	finished := s.clock()

	outcome := &RunOutcome{
		JobID:     job.ID,
		Status:    StatusSuccess,
		Message:   message,
		StartedAt: started,
		Duration:  finished.Sub(started).Seconds(),
	}
	if runErr != nil {
		outcome.Status = StatusError
		outcome.Message = runErr.Error()
		log.Errorw("Scheduled job failed", "error", runErr)
	} else {
		log.Infow("Scheduled job completed", "message", message, "duration", outcome.Duration)
	}

	if s.metrics != nil {
		s.metrics.SchedulerJobDuration.WithLabelValues(string(job.Type)).Observe(outcome.Duration)
		if runErr != nil {
			s.metrics.SchedulerJobFailures.WithLabelValues(string(job.Type)).Inc()
		}
	}

	// the rule may have been edited while the handler ran; the next slot
	// comes from the entry as it is now
	s.mu.Lock()
	rule := job
	current, present := s.jobs[id]
	if present {
		rule = current.clone()
	}
	next, finishedJob := s.nextAfter(rule, finished, log)
	if present {
		if finishedJob {
			delete(s.jobs, id)
		} else {
			current.LastRun = &started
			current.NextRun = next
			current.LastStatus = outcome.Status
			current.LastMessage = outcome.Message
		}
	}
	s.mu.Unlock()
	outcome.NextRun = copyTime(next)
	if finishedJob {
		s.updateGauge()
	}

	if rule.ScheduleID != "" && s.store != nil {
		persistCtx := context.WithoutCancel(ctx)
		if err := s.store.RecordRun(persistCtx, rule.ScheduleID, started, next, outcome.Status, outcome.Message); err != nil {
			log.Errorw("Failed to persist run", "error", err)
		}
		if finishedJob {
			if err := s.store.Deactivate(persistCtx, rule.ScheduleID); err != nil {
				log.Errorw("Failed to deactivate finished schedule", "error", err)
			}
		}
	}

	return outcome, nil
}

// nextAfter returns the slot following a run that finished at t, and whether
// the job has no further runs
func (s *Scheduler) nextAfter(job Job, t time.Time, log *zap.SugaredLogger) (*time.Time, bool) {
	if job.Frequency == constants.FrequencyOnce {
		return nil, true
	}
	next, err := NextRun(job, t, s.cron)
	if err != nil {
		log.Errorw("Failed to compute next run", "error", err)
	}
	return next, next == nil
}

func (s *Scheduler) invoke(ctx context.Context, h Handler, job Job) (message string, err error) {
	if h == nil {
		return "", fmt.Errorf("no handler registered for job type %q", job.Type)
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return h.Run(ctx, job)
}

func (s *Scheduler) updateGauge() {
	if s.metrics == nil {
		return
	}
	s.mu.Lock()
	n := len(s.jobs)
	s.mu.Unlock()
	s.metrics.SchedulerJobsLoaded.Set(float64(n))
}

func sortByNextRun(jobs []Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i].NextRun, jobs[j].NextRun
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return jobs[i].ID < jobs[j].ID
		}
		return a.Before(*b)
	})
}
