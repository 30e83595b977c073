// Package scheduler runs registered jobs on fixed intervals or at a time of day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrJobNotFound is returned when a job name is not registered.
var ErrJobNotFound = errors.New("job not found")

const (
	defaultTick       = time.Minute
	defaultJobTimeout = 5 * time.Minute
)

// Job represents a scheduled job.
type Job struct {
	Name     string
	Schedule Schedule
	Handler  func(ctx context.Context) error
	Timeout  time.Duration // 0 uses the scheduler default

	lastRun   time.Time
	nextRun   time.Time
	lastError string
	running   bool
}

// Schedule defines when a job should run.
type Schedule struct {
	// For fixed-interval jobs
	Interval time.Duration

	// For time-of-day jobs, in Location (UTC when nil)
	Hour     int
	Minute   int
	Location *time.Location

	// Days (0=Sunday, 1=Monday, etc.)
	Days []int

	// Type of schedule
	Type ScheduleType
}

// ScheduleType defines the type of schedule.
type ScheduleType string

const (
	ScheduleInterval ScheduleType = "interval"
	ScheduleDaily    ScheduleType = "daily"
	ScheduleWeekly   ScheduleType = "weekly"
)

// String renders the schedule for status output.
func (s Schedule) String() string {
	switch s.Type {
	case ScheduleInterval:
		return "every " + s.Interval.String()
	case ScheduleDaily:
		return fmt.Sprintf("daily %02d:%02d %s", s.Hour, s.Minute, s.location())
	case ScheduleWeekly:
		return fmt.Sprintf("weekly %v %02d:%02d %s", s.Days, s.Hour, s.Minute, s.location())
	default:
		return string(s.Type)
	}
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// JobStatus is a snapshot of a registered job.
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	LastRun   time.Time `json:"last_run"`
	NextRun   time.Time `json:"next_run"`
	LastError string    `json:"last_error,omitempty"`
	Running   bool      `json:"running"`
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick sets how often due jobs are checked.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithJobTimeout sets the default per-run timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler manages scheduled jobs.
type Scheduler struct {
	jobs    []*Job
	jobsMux sync.RWMutex

	tick       time.Duration
	jobTimeout time.Duration
	now        func() time.Time

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler creates a new scheduler with no jobs.
func NewScheduler(opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		jobs:       make([]*Job, 0),
		tick:       defaultTick,
		jobTimeout: defaultJobTimeout,
		now:        func() time.Time { return time.Now().UTC() },
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob adds a job to the scheduler.
func (s *Scheduler) AddJob(job *Job) error {
	if job == nil || job.Name == "" || job.Handler == nil {
		return errors.New("job needs a name and a handler")
	}
	if job.Schedule.Type == ScheduleInterval && job.Schedule.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}

	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	for _, existing := range s.jobs {
		if existing.Name == job.Name {
			return fmt.Errorf("job %s already registered", job.Name)
		}
	}

	job.nextRun = calculateNextRun(job.Schedule, s.now())
	s.jobs = append(s.jobs, job)

	log.Info().
		Str("job", job.Name).
		Str("schedule", job.Schedule.String()).
		Time("next_run", job.nextRun).
		Msg("Job registered")
	return nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.jobsMux.Lock()
	if s.started {
		s.jobsMux.Unlock()
		return
	}
	s.started = true
	count := len(s.jobs)
	s.jobsMux.Unlock()

	log.Info().Int("jobs", count).Dur("tick", s.tick).Msg("Starting scheduler")

	s.wg.Add(1)
	go s.jobLoop()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler")
	s.jobsMux.Lock()
	s.cancel()
	s.jobsMux.Unlock()
	s.wg.Wait()
}

// jobLoop checks and runs scheduled jobs.
func (s *Scheduler) jobLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkAndRunJobs()
		}
	}
}

// checkAndRunJobs starts every job that is due.
func (s *Scheduler) checkAndRunJobs() {
	now := s.now()

	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	for _, job := range s.jobs {
		if now.Before(job.nextRun) {
			continue
		}

		job.nextRun = calculateNextRun(job.Schedule, now)
		s.spawn(job)

		log.Debug().
			Str("job", job.Name).
			Time("next_run", job.nextRun).
			Msg("Job scheduled for next run")
	}
}

// spawn runs job in its own goroutine. Caller holds jobsMux.
func (s *Scheduler) spawn(job *Job) {
	if s.ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(job)
	}()
}

// runJob executes a job and records its outcome.
func (s *Scheduler) runJob(job *Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = s.jobTimeout
	}

	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	s.jobsMux.Lock()
	job.running = true
	job.lastRun = s.now()
	s.jobsMux.Unlock()

	log.Info().Str("job", job.Name).Msg("Running job")
	start := time.Now()

	err := invoke(ctx, job)

	s.jobsMux.Lock()
	job.running = false
	if err != nil {
		job.lastError = err.Error()
	} else {
		job.lastError = ""
	}
	s.jobsMux.Unlock()

	if err != nil {
		log.Error().Err(err).Str("job", job.Name).Dur("took", time.Since(start)).Msg("Job failed")
		return
	}
	log.Info().Str("job", job.Name).Dur("took", time.Since(start)).Msg("Job completed")
}

// invoke calls the handler, converting a panic into an error.
func invoke(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Handler(ctx)
}

// calculateNextRun calculates the next run time for a schedule after now.
// The result is always in UTC.
func calculateNextRun(schedule Schedule, now time.Time) time.Time {
	now = now.UTC()
	loc := schedule.location()
	local := now.In(loc)

	switch schedule.Type {
	case ScheduleInterval:
		return now.Add(schedule.Interval)

	case ScheduleDaily:
		next := time.Date(local.Year(), local.Month(), local.Day(),
			schedule.Hour, schedule.Minute, 0, 0, loc)
		if !next.After(now) {
			next = time.Date(local.Year(), local.Month(), local.Day()+1,
				schedule.Hour, schedule.Minute, 0, 0, loc)
		}
		return next.UTC()

	case ScheduleWeekly:
		// Find next matching day
		for i := 0; i < 8; i++ {
			next := time.Date(local.Year(), local.Month(), local.Day()+i,
				schedule.Hour, schedule.Minute, 0, 0, loc)
			dayOfWeek := int(next.Weekday())
			for _, d := range schedule.Days {
				if d == dayOfWeek && next.After(now) {
					return next.UTC()
				}
			}
		}
		return now.Add(7 * 24 * time.Hour)

	default:
		return now.Add(time.Hour)
	}
}

// RunJobNow runs a specific job immediately by name without waiting for it.
func (s *Scheduler) RunJobNow(name string) error {
	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	for _, job := range s.jobs {
		if job.Name == name {
			s.spawn(job)
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrJobNotFound, name)
}

// GetJobStatus returns the status of all jobs in registration order.
func (s *Scheduler) GetJobStatus() []JobStatus {
	s.jobsMux.RLock()
	defer s.jobsMux.RUnlock()

	status := make([]JobStatus, len(s.jobs))
	for i, job := range s.jobs {
		status[i] = JobStatus{
			Name:      job.Name,
			Schedule:  job.Schedule.String(),
			LastRun:   job.lastRun,
			NextRun:   job.nextRun,
			LastError: job.lastError,
			Running:   job.running,
		}
	}
	return status
}
