// Package scheduler runs Rada.ke's background jobs on top of gocron. It
// adds a small job contract, run history and counters so the worker can
// report what ran and what failed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is one unit of scheduled work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. The context is cancelled when the scheduler stops.
	Run(ctx context.Context) error

	Description() string
}

// JobResult is the outcome of one execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
	Manual      bool
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler manages and executes scheduled jobs.
type Scheduler struct {
	mu sync.RWMutex

	logger     *slog.Logger
	cron       gocron.Scheduler
	maxHistory int

	jobs    map[string]*scheduledJob
	running bool
	ctx     context.Context
	cancel  context.CancelFunc

	metrics    *Metrics
	runHistory []JobResult

	onJobError func(jobName string, err error)
}

type scheduledJob struct {
	job       Job
	schedule  Schedule
	handle    gocron.Job
	runCount  int64
	failCount int64
	last      *JobResult
}

// Config contains configuration for the Scheduler.
type Config struct {
	Logger *slog.Logger

	// Location for crontab evaluation. The worker passes Nairobi.
	Location *time.Location

	// MaxHistorySize bounds the number of results kept.
	MaxHistorySize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Logger:         slog.Default(),
		Location:       time.UTC,
		MaxHistorySize: 500,
	}
}

// New creates a Scheduler. Jobs do not run until Start.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxHistorySize <= 0 {
		cfg.MaxHistorySize = 500
	}

	cron, err := gocron.NewScheduler(gocron.WithLocation(cfg.Location))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:     cfg.Logger.With("component", "scheduler"),
		cron:       cron,
		maxHistory: cfg.MaxHistorySize,
		jobs:       make(map[string]*scheduledJob),
		ctx:        ctx,
		cancel:     cancel,
		metrics:    NewMetrics(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Register adds a job. Overlapping runs of the same job are skipped.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule.def == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{job: job, schedule: schedule}
	handle, err := s.cron.NewJob(
		schedule.def,
		gocron.NewTask(func() { s.execute(s.runContext(), sj, false) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduler: register %s: %w", name, err)
	}
	sj.handle = handle
	s.jobs[name] = sj

	s.logger.Info("job registered",
		"job", name,
		"schedule", schedule.String(),
		"description", job.Description(),
	)
	return nil
}

// Unregister removes a job.
func (s *Scheduler) Unregister(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, exists := s.jobs[jobName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	if err := s.cron.RemoveJob(sj.handle.ID()); err != nil {
		return fmt.Errorf("scheduler: unregister %s: %w", jobName, err)
	}
	delete(s.jobs, jobName)
	s.logger.Info("job unregistered", "job", jobName)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins running jobs. Cancelling ctx cancels running jobs but does
// not stop the scheduler; call Stop for that.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerAlreadyRunning
	}

	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.cron.Start()

	s.logger.Info("scheduler started", "jobs_count", len(s.jobs))
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// IsRunning reports whether Start has been called without Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

func (s *Scheduler) execute(ctx context.Context, sj *scheduledJob, manual bool) JobResult {
	name := sj.job.Name()
	startedAt := time.Now()

	err := sj.job.Run(ctx)
	completedAt := time.Now()

	result := JobResult{
		JobName:     name,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Success:     err == nil,
		Error:       err,
		Manual:      manual,
	}
	s.metrics.RecordExecution(name, result.Duration, err == nil)

	s.mu.Lock()
	sj.runCount++
	if err != nil {
		sj.failCount++
	}
	sj.last = &result
	s.runHistory = append(s.runHistory, result)
	if len(s.runHistory) > s.maxHistory {
		s.runHistory = s.runHistory[len(s.runHistory)-s.maxHistory:]
	}
	onErr := s.onJobError
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed",
			"job", name,
			"manual", manual,
			"duration", result.Duration.String(),
			"error", err,
		)
		if onErr != nil {
			onErr(name, err)
		}
	} else {
		s.logger.Info("job completed",
			"job", name,
			"manual", manual,
			"duration", result.Duration.String(),
		)
	}
	return result
}

// RunNow executes a job synchronously, ignoring its schedule.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.RLock()
	sj, exists := s.jobs[jobName]
	s.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	result := s.execute(ctx, sj, true)
	return &result, result.Error
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS & INFO
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo describes a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	NextRun     time.Time
	RunCount    int64
	FailCount   int64
	LastResult  *JobResult
}

// ListJobs returns every registered job sorted by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		info := JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Schedule:    sj.schedule.String(),
			RunCount:    sj.runCount,
			FailCount:   sj.failCount,
			LastResult:  sj.last,
		}
		if next, err := sj.handle.NextRun(); err == nil {
			info.NextRun = next
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// GetHistory returns up to limit of the most recent results.
func (s *Scheduler) GetHistory(limit int) []JobResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.runHistory) {
		limit = len(s.runHistory)
	}
	out := make([]JobResult, limit)
	copy(out, s.runHistory[len(s.runHistory)-limit:])
	return out
}

// GetMetrics returns the execution counters.
func (s *Scheduler) GetMetrics() *Metrics {
	return s.metrics
}

// OnJobError sets a callback for failed runs.
func (s *Scheduler) OnJobError(fn func(jobName string, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJobError = fn
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics counts executions per job.
type Metrics struct {
	mu sync.RWMutex

	totalExecutions int64
	totalFailures   int64
	totalDuration   time.Duration
	executionsByJob map[string]int64
	failuresByJob   map[string]int64
}

// NewMetrics creates empty counters.
func NewMetrics() *Metrics {
	return &Metrics{
		executionsByJob: make(map[string]int64),
		failuresByJob:   make(map[string]int64),
	}
}

// RecordExecution records one run.
func (m *Metrics) RecordExecution(jobName string, d time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalExecutions++
	m.totalDuration += d
	m.executionsByJob[jobName]++
	if !success {
		m.totalFailures++
		m.failuresByJob[jobName]++
	}
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	TotalExecutions int64
	TotalFailures   int64
	SuccessRate     float64
	AverageDuration time.Duration
	FailuresByJob   map[string]int64
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		TotalExecutions: m.totalExecutions,
		TotalFailures:   m.totalFailures,
		FailuresByJob:   make(map[string]int64, len(m.failuresByJob)),
	}
	for k, v := range m.failuresByJob {
		snap.FailuresByJob[k] = v
	}
	if m.totalExecutions > 0 {
		snap.AverageDuration = m.totalDuration / time.Duration(m.totalExecutions)
		snap.SuccessRate = float64(m.totalExecutions-m.totalFailures) / float64(m.totalExecutions)
	}
	return snap
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNilJob                  = errors.New("job cannot be nil")
	ErrNilSchedule             = errors.New("schedule cannot be empty")
	ErrJobAlreadyExists        = errors.New("job already exists")
	ErrJobNotFound             = errors.New("job not found")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
)
