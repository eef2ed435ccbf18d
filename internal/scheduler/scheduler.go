// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the recurring background jobs of the blog.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrJobRunning is returned by TriggerNow when the job is already running.
var ErrJobRunning = errors.New("job already running")

// ErrJobNotFound is returned for an unknown job name.
var ErrJobNotFound = errors.New("job not found")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is a unit of recurring work.
type Job struct {
	Name        string
	Description string
	// Schedule is a cron expression or descriptor such as "@every 30s".
	Schedule string
	// Timeout bounds one run; zero means no limit.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	Running     bool      `json:"running"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
	LastError   string    `json:"last_error,omitempty"`
	Runs        int64     `json:"runs"`
	Skipped     int64     `json:"skipped"`
}

type registeredJob struct {
	job     Job
	entryID cron.EntryID
	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64

	mu      sync.Mutex
	lastErr string
	lastRun time.Time
}

// Scheduler wraps a cron instance. Runs of the same job never overlap: a
// tick arriving while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*registeredJob

	baseCtx context.Context
	cancel  context.CancelFunc
	started atomic.Bool
}

// New creates a scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		logger:  logger,
		jobs:    make(map[string]*registeredJob),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// ValidateSchedule reports whether spec is a valid cron expression.
func ValidateSchedule(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return errors.New("schedule is required")
	}
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Add registers a job. Names must be unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	if err := ValidateSchedule(job.Schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	rj := &registeredJob{job: job}
	id, err := s.cron.AddFunc(job.Schedule, func() { s.execute(rj) })
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", job.Name, err)
	}
	rj.entryID = id
	s.jobs[job.Name] = rj
	s.logger.Debug("registered scheduled job", "name", job.Name, "schedule", job.Schedule)
	return nil
}

// execute runs rj unless a previous run is still in progress. It reports
// whether the job ran.
func (s *Scheduler) execute(rj *registeredJob) (bool, error) {
	if !rj.running.CompareAndSwap(false, true) {
		rj.skipped.Add(1)
		s.logger.Debug("skipping job, previous run still in progress", "name", rj.job.Name)
		return false, nil
	}
	defer rj.running.Store(false)

	ctx := s.baseCtx
	if rj.job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rj.job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := rj.job.Run(ctx)
	rj.runs.Add(1)

	rj.mu.Lock()
	rj.lastRun = start
	rj.lastErr = ""
	if err != nil {
		rj.lastErr = err.Error()
	}
	rj.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "name", rj.job.Name, "error", err, "duration", time.Since(start))
	}
	return true, err
}

// Start begins running jobs. The scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// List returns every registered job sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, rj := range s.jobs {
		info := JobInfo{
			Name:        rj.job.Name,
			Description: rj.job.Description,
			Schedule:    rj.job.Schedule,
			Running:     rj.running.Load(),
			Runs:        rj.runs.Load(),
			Skipped:     rj.skipped.Load(),
		}
		info.NextRun = s.cron.Entry(rj.entryID).Next

		rj.mu.Lock()
		info.LastRun = rj.lastRun
		info.LastError = rj.lastErr
		rj.mu.Unlock()

		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b JobInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// TriggerNow runs a job immediately in the calling goroutine.
func (s *Scheduler) TriggerNow(name string) error {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info("manually triggering job", "name", name)
	ran, err := s.execute(rj)
	if !ran {
		return ErrJobRunning
	}
	return err
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
