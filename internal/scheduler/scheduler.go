package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a schedulable unit of work.
type Job struct {
	Name string
	Cron *CronExpr
	Run  func(ctx context.Context) error
}

// Config holds scheduler settings.
type Config struct {
	TickInterval time.Duration
	LockPath     string
}

// Scheduler ticks on an interval and runs jobs whose cron expression
// matches the tick time. A file lock prevents overlapping daemons; a
// per-job guard prevents a slow run from overlapping itself.
type Scheduler struct {
	cfg     Config
	jobs    map[string]*Job
	running map[string]bool
	mu      sync.Mutex
	lock    *FileLock
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 60 * time.Second
	}
	return &Scheduler{
		cfg:     cfg,
		jobs:    make(map[string]*Job),
		running: make(map[string]bool),
		lock:    NewFileLock(cfg.LockPath),
	}
}

// Register adds a job to the scheduler.
func (s *Scheduler) Register(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = job
	slog.Info("Scheduler job registered", "name", job.Name)
}

// Run starts the tick loop. Blocks until context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("Scheduler started", "tick", s.cfg.TickInterval, "jobs", len(s.jobs))
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return ctx.Err()
		case t := <-ticker.C:
			s.tick(ctx, t)
		}
	}
}

// tick dispatches any jobs matching the tick time, holding the global file
// lock for the duration of dispatch.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if s.cfg.LockPath != "" {
		acquired, err := s.lock.TryLock()
		if err != nil {
			slog.Warn("Scheduler lock error", "error", err)
			return
		}
		if !acquired {
			slog.Debug("Scheduler tick skipped: lock held by another process")
			return
		}
		defer s.lock.Unlock()
	}

	s.mu.Lock()
	var due []*Job
	for _, job := range s.jobs {
		if job.Cron.Matches(now) && !s.running[job.Name] {
			s.running[job.Name] = true
			due = append(due, job)
		}
	}
	s.mu.Unlock()

	for _, job := range due {
		go s.dispatch(ctx, job)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, job *Job) {
	defer func() {
		s.mu.Lock()
		s.running[job.Name] = false
		s.mu.Unlock()
	}()

	slog.Info("Scheduler dispatching job", "job", job.Name)
	if err := job.Run(ctx); err != nil {
		slog.Error("Scheduler job failed", "job", job.Name, "error", err)
		return
	}
	slog.Info("Scheduler job finished", "job", job.Name)
}
