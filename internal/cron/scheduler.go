package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler errors.
var (
	ErrUnknownJob  = errors.New("cron: unknown job")
	ErrJobBusy     = errors.New("cron: job already running")
	errAlreadyUsed = errors.New("cron: scheduler already started")
)

// Scheduler runs registered jobs on their cron expressions. A job never
// runs twice in parallel: a tick that finds the job still running is
// skipped.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]*entry
	order   []string
	logger  *slog.Logger
	cancel  context.CancelFunc
	started bool
}

type entry struct {
	job  Job
	lock sync.Mutex
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:   make(map[string]*entry),
		logger: logger.With("component", "cron"),
	}
}

// RegisterJob adds a job. Names must be unique.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyUsed
	}
	name := j.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	s.jobs[name] = &entry{job: j}
	s.order = append(s.order, name)
	return nil
}

// Names returns the registered job names in registration order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Start validates every schedule and begins executing jobs. Jobs receive
// a context derived from ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyUsed
	}

	runCtx, cancel := context.WithCancel(ctx)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser))

	for _, name := range s.order {
		e := s.jobs[name]
		if _, err := c.AddFunc(e.job.Schedule(), func() { s.tick(runCtx, e) }); err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
		}
	}

	s.cron = c
	s.cancel = cancel
	s.started = true
	c.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.order))
	return nil
}

func (s *Scheduler) tick(ctx context.Context, e *entry) {
	if err := s.run(ctx, e); err != nil {
		if errors.Is(err, ErrJobBusy) {
			s.logger.Warn("cron: job still running, skipping tick", "job", e.job.Name())
			return
		}
		s.logger.Error("cron: job failed", "job", e.job.Name(), "error", err)
	}
}

// RunNow runs a registered job immediately, outside its schedule. It
// returns ErrJobBusy when the job is already running.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return s.run(ctx, e)
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	if !e.lock.TryLock() {
		return ErrJobBusy
	}
	defer e.lock.Unlock()

	s.logger.Debug("cron: job started", "job", e.job.Name())
	if err := e.job.Run(ctx); err != nil {
		return err
	}
	s.logger.Debug("cron: job completed", "job", e.job.Name())
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("cron: scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
