package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs one job immediately and then on a cron schedule. Every run,
// including manual triggers, goes through the same skip-if-running guard so
// two checks never overlap.
type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	job    cron.Job
	spec   string
	logger *zap.Logger

	mu        sync.Mutex
	stopping  bool
	triggered sync.WaitGroup
}

// New validates spec and prepares the schedule. ctx is handed to every run.
func New(ctx context.Context, spec string, run func(ctx context.Context), logger *zap.Logger) (*Scheduler, error) {
	cl := newCronLogger(logger)
	s := &Scheduler{
		ctx:    ctx,
		cron:   cron.New(cron.WithLogger(cl)),
		spec:   spec,
		logger: logger,
	}
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		run(s.ctx)
	}))

	if _, err := s.cron.AddJob(spec, s.job); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the schedule, performs the first run right away and blocks until
// ctx is done. Runs in progress, scheduled or triggered, are waited for before
// returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("price alert scheduler started", zap.String("schedule", s.spec))

	s.logger.Info("checking prices for the first time")
	s.job.Run()
	s.logger.Info("waiting for scheduled checks", zap.Time("next", s.Next()))

	<-ctx.Done()
	s.logger.Info("stopping scheduler")
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.triggered.Wait()
	return ctx.Err()
}

// Trigger starts an extra run in the background. It is dropped when a run is
// already in progress or the scheduler is stopping.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		s.logger.Warn("scheduler is stopping, price check not started")
		return
	}
	s.triggered.Add(1)
	go func() {
		defer s.triggered.Done()
		s.job.Run()
	}()
}

// RunNow performs a run synchronously, subject to the same guard as Trigger.
func (s *Scheduler) RunNow() {
	s.job.Run()
}

// Next returns when the schedule fires next, zero before Run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
