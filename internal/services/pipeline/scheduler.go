package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/common"
)

// Scheduler runs the routine on a cron schedule. Runs never overlap: a
// tick that fires while a run is still going is dropped.
type Scheduler struct {
	routine  *Routine
	schedule string
	opts     Options
	cron     *cron.Cron
	logger   arbor.ILogger

	mu      sync.Mutex
	running bool
	lastRun *time.Time
	lastErr error
}

func NewScheduler(routine *Routine, schedule string, opts Options, logger arbor.ILogger) (*Scheduler, error) {
	if err := common.ValidateSchedule(schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return &Scheduler{
		routine:  routine,
		schedule: schedule,
		opts:     opts,
		cron:     cron.New(),
		logger:   logger,
	}, nil
}

// Start registers the routine and begins ticking. It returns once the
// scheduler is running; Stop shuts it down.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("registering schedule: %w", err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.schedule).
		Msg("Routine scheduler started")
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then
// waits for any in-flight routine run to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

// Stop halts ticking and waits for the in-flight run, if any.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("Routine scheduler stopped")
}

// LastRun reports the start time and outcome of the most recent run.
func (s *Scheduler) LastRun() (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous routine run still in progress, tick dropped")
		return
	}
	s.running = true
	now := time.Now()
	s.lastRun = &now
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Msg("Scheduled routine run starting")
	_, err := s.routine.Run(ctx, s.opts)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Msg("Scheduled routine run failed")
		return
	}
	s.logger.Info().
		Str("duration", time.Since(now).Round(time.Second).String()).
		Msg("Scheduled routine run finished")
}
