package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a deploy of dirty documents on a cron schedule.
type Scheduler struct {
	deployer *Deployer
	schedule string
	logger   *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	runs   chan *BatchResult
}

// NewScheduler validates schedule (standard five field cron syntax or
// descriptors like "@every 5m").
func NewScheduler(deployer *Deployer, schedule string, logger *slog.Logger) (*Scheduler, error) {
	_, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("%w '%s': %w", ErrInvalidSchedule, schedule, err)
	}

	return &Scheduler{
		deployer: deployer,
		schedule: schedule,
		logger:   logger.With("component", "scheduler"),
	}, nil
}

// Runs delivers the result of every finished run when set before Start.
func (s *Scheduler) Runs(ch chan *BatchResult) {
	s.runs = ch
}

// Start schedules the sync job. Overlapping runs are skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	entryID, err := s.cron.AddFunc(s.schedule, s.Sync)
	if err != nil {
		return fmt.Errorf("failed to add sync job: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduled sync started", "schedule", s.schedule, "entry_id", entryID)

	return nil
}

// Sync runs one deploy of dirty documents.
func (s *Scheduler) Sync() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	batch, err := s.deployer.DeployDirty(ctx)

	switch {
	case errors.Is(err, ErrNothingToDeploy):
		s.logger.DebugContext(ctx, "Nothing to sync")
	case err != nil:
		s.logger.ErrorContext(ctx, "Scheduled sync failed", "error", err)
	default:
		s.logger.InfoContext(ctx, "Scheduled sync finished", "succeeded", len(batch.Succeeded()), "failed", len(batch.Failed()))
	}

	if s.runs != nil && batch != nil {
		select {
		case s.runs <- batch:
		case <-ctx.Done():
		}
	}
}

// Stop cancels the running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("Scheduled sync stopped")
	}
}
