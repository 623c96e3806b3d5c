// Package scheduler wires up the cron job that periodically triggers a
// scoring batch without waiting for an HTTP call.
package scheduler

import (
	"context"
	"fmt"

	"job-scorer/internal/scorer"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner executes one scoring batch.
type Runner interface {
	Run(ctx context.Context) (*scorer.Result, error)
}

// Scheduler wraps robfig/cron around the batch runner. The batch lock in
// Redis keeps an overlapping cron fire and HTTP trigger from double-running.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
	logger *zap.Logger
}

func New(runner Runner, spec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runBatch(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))

	return nil
}

// Stop shuts the scheduler down, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runBatch(ctx context.Context) {
	result, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled batch run failed", zap.Error(err))
		return
	}

	s.logger.Info("scheduled batch run finished",
		zap.String("request_id", result.RequestID),
		zap.Int("processed_jobs", result.ProcessedJobs),
		zap.Int("failed_jobs", result.FailedJobs),
	)
}
