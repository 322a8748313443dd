/**
 * @description
 * Cron scheduler setup for the nightly renewal job.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shoply/renewal-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  *slog.Logger
	config  config.Config
}

// NewScheduler creates a new scheduler instance. The renewal job runs in the
// configured timezone so "due today" means the shop's calendar day, not UTC's.
func NewScheduler(service *Service, logger *slog.Logger, cfg config.Config) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.RenewalTimezone)
	if err != nil {
		return nil, err
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:    c,
		service: service,
		logger:  logger,
		config:  cfg,
	}, nil
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.RenewalJobSchedule, s.RunRenewalJob); err != nil {
		s.logger.Error("failed to schedule renewal job", "error", err)
	} else {
		s.logger.Info("scheduled renewal job", "schedule", s.config.RenewalJobSchedule)
	}

	s.cron.Start()
}

// RunRenewalJob runs one renewal sweep for the current calendar day.
func (s *Scheduler) RunRenewalJob() {
	s.logger.Info("starting subscription renewal job")
	ctx := context.Background()

	summary, err := s.service.RenewSubscriptions(ctx, time.Now().In(s.cron.Location()))
	if err != nil {
		s.logger.Error("subscription renewal job failed", "error", err)
		return
	}

	s.logger.Info("subscription renewal job finished",
		"total", summary.Total, "succeeded", summary.Succeeded,
		"failed", summary.Failed, "skipped", summary.Skipped)
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
