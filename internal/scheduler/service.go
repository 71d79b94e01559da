package scheduler

import (
	"context"
	"time"

	"github.com/osintlab/socialscope/internal/config"
	"github.com/osintlab/socialscope/internal/pipeline"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service runs the aggregation pipeline on a fixed schedule.
type Service struct {
	config   *config.Config
	pipeline *pipeline.Service
	cron     *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, pipelineService *pipeline.Service) *Service {
	return &Service{
		config:   cfg,
		pipeline: pipelineService,
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loadLocation(cfg.TimeZone))),
	}
}

// loadLocation resolves the configured time zone, falling back to UTC when
// the name is empty or unknown.
func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logrus.Warnf("Unknown TIMEZONE %q, scheduling in UTC", name)
		return time.UTC
	}
	return loc
}

// Start begins scheduled pipeline runs. With SCHEDULE=off nothing is
// scheduled and runs only happen via the manual trigger endpoint.
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.Schedule {
	case "daily":
		// Run daily at 6 AM in the configured time zone
		cronExpression = "0 0 6 * * *"
	case "weekly":
		// Run weekly on Monday at 6 AM in the configured time zone
		cronExpression = "0 0 6 * * MON"
	case "off":
		logrus.Info("Scheduler disabled (SCHEDULE=off)")
		return nil
	default:
		cronExpression = "0 0 6 * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled aggregation run")
		if err := s.pipeline.Run(context.Background()); err != nil {
			logrus.Errorf("Scheduled aggregation run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s schedule", s.config.Schedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
