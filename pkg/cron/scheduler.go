// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger removes archived uploads created before a cutoff.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	purger    Purger
	schedule  string
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewScheduler creates a scheduler running the upload retention sweep on the
// given standard 5-field schedule.
func NewScheduler(purger Purger, schedule string, retention time.Duration, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		purger:    purger,
		schedule:  schedule,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs the retention sweep synchronously and returns the number of
// removed files.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	return s.purge(ctx)
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := s.purge(ctx); err != nil {
		s.logger.Error("upload retention sweep failed", slog.Any("error", err))
	}
}

func (s *Scheduler) purge(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	s.logger.Info("starting upload retention sweep", slog.Time("cutoff", cutoff))

	removed, err := s.purger.Purge(ctx, cutoff)
	if err != nil {
		return removed, err
	}

	s.logger.Info("upload retention sweep completed", slog.Int("files_removed", removed))
	return removed, nil
}
