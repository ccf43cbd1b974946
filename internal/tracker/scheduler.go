package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic full-sweep check on an interval.
type Scheduler struct {
	cron    *cron.Cron
	tracker *Tracker
	log     *slog.Logger
}

// NewScheduler creates a Scheduler that sweeps every checkInterval.
func NewScheduler(t *Tracker, checkInterval time.Duration, log *slog.Logger) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:    c,
		tracker: t,
		log:     log,
	}

	if _, err := c.AddFunc("@every "+checkInterval.String(), s.runSweep); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins running scheduled sweeps.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for a running sweep to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runSweep() {
	ctx := context.Background()
	s.log.Info("scheduled sweep starting")
	if _, err := s.tracker.CheckAll(ctx); err != nil {
		s.log.Error("scheduled sweep failed", "error", err)
	}
}
