// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
)

// Scheduler runs a job on a standard five-field cron spec.
type Scheduler struct {
	cron   *cron.Cron
	jobID  cron.EntryID
	spec   string
	logger *slog.Logger
}

// New creates a scheduler for spec, evaluated in loc (UTC when nil).
func New(spec string, loc *time.Location, job func(), logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if loc == nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	id, err := c.AddFunc(spec, job)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return &Scheduler{
		cron:   c,
		jobID:  id,
		spec:   spec,
		logger: logging.Section(logger, logging.SectionServer),
	}, nil
}

// Start begins cron execution.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec, "next_run", s.Next())
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Next returns the next activation time, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.jobID).Next
}
