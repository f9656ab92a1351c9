/*
scheduler.go - Automated monthly draft generation

PURPOSE:
  Runs the generation pass on a cron schedule so a month's drafts exist
  before the billing team starts reviewing. The default schedule fires at
  09:00 on the 1st of every month for the current month.

DESIGN:
  - Generation is idempotent: contracts already billed are skipped, so a
    missed or repeated firing never creates duplicates.
  - Drafts are saved immediately; reviewers confirm and lock via the API.

USAGE:
  sched, err := NewScheduler(handler, "0 9 1 * *", logger)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - handlers.go: GenerateBillings (manual generation)
  - billing/generator.go: the generation pass itself
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler fires monthly draft generation on a cron schedule.
type Scheduler struct {
	handler *Handler
	cron    *cron.Cron
	log     zerolog.Logger
}

// NewScheduler creates a scheduler with a standard 5-field cron spec.
func NewScheduler(h *Handler, spec string, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		handler: h,
		cron:    cron.New(),
		log:     log.With().Str("component", "scheduler").Logger(),
	}

	if _, err := s.cron.AddFunc(spec, s.generateCurrentMonth); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) generateCurrentMonth() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	year, month := now.Year(), int(now.Month())

	drafts, report, err := s.handler.Generator.GenerateMonth(ctx, year, month)
	if err != nil {
		s.log.Error().Err(err).Int("year", year).Int("month", month).Msg("scheduled generation failed")
		return
	}

	saveReport, err := s.handler.Generator.SaveBillings(ctx, drafts)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled save failed")
		return
	}

	s.log.Info().
		Int("year", year).Int("month", month).
		Int("created", saveReport.Created).
		Int("skipped_duplicate", report.SkippedDuplicate+saveReport.SkippedDuplicate).
		Int("skipped_ineligible", report.SkippedIneligible).
		Msg("scheduled generation complete")
}
