// Package scheduler triggers recurring runs of registered sagas on cron
// schedules, the typical shape of nightly regression rehearsals.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/sagaline/internal/store"
)

// SagaStarter is the interface the scheduler uses to launch runs.
// Satisfied by the engine facade (avoids import cycle).
type SagaStarter interface {
	StartRegistered(ctx context.Context, sagaKey string, params map[string]any) error
}

// Scheduler polls the store for due scheduled runs and launches them.
type Scheduler struct {
	store   store.Store
	starter SagaStarter
	parser  cron.Parser
	logger  *slog.Logger
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]struct{} // schedule IDs currently executing (dedup)
}

// NewScheduler creates a new Scheduler.
func NewScheduler(s store.Store, starter SagaStarter, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    s,
		starter:  starter,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Start launches the background scheduling loop with a 60s ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	// Run an initial tick immediately.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick checks all enabled schedules and launches those that are due.
func (s *Scheduler) tick(ctx context.Context) {
	enabled := true
	scheds, err := s.store.ListScheduledRuns(ctx, store.ScheduledRunFilter{Enabled: &enabled})
	if err != nil {
		s.logger.Error("failed to list scheduled runs", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	for _, sched := range scheds {
		if sched.NextRunAt == nil || !sched.NextRunAt.After(now) {
			if !s.tryAcquire(sched.ID) {
				continue // already running (dedup)
			}
			if err := s.launch(ctx, sched, now); err != nil {
				s.logger.Error("failed to launch scheduled run",
					slog.String("schedule_id", sched.ID),
					slog.String("error", err.Error()),
				)
			}
			s.release(sched.ID)
		}
	}
}

// launch starts one scheduled run and updates its timestamps.
func (s *Scheduler) launch(ctx context.Context, sched *store.ScheduledRun, now time.Time) error {
	s.logger.Info("launching scheduled run",
		slog.String("schedule_id", sched.ID),
		slog.String("saga_key", sched.SagaKey),
	)

	var params map[string]any
	if len(sched.Params) > 0 {
		if err := json.Unmarshal(sched.Params, &params); err != nil {
			return s.updateScheduleStatus(ctx, sched, now, "error")
		}
	}

	err := s.starter.StartRegistered(ctx, sched.SagaKey, params)
	status := "success"
	if err != nil {
		status = "error"
		s.logger.Error("scheduled run launch failed",
			slog.String("schedule_id", sched.ID),
			slog.String("error", err.Error()),
		)
	}

	return s.updateScheduleStatus(ctx, sched, now, status)
}

func (s *Scheduler) updateScheduleStatus(ctx context.Context, sched *store.ScheduledRun, now time.Time, status string) error {
	nextRun, err := s.CalculateNextRun(sched.CronExpression, now)
	if err != nil {
		return fmt.Errorf("calculate next run for schedule %q: %w", sched.ID, err)
	}

	return s.store.UpdateScheduledRun(ctx, sched.ID, store.ScheduledRunUpdate{
		LastRunAt:     &now,
		NextRunAt:     &nextRun,
		LastRunStatus: status,
	})
}

// tryAcquire returns true and marks the schedule as in-flight if it is not already running.
func (s *Scheduler) tryAcquire(id string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[id]; ok {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

// release removes the schedule from the in-flight set.
func (s *Scheduler) release(id string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, id)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}

// RecoverMissed checks for schedules that missed their next_run_at and
// launches them once, used at process start after downtime.
func (s *Scheduler) RecoverMissed(ctx context.Context) error {
	enabled := true
	scheds, err := s.store.ListScheduledRuns(ctx, store.ScheduledRunFilter{Enabled: &enabled})
	if err != nil {
		return fmt.Errorf("list missed schedules: %w", err)
	}

	now := time.Now().UTC()
	recovered := 0
	for _, sched := range scheds {
		if sched.NextRunAt != nil && sched.NextRunAt.Before(now) {
			if !s.tryAcquire(sched.ID) {
				continue
			}
			if err := s.launch(ctx, sched, now); err != nil {
				s.logger.Error("failed to recover missed schedule",
					slog.String("schedule_id", sched.ID),
					slog.String("error", err.Error()),
				)
				s.release(sched.ID)
				continue
			}
			s.release(sched.ID)
			recovered++
		}
	}

	if recovered > 0 {
		s.logger.Info("recovered missed schedules", slog.Int("count", recovered))
	}
	return nil
}
