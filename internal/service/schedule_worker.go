package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/tamio/tamio-backend/internal/domain"
)

// ScheduleWorker keeps every user's schedule horizon rolled forward. It runs
// as a single background goroutine and stops when its context is cancelled.
type ScheduleWorker struct {
	users     domain.UserRepository
	schedules *ScheduleService
	interval  time.Duration
	logger    zerolog.Logger
}

// NewScheduleWorker creates a ScheduleWorker.
func NewScheduleWorker(users domain.UserRepository, schedules *ScheduleService, interval time.Duration, logger zerolog.Logger) *ScheduleWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ScheduleWorker{
		users:     users,
		schedules: schedules,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled. The first sweep happens one interval
// after start, not immediately, so process startup stays fast.
func (w *ScheduleWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("schedule worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("schedule worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ScheduleWorker) sweep(ctx context.Context) {
	users, err := w.users.ListAll()
	if err != nil {
		w.logger.Error().Err(err).Msg("schedule sweep could not list users")
		return
	}
	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		if err := w.schedules.RegenerateAll(ctx, user.ID); err != nil {
			w.logger.Error().Err(err).Str("user_id", user.ID).Msg("schedule sweep failed for user")
		}
	}
	w.logger.Debug().Int("users", len(users)).Msg("schedule sweep complete")
}
