package service

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/tamio/tamio-backend/internal/domain"
)

// TriggerSweeper runs the trigger evaluation for every user on a cron
// schedule, so suggestions surface without anyone opening the app.
type TriggerSweeper struct {
	users    domain.UserRepository
	triggers *TriggerService
	spec     string
	logger   zerolog.Logger
	cron     *cron.Cron
}

// NewTriggerSweeper creates a TriggerSweeper. spec is a standard 5-field
// cron expression.
func NewTriggerSweeper(users domain.UserRepository, triggers *TriggerService, spec string, logger zerolog.Logger) *TriggerSweeper {
	return &TriggerSweeper{
		users:    users,
		triggers: triggers,
		spec:     spec,
		logger:   logger,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *TriggerSweeper) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.spec, func() { s.sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Str("spec", s.spec).Msg("trigger sweeper started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *TriggerSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("trigger sweeper stopped")
}

func (s *TriggerSweeper) sweep(ctx context.Context) {
	users, err := s.users.ListAll()
	if err != nil {
		s.logger.Error().Err(err).Msg("trigger sweep could not list users")
		return
	}

	total := 0
	stale := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		expired, err := s.triggers.ExpireStale(ctx, user.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", user.ID).Msg("expiring stale suggestions failed")
		}
		stale += expired

		fired, err := s.triggers.EvaluateTriggers(ctx, user.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", user.ID).Msg("trigger sweep failed for user")
			continue
		}
		total += len(fired)
	}
	s.logger.Info().Int("users", len(users)).Int("fired", total).Int("expired", stale).Msg("trigger sweep complete")
}
