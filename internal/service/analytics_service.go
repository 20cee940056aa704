package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/util"
	"golang.org/x/sync/errgroup"
)

// AnalyticsService assembles the data snapshot and dispatches the behavior
// metrics concurrently. A metric that cannot be computed reports itself as
// insufficient; it never fails the run.
type AnalyticsService struct {
	accounts    domain.AccountRepository
	clients     domain.ClientRepository
	expenses    domain.ExpenseRepository
	obligations domain.ObligationRepository
	rules       domain.RuleRepository
	forecast    *ForecastService
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAnalyticsService creates an AnalyticsService.
func NewAnalyticsService(
	accounts domain.AccountRepository,
	clients domain.ClientRepository,
	expenses domain.ExpenseRepository,
	obligations domain.ObligationRepository,
	rules domain.RuleRepository,
	forecast *ForecastService,
	logger zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		accounts:    accounts,
		clients:     clients,
		expenses:    expenses,
		obligations: obligations,
		rules:       rules,
		forecast:    forecast,
		logger:      logger,
		now:         time.Now,
	}
}

// ComputeAll builds the snapshot once and runs every registered metric over
// it in parallel. Results come back in a stable kind order.
func (s *AnalyticsService) ComputeAll(ctx context.Context, userID string) ([]domain.MetricResult, error) {
	snapshot, err := s.buildSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return RunMetrics(ctx, snapshot), nil
}

// ComputeOne runs a single metric.
func (s *AnalyticsService) ComputeOne(ctx context.Context, userID string, kind domain.MetricKind) (domain.MetricResult, error) {
	fn, ok := MetricRegistry[kind]
	if !ok {
		return domain.MetricResult{}, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidInput, kind)
	}
	snapshot, err := s.buildSnapshot(ctx, userID)
	if err != nil {
		return domain.MetricResult{}, err
	}
	return fn(snapshot), nil
}

// SnapshotFor exposes the assembled snapshot, used by the trigger sweep so
// it evaluates the same data the metrics did.
func (s *AnalyticsService) SnapshotFor(ctx context.Context, userID string) (*Snapshot, error) {
	return s.buildSnapshot(ctx, userID)
}

func (s *AnalyticsService) buildSnapshot(ctx context.Context, userID string) (*Snapshot, error) {
	now := util.Day(s.now())

	startingCash, err := s.accounts.SumBalances(userID)
	if err != nil {
		return nil, fmt.Errorf("sum account balances: %w", err)
	}

	forecast, err := s.forecast.GetForecast(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("forecast unavailable for analytics")
		forecast = nil
	}

	clients, err := s.clients.ListByUser(userID, false)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	buckets, err := s.expenses.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list expense buckets: %w", err)
	}

	schedules, err := s.obligations.ListSchedulesByUser(userID, now, now.AddDate(0, 0, 30),
		[]domain.ScheduleStatus{domain.ScheduleScheduled, domain.ScheduleDue})
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("schedules unavailable for analytics")
		schedules = nil
	}

	agreements := make(map[string]*domain.ObligationAgreement)
	if list, err := s.obligations.ListByUser(userID, false); err == nil {
		for _, a := range list {
			agreements[a.ID] = a
		}
	} else {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("agreements unavailable for analytics")
	}

	bufferMonths := 0
	if rules, err := s.rules.ListByUser(userID, true); err == nil {
		for _, r := range rules {
			if r.Type == domain.RuleMinimumCashBuffer && r.BufferMonths > 0 {
				bufferMonths = r.BufferMonths
				break
			}
		}
	}

	return &Snapshot{
		UserID:             userID,
		Now:                now,
		StartingCash:       startingCash,
		Forecast:           forecast,
		Clients:            clients,
		Buckets:            buckets,
		Schedules:          schedules,
		Agreements:         agreements,
		BufferTargetMonths: bufferMonths,
	}, nil
}

// RunMetrics dispatches every registered metric concurrently over one
// snapshot. The snapshot is read-only, so no locking is needed; each
// goroutine writes only its own slot.
func RunMetrics(ctx context.Context, snapshot *Snapshot) []domain.MetricResult {
	kinds := make([]domain.MetricKind, 0, len(MetricRegistry))
	for kind := range MetricRegistry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	results := make([]domain.MetricResult, len(kinds))
	g, _ := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			results[i] = MetricRegistry[kind](snapshot)
			return nil
		})
	}
	g.Wait()
	return results
}
