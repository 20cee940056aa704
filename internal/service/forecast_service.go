package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/util"
)

// maxEventsPerWeek caps the per-week event list returned to clients. The
// totals always cover every event; only the detail list is truncated.
const maxEventsPerWeek = 10

// ForecastService produces the rolling 13-week cash projection.
type ForecastService struct {
	accounts domain.AccountRepository
	source   EventSource
	horizon  int
	logger   zerolog.Logger
	now      func() time.Time
}

// NewForecastService creates a ForecastService. horizon is the number of
// projection weeks, excluding the week-0 snapshot.
func NewForecastService(accounts domain.AccountRepository, source EventSource, horizon int, logger zerolog.Logger) *ForecastService {
	if horizon <= 0 {
		horizon = domain.ForecastHorizonWeeks
	}
	return &ForecastService{
		accounts: accounts,
		source:   source,
		horizon:  horizon,
		logger:   logger,
		now:      time.Now,
	}
}

// GetForecast builds the projection for a user starting today. When event
// generation fails the forecast degrades to the balance snapshot alone; a
// partial projection is never returned.
func (s *ForecastService) GetForecast(ctx context.Context, userID string) (*domain.ForecastResponse, error) {
	startingCash, err := s.accounts.SumBalances(userID)
	if err != nil {
		return nil, fmt.Errorf("sum account balances: %w", err)
	}

	start := util.Day(s.now())
	end := start.AddDate(0, 0, s.horizon*7-1)

	events, err := s.source.GenerateEvents(ctx, userID, start, end)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("event generation failed, degrading to balance snapshot")
		events = nil
	}

	return ComputeForecast(startingCash, start, events, s.horizon)
}

// ComputeForecast is the pure projection over an explicit event set. It
// returns weeks 0..horizon where week 0 is the current-position snapshot
// and each later week covers 7 days. Balances chain: each week starts where
// the previous one ended.
func ComputeForecast(startingCash decimal.Decimal, start time.Time, events []domain.CashEvent, horizon int) (*domain.ForecastResponse, error) {
	start = util.Day(start)

	weeks := make([]domain.ForecastWeek, 0, horizon+1)
	weeks = append(weeks, domain.ForecastWeek{
		WeekNumber:      0,
		WeekStart:       start,
		WeekEnd:         start,
		StartingBalance: startingCash,
		CashIn:          decimal.Zero,
		CashOut:         decimal.Zero,
		NetChange:       decimal.Zero,
		EndingBalance:   startingCash,
	})

	balance := startingCash
	totalIn := decimal.Zero
	totalOut := decimal.Zero
	lowestWeek := 0
	lowestAmount := startingCash
	var runway *int

	for n := 1; n <= horizon; n++ {
		weekStart := start.AddDate(0, 0, (n-1)*7)
		weekEnd := weekStart.AddDate(0, 0, 6)

		week := domain.ForecastWeek{
			WeekNumber:      n,
			WeekStart:       weekStart,
			WeekEnd:         weekEnd,
			StartingBalance: balance,
			CashIn:          decimal.Zero,
			CashOut:         decimal.Zero,
		}

		var weekEvents []domain.CashEvent
		for _, e := range events {
			if !util.InRange(e.Date, weekStart, weekEnd) {
				continue
			}
			if e.Amount.IsNegative() {
				return nil, fmt.Errorf("%w: event %s has negative amount %s", domain.ErrInvariantViolation, e.ID, e.Amount)
			}
			switch e.Direction {
			case domain.DirectionIn:
				week.CashIn = week.CashIn.Add(e.Amount)
				addTier(&week.CashInByTier, e.Confidence, e.Amount)
			case domain.DirectionOut:
				week.CashOut = week.CashOut.Add(e.Amount)
				addTier(&week.CashOutByTier, e.Confidence, e.Amount)
			default:
				return nil, fmt.Errorf("%w: event %s has direction %q", domain.ErrInvariantViolation, e.ID, e.Direction)
			}
			weekEvents = append(weekEvents, e)
		}

		week.NetChange = week.CashIn.Sub(week.CashOut)
		week.EndingBalance = week.StartingBalance.Add(week.NetChange)
		week.Events = topEvents(weekEvents)

		balance = week.EndingBalance
		totalIn = totalIn.Add(week.CashIn)
		totalOut = totalOut.Add(week.CashOut)

		if week.EndingBalance.LessThan(lowestAmount) {
			lowestAmount = week.EndingBalance
			lowestWeek = n
		}
		if runway == nil && week.EndingBalance.LessThanOrEqual(decimal.Zero) {
			w := n
			runway = &w
		}

		weeks = append(weeks, week)
	}

	return &domain.ForecastResponse{
		StartingCash: startingCash,
		StartDate:    start,
		Weeks:        weeks,
		Summary: domain.ForecastSummary{
			LowestCashWeek:   lowestWeek,
			LowestCashAmount: lowestAmount,
			TotalCashIn:      totalIn,
			TotalCashOut:     totalOut,
			RunwayWeeks:      runway,
		},
	}, nil
}

func addTier(b *domain.ConfidenceBreakdown, c domain.Confidence, amount decimal.Decimal) {
	switch c {
	case domain.ConfidenceHigh:
		b.High = b.High.Add(amount)
	case domain.ConfidenceMedium:
		b.Medium = b.Medium.Add(amount)
	default:
		b.Low = b.Low.Add(amount)
	}
}

// topEvents keeps the largest events of a week, largest first, so the UI can
// show what moved the number without shipping the full ledger.
func topEvents(events []domain.CashEvent) []domain.CashEvent {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Amount.GreaterThan(events[j].Amount)
	})
	if len(events) > maxEventsPerWeek {
		events = events[:maxEventsPerWeek]
	}
	return events
}
