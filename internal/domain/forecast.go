package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastHorizonWeeks is the rolling projection window.
const ForecastHorizonWeeks = 13

// ConfidenceBreakdown splits a week's cash totals by confidence tier.
type ConfidenceBreakdown struct {
	High   decimal.Decimal `json:"high"`
	Medium decimal.Decimal `json:"medium"`
	Low    decimal.Decimal `json:"low"`
}

// ForecastWeek is one 7-day bucket of the projection. Computed, never
// persisted. Invariants: EndingBalance = StartingBalance + CashIn - CashOut,
// and week N+1's starting balance equals week N's ending balance.
type ForecastWeek struct {
	WeekNumber      int                 `json:"weekNumber"` // 0 is the current-position snapshot
	WeekStart       time.Time           `json:"weekStart"`
	WeekEnd         time.Time           `json:"weekEnd"`
	StartingBalance decimal.Decimal     `json:"startingBalance"`
	CashIn          decimal.Decimal     `json:"cashIn"`
	CashOut         decimal.Decimal     `json:"cashOut"`
	NetChange       decimal.Decimal     `json:"netChange"`
	EndingBalance   decimal.Decimal     `json:"endingBalance"`
	CashInByTier    ConfidenceBreakdown `json:"cashInByTier"`
	CashOutByTier   ConfidenceBreakdown `json:"cashOutByTier"`
	Events          []CashEvent         `json:"events"` // top contributors, capped
}

// ForecastSummary aggregates the projection. RunwayWeeks is the first week
// whose ending balance drops to or below zero, nil when the horizon is never
// breached.
type ForecastSummary struct {
	LowestCashWeek   int             `json:"lowestCashWeek"`
	LowestCashAmount decimal.Decimal `json:"lowestCashAmount"`
	TotalCashIn      decimal.Decimal `json:"totalCashIn"`
	TotalCashOut     decimal.Decimal `json:"totalCashOut"`
	RunwayWeeks      *int            `json:"runwayWeeks"`
}

// ForecastResponse is the 13-week projection: a week-0 snapshot row followed
// by weeks 1..13, plus the summary.
type ForecastResponse struct {
	StartingCash decimal.Decimal `json:"startingCash"`
	StartDate    time.Time       `json:"startDate"`
	Weeks        []ForecastWeek  `json:"weeks"`
	Summary      ForecastSummary `json:"summary"`
}

// ProjectionWeeks returns the forecast weeks excluding the week-0 snapshot.
func (f *ForecastResponse) ProjectionWeeks() []ForecastWeek {
	if len(f.Weeks) == 0 {
		return nil
	}
	if f.Weeks[0].WeekNumber == 0 {
		return f.Weeks[1:]
	}
	return f.Weeks
}
