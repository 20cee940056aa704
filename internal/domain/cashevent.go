package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

type EventType string

const (
	EventExpectedRevenue  EventType = "expected_revenue"
	EventExpectedExpense  EventType = "expected_expense"
	EventConfirmedExpense EventType = "confirmed_expense"
)

// CashEvent is a materialized, dated cash-flow line, the forecast engine's
// only input. Amount is always a non-negative magnitude; Direction carries
// the sign.
type CashEvent struct {
	ID                string          `json:"id"`
	Date              time.Time       `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Direction         Direction       `json:"direction"`
	Type              EventType       `json:"type"`
	Category          ExpenseCategory `json:"category"`
	Confidence        Confidence      `json:"confidence"`
	ConfidenceReason  string          `json:"confidenceReason,omitempty"`
	SourceID          string          `json:"sourceId"`
	SourceName        string          `json:"sourceName"`
	SourceType        string          `json:"sourceType"` // client | expense | obligation | payment
	IsRecurring       bool            `json:"isRecurring"`
	RecurrencePattern Frequency       `json:"recurrencePattern,omitempty"`
}

// EventID builds the deterministic synthetic event id. Regenerating events
// for unchanged source state yields identical ids, which is what makes
// regeneration idempotent.
func EventID(sourceType, sourceID string, date time.Time, seq int) string {
	return fmt.Sprintf("%s_%s_%s_%d", sourceType, sourceID, date.Format("2006-01-02"), seq)
}
