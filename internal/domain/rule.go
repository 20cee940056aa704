package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RuleMinimumCashBuffer RuleType = "minimum_cash_buffer"
)

// FinancialRule is a user-defined liquidity threshold checked against every
// forecast week.
type FinancialRule struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Type         RuleType        `json:"type"`
	BufferMonths int             `json:"bufferMonths"` // minimum_cash_buffer: months of expenses
	FixedTarget  decimal.Decimal `json:"fixedTarget"`  // optional absolute floor
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// RuleEvaluation is the outcome of checking one rule against one forecast.
// BreachWeek is the earliest breaching week, the actionable signal, not the
// worst one.
type RuleEvaluation struct {
	RuleID     string          `json:"ruleId"`
	Type       RuleType        `json:"type"`
	Passed     bool            `json:"passed"`
	Target     decimal.Decimal `json:"target"`
	BreachWeek *int            `json:"breachWeek,omitempty"`
	Err        string          `json:"error,omitempty"` // evaluation failure, isolated per rule
}

type RuleRepository interface {
	Create(rule *FinancialRule) (*FinancialRule, error)
	GetByID(userID, id string) (*FinancialRule, error)
	ListByUser(userID string, activeOnly bool) ([]*FinancialRule, error)
	Update(rule *FinancialRule) (*FinancialRule, error)
	Delete(userID, id string) error
}
