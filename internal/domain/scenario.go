package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ScenarioType string

const (
	ScenarioClientLoss       ScenarioType = "client_loss"
	ScenarioClientGain       ScenarioType = "client_gain"
	ScenarioClientChange     ScenarioType = "client_change"
	ScenarioHiring           ScenarioType = "hiring"
	ScenarioFiring           ScenarioType = "firing"
	ScenarioContractorGain   ScenarioType = "contractor_gain"
	ScenarioContractorLoss   ScenarioType = "contractor_loss"
	ScenarioExpenseIncrease  ScenarioType = "increased_expense"
	ScenarioExpenseDecrease  ScenarioType = "decreased_expense"
	ScenarioPaymentDelayIn   ScenarioType = "payment_delay_in"
	ScenarioPaymentDelayOut  ScenarioType = "payment_delay_out"
)

type ScenarioStatus string

const (
	ScenarioDraft     ScenarioStatus = "draft"
	ScenarioActive    ScenarioStatus = "active"
	ScenarioSaved     ScenarioStatus = "saved"
	ScenarioDiscardedStatus ScenarioStatus = "discarded"
	ScenarioConfirmed ScenarioStatus = "confirmed"
)

// ScenarioScope identifies what the scenario edit targets.
type ScenarioScope struct {
	ClientID        *string `json:"clientId,omitempty"`
	ExpenseBucketID *string `json:"expenseBucketId,omitempty"`
}

// ScenarioParams carries the edit parameters. Amount and Frequency apply to
// gain-type scenarios, DeltaPercent to change-type ones, DelayDays to
// payment delays. A scenario with zero amount and zero delay is a no-op whose
// comparison delta is zero for every week.
type ScenarioParams struct {
	EffectiveDate time.Time       `json:"effectiveDate"`
	Amount        decimal.Decimal `json:"amount"`
	Frequency     Frequency       `json:"frequency,omitempty"`
	DeltaPercent  decimal.Decimal `json:"deltaPercent"` // signed; -100..+inf
	DelayDays     int             `json:"delayDays"`
}

// Scenario is a named hypothetical change. Layering is a singly linked
// chain: at most one parent, applied strictly after it.
type Scenario struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	Name             string         `json:"name"`
	Type             ScenarioType   `json:"type"`
	Scope            ScenarioScope  `json:"scope"`
	Params           ScenarioParams `json:"params"`
	Status           ScenarioStatus `json:"status"`
	ParentScenarioID *string        `json:"parentScenarioId,omitempty"`
	LayerOrder       int            `json:"layerOrder"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// WeekDelta is the per-week difference between scenario and base forecasts.
type WeekDelta struct {
	WeekNumber int             `json:"weekNumber"`
	Base       decimal.Decimal `json:"base"`
	Scenario   decimal.Decimal `json:"scenario"`
	Delta      decimal.Decimal `json:"delta"`
}

// ScenarioComparison diffs a scenario forecast against its base. Both
// forecasts share every input except the scenario edits.
type ScenarioComparison struct {
	ScenarioID      string               `json:"scenarioId"`
	Base            *ForecastResponse    `json:"base"`
	Modified        *ForecastResponse    `json:"modified"`
	WeekDeltas      []WeekDelta          `json:"weekDeltas"`
	EndDelta        decimal.Decimal      `json:"endDelta"` // week-13 ending balance delta
	RuleEvaluations []RuleEvaluation     `json:"ruleEvaluations"`
	Suggestions     []ScenarioSuggestion `json:"suggestions"` // second-order, from post-scenario state
}

// ScenarioSuggestion is a pre-filled scenario template a user can accept.
type ScenarioSuggestion struct {
	Type        ScenarioType   `json:"type"`
	Title       string         `json:"title"`
	Reason      string         `json:"reason"`
	Scope       ScenarioScope  `json:"scope"`
	Params      ScenarioParams `json:"params"`
	Severity    string         `json:"severity"`
	Priority    int            `json:"priority"`
	TriggerID   string         `json:"triggerId,omitempty"`
	InstanceID  string         `json:"instanceId,omitempty"`
}

type ScenarioRepository interface {
	Create(scenario *Scenario) (*Scenario, error)
	GetByID(userID, id string) (*Scenario, error)
	ListByUser(userID string, statuses []ScenarioStatus) ([]*Scenario, error)
	UpdateStatus(userID, id string, status ScenarioStatus) error
}
