package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TriggerOperator string

const (
	OpLessThan    TriggerOperator = "lt"
	OpLessEqual   TriggerOperator = "lte"
	OpGreaterThan TriggerOperator = "gt"
	OpGreaterEqual TriggerOperator = "gte"
)

// Compare applies the operator to (value, threshold).
func (op TriggerOperator) Compare(value, threshold decimal.Decimal) bool {
	switch op {
	case OpLessThan:
		return value.LessThan(threshold)
	case OpLessEqual:
		return value.LessThanOrEqual(threshold)
	case OpGreaterThan:
		return value.GreaterThan(threshold)
	case OpGreaterEqual:
		return value.GreaterThanOrEqual(threshold)
	}
	return false
}

type TriggerSeverity string

const (
	SeverityInfo     TriggerSeverity = "info"
	SeverityWarning  TriggerSeverity = "warning"
	SeverityCritical TriggerSeverity = "critical"
)

// Trigger is a static rule over a behavior metric. When its condition holds
// and the cooldown window is clear it emits a TriggerInstance carrying a
// pre-filled scenario template.
type Trigger struct {
	ID            string          `json:"id"`
	Metric        MetricKind      `json:"metric"`
	Operator      TriggerOperator `json:"operator"`
	Threshold     decimal.Decimal `json:"threshold"`
	Severity      TriggerSeverity `json:"severity"`
	CooldownHours int             `json:"cooldownHours"`
	Priority      int             `json:"priority"` // display ranking only
	ScenarioType  ScenarioType    `json:"scenarioType"`
	Title         string          `json:"title"`
}

type InstanceStatus string

const (
	InstancePending   InstanceStatus = "pending"
	InstanceAccepted  InstanceStatus = "accepted"
	InstanceDismissed InstanceStatus = "dismissed"
	InstanceDeferred  InstanceStatus = "deferred"
	InstanceExpired   InstanceStatus = "expired"
)

// DeferExtension is how long a deferred instance pushes out its cooldown.
const DeferExtension = 72 * time.Hour

// TriggerInstance is one firing of a trigger for one scope.
type TriggerInstance struct {
	ID          string          `json:"id"`
	TriggerID   string          `json:"triggerId"`
	UserID      string          `json:"userId"`
	ScopeKey    string          `json:"scopeKey"` // client/bucket id, or "global"
	Status      InstanceStatus  `json:"status"`
	Severity    TriggerSeverity `json:"severity"`
	Suggestion  ScenarioSuggestion `json:"suggestion"`
	FiredAt     time.Time       `json:"firedAt"`
	CooldownUntil time.Time     `json:"cooldownUntil"`
	ResolvedAt  *time.Time      `json:"resolvedAt,omitempty"`
}

type TriggerRepository interface {
	CreateInstance(instance *TriggerInstance) (*TriggerInstance, error)
	GetInstance(userID, id string) (*TriggerInstance, error)
	ListInstances(userID string, statuses []InstanceStatus) ([]*TriggerInstance, error)
	// LatestFiring returns the most recent instance for a trigger+scope pair,
	// regardless of status, or ErrNotFound.
	LatestFiring(userID, triggerID, scopeKey string) (*TriggerInstance, error)
	UpdateInstance(instance *TriggerInstance) (*TriggerInstance, error)
}
