package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricKind names one of the independently computed behavior metrics.
type MetricKind string

const (
	MetricForecastConfidence  MetricKind = "forecast_confidence"
	MetricBufferBreach        MetricKind = "buffer_breach"
	MetricHealthScore         MetricKind = "health_score"
	MetricClientConcentration MetricKind = "client_concentration"
	MetricRevenueAtRisk       MetricKind = "revenue_at_risk"
	MetricPaymentReliability  MetricKind = "payment_reliability"
	MetricExpenseVolatility   MetricKind = "expense_volatility"
	MetricDiscretionaryRatio  MetricKind = "discretionary_ratio"
	MetricUpcomingCommitments MetricKind = "upcoming_commitments"
	MetricBufferIntegrity     MetricKind = "buffer_integrity"
	MetricBufferTrend         MetricKind = "buffer_trend"
	MetricReactiveDecisions   MetricKind = "reactive_decisions"
)

// MetricResult is the envelope every metric returns. Exactly one of Value or
// Insufficient is meaningful: a metric that cannot be computed reports
// Insufficient with a reason instead of failing the whole analytics run.
type MetricResult struct {
	Kind         MetricKind  `json:"kind"`
	Value        interface{} `json:"value,omitempty"`
	Insufficient bool        `json:"insufficient,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	ComputedAt   time.Time   `json:"computedAt"`
}

type BufferStatus string

const (
	BufferHealthy  BufferStatus = "HEALTHY"
	BufferAtRisk   BufferStatus = "AT_RISK"
	BufferBreach   BufferStatus = "BREACH"
	BufferCritical BufferStatus = "CRITICAL"
)

type TrendDirection string

const (
	TrendBuilding TrendDirection = "BUILDING"
	TrendBurning  TrendDirection = "BURNING"
	TrendStable   TrendDirection = "STABLE"
)

// ForecastConfidenceResult is the amount-weighted confidence of the forecast.
type ForecastConfidenceResult struct {
	Percentage   decimal.Decimal `json:"percentage"` // 0-100
	Level        Confidence      `json:"level"`
	HighAmount   decimal.Decimal `json:"highAmount"`
	MediumAmount decimal.Decimal `json:"mediumAmount"`
	LowAmount    decimal.Decimal `json:"lowAmount"`
}

type BufferBreachResult struct {
	Status        BufferStatus    `json:"status"`
	LowestBalance decimal.Decimal `json:"lowestBalance"`
	LowestWeek    int             `json:"lowestWeek"`
	Target        decimal.Decimal `json:"target"`
}

type HealthScoreResult struct {
	Score           decimal.Decimal `json:"score"` // 0-100
	IncomeScore     decimal.Decimal `json:"incomeScore"`
	ExpenseScore    decimal.Decimal `json:"expenseScore"`
	DisciplineScore decimal.Decimal `json:"disciplineScore"`
}

type ClientShare struct {
	ClientID string          `json:"clientId"`
	Name     string          `json:"name"`
	Share    decimal.Decimal `json:"share"` // 0-1
	Flag     string          `json:"flag,omitempty"` // warn | critical
}

type ConcentrationResult struct {
	HHI    decimal.Decimal `json:"hhi"`   // 0-1
	Score  decimal.Decimal `json:"score"` // (1-HHI)*100
	Shares []ClientShare   `json:"shares"`
}

type ClientAtRisk struct {
	ClientID      string          `json:"clientId"`
	Name          string          `json:"name"`
	MonthlyAmount decimal.Decimal `json:"monthlyAmount"`
	RiskProb      decimal.Decimal `json:"riskProb"`
	Window        int             `json:"windowDays"` // 30 or 60
}

type RevenueAtRiskResult struct {
	At30Days decimal.Decimal `json:"at30Days"`
	At60Days decimal.Decimal `json:"at60Days"`
	Clients  []ClientAtRisk  `json:"clients"`
}

type ClientReliability struct {
	ClientID     string          `json:"clientId"`
	Name         string          `json:"name"`
	MeanDelay    decimal.Decimal `json:"meanDelayDays"`
	Variance     decimal.Decimal `json:"variance"`
	Trend        string          `json:"trend"`
	Score        decimal.Decimal `json:"score"` // 0-100
}

type ReliabilityResult struct {
	OverallScore decimal.Decimal     `json:"overallScore"` // revenue-weighted
	Clients      []ClientReliability `json:"clients"`
}

type CategoryVolatility struct {
	Category ExpenseCategory `json:"category"`
	Index    decimal.Decimal `json:"index"` // unstable share * 100
}

type VolatilityResult struct {
	OverallScore decimal.Decimal      `json:"overallScore"` // 100 - mean(index)
	Categories   []CategoryVolatility `json:"categories"`
}

type DiscretionaryResult struct {
	DiscretionaryTotal    decimal.Decimal `json:"discretionaryTotal"`
	NonDiscretionaryTotal decimal.Decimal `json:"nonDiscretionaryTotal"`
	Ratio                 decimal.Decimal `json:"ratio"`     // % of total spend
	Delayable             decimal.Decimal `json:"delayable"` // discretionary * 0.7
}

type UpcomingCommitment struct {
	ScheduleID string          `json:"scheduleId"`
	VendorName string          `json:"vendorName"`
	Category   ExpenseCategory `json:"category"`
	DueDate    time.Time       `json:"dueDate"`
	Amount     decimal.Decimal `json:"amount"`
	Delayable  bool            `json:"delayable"`
}

type CommitmentsResult struct {
	Total decimal.Decimal      `json:"total"`
	Items []UpcomingCommitment `json:"items"` // ascending by due date, capped at 10
}

type BufferIntegrityResult struct {
	Score   decimal.Decimal `json:"score"` // current/target*100, may exceed 100
	Status  BufferStatus    `json:"status"`
	Current decimal.Decimal `json:"current"`
	Target  decimal.Decimal `json:"target"`
}

type BufferTrendResult struct {
	Direction     TrendDirection  `json:"direction"`
	WeeklyDelta   decimal.Decimal `json:"weeklyDelta"` // mean week-over-week change
	RunwayWeeks   *decimal.Decimal `json:"runwayWeeks,omitempty"` // only when burning
}
