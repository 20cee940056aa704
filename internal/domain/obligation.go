package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ObligationType string

const (
	ObligationVendorBill ObligationType = "vendor_bill"
	ObligationSubscription ObligationType = "subscription"
	ObligationPayroll    ObligationType = "payroll"
	ObligationContractor ObligationType = "contractor"
	ObligationLoan       ObligationType = "loan_payment"
	ObligationTax        ObligationType = "tax_obligation"
	ObligationLease      ObligationType = "lease"
	ObligationOther      ObligationType = "other"
)

type AmountType string

const (
	AmountFixed     AmountType = "fixed"
	AmountVariable  AmountType = "variable"
	AmountMilestone AmountType = "milestone"
)

type AmountSource string

const (
	SourceManualEntry      AmountSource = "manual_entry"
	SourceLedgerSync       AmountSource = "ledger_sync"
	SourceRepeatingInvoice AmountSource = "repeating_invoice"
	SourceContractUpload   AmountSource = "contract_upload"
)

type Frequency string

const (
	FrequencyOneTime   Frequency = "one_time"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiWeekly  Frequency = "bi_weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Weight maps a confidence tier to the weight used by the forecast
// confidence metric.
func (c Confidence) Weight() decimal.Decimal {
	switch c {
	case ConfidenceHigh:
		return decimal.NewFromInt(1)
	case ConfidenceMedium:
		return decimal.NewFromFloat(0.8)
	default:
		return decimal.NewFromFloat(0.5)
	}
}

// VariabilityRule describes how a variable obligation's per-period amount is
// estimated. The estimator itself is supplied externally; the schedule
// generator only carries the rule through.
type VariabilityRule struct {
	Type   string                     `json:"type"` // hourly_rate | commission | historical_average
	Params map[string]decimal.Decimal `json:"params,omitempty"`
}

// ObligationAgreement is the canonical committed cash-flow source: the
// contract behind a series of expected payments. Identity is immutable;
// editing terms supersedes the agreement rather than mutating it, so
// schedule lineage stays reconstructable.
type ObligationAgreement struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	Type            ObligationType   `json:"type"`
	AmountType      AmountType       `json:"amountType"`
	AmountSource    AmountSource     `json:"amountSource"`
	BaseAmount      decimal.Decimal  `json:"baseAmount"`
	Variability     *VariabilityRule `json:"variability,omitempty"`
	Currency        string           `json:"currency"`
	Frequency       Frequency        `json:"frequency"`
	StartDate       time.Time        `json:"startDate"`
	EndDate         *time.Time       `json:"endDate,omitempty"` // nil = ongoing
	Category        ExpenseCategory  `json:"category"`
	AccountID       *string          `json:"accountId,omitempty"`
	ClientID        *string          `json:"clientId,omitempty"`        // inflow when set
	ExpenseBucketID *string          `json:"expenseBucketId,omitempty"` // outflow when set
	Confidence      Confidence       `json:"confidence"`
	VendorName      *string          `json:"vendorName,omitempty"`
	SupersededBy    *string          `json:"supersededBy,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// IsInflow reports whether the agreement produces cash in (client revenue)
// rather than cash out.
func (a *ObligationAgreement) IsInflow() bool {
	return a.ClientID != nil
}

type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleDue       ScheduleStatus = "due"
	SchedulePaid      ScheduleStatus = "paid"
	ScheduleOverdue   ScheduleStatus = "overdue"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

type EstimateSource string

const (
	EstimateFixedAgreement    EstimateSource = "fixed_agreement"
	EstimateHistoricalAverage EstimateSource = "historical_average"
	EstimateManual            EstimateSource = "manual_estimate"
	EstimateLedgerInvoice     EstimateSource = "ledger_invoice"
)

// ObligationSchedule is one expected payment instance derived from an
// agreement. Schedules are regenerated, never duplicated, when the parent
// agreement changes.
type ObligationSchedule struct {
	ID              string          `json:"id"`
	ObligationID    string          `json:"obligationId"`
	DueDate         time.Time       `json:"dueDate"`
	PeriodStart     *time.Time      `json:"periodStart,omitempty"`
	PeriodEnd       *time.Time      `json:"periodEnd,omitempty"`
	EstimatedAmount decimal.Decimal `json:"estimatedAmount"`
	EstimateSource  EstimateSource  `json:"estimateSource"`
	Confidence      Confidence      `json:"confidence"`
	Status          ScheduleStatus  `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentReversed  PaymentStatus = "reversed"
)

// PaymentEvent is a realized payment, optionally reconciled against a
// schedule to compare projected and actual cash.
type PaymentEvent struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	ObligationID *string         `json:"obligationId,omitempty"`
	ScheduleID   *string         `json:"scheduleId,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	PaymentDate  time.Time       `json:"paymentDate"`
	AccountID    *string         `json:"accountId,omitempty"`
	Status       PaymentStatus   `json:"status"`
	Source       string          `json:"source"` // manual_entry | ledger_sync | bank_feed | csv_import
	IsReconciled bool            `json:"isReconciled"`
	VendorName   *string         `json:"vendorName,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type ObligationRepository interface {
	Create(agreement *ObligationAgreement) (*ObligationAgreement, error)
	GetByID(userID, id string) (*ObligationAgreement, error)
	ListByUser(userID string, includeSuperseded bool) ([]*ObligationAgreement, error)
	MarkSuperseded(userID, id, successorID string) error

	CreateSchedules(schedules []*ObligationSchedule) error
	ListSchedules(obligationID string) ([]*ObligationSchedule, error)
	ListSchedulesByUser(userID string, from, to time.Time, statuses []ScheduleStatus) ([]*ObligationSchedule, error)
	DeleteFutureSchedules(obligationID string, from time.Time) (int64, error)
	UpdateScheduleStatus(id string, status ScheduleStatus) error

	CreatePayment(payment *PaymentEvent) (*PaymentEvent, error)
	ListPaymentsByUser(userID string, from, to time.Time) ([]*PaymentEvent, error)
}
