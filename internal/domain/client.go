package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClientType string

const (
	ClientTypeRetainer ClientType = "retainer"
	ClientTypeProject  ClientType = "project"
	ClientTypeUsage    ClientType = "usage"
	ClientTypeMixed    ClientType = "mixed"
)

type ClientStatus string

const (
	ClientStatusActive  ClientStatus = "active"
	ClientStatusPaused  ClientStatus = "paused"
	ClientStatusDeleted ClientStatus = "deleted"
)

type PaymentBehavior string

const (
	PaymentBehaviorOnTime  PaymentBehavior = "on_time"
	PaymentBehaviorDelayed PaymentBehavior = "delayed"
	PaymentBehaviorUnknown PaymentBehavior = "unknown"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Milestone is one payment step of a project engagement. Each pending
// milestone turns into exactly one cash event at its expected date plus
// payment terms.
type Milestone struct {
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	ExpectedDate *time.Time      `json:"expectedDate,omitempty"`
	PaymentTerms string          `json:"paymentTerms"` // net_7, net_14, net_30...
	Status       string          `json:"status"`       // pending | completed | paid
}

// OutstandingInvoice is a one-time receivable synced from the accounting
// ledger. It exists regardless of the client's billing type.
type OutstandingInvoice struct {
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	ExpectedDate time.Time       `json:"expectedDate"`
	PaymentTerms string          `json:"paymentTerms"`
}

// BillingConfig carries the per-type billing parameters for a client.
// Only the section matching the client type (or sections, for mixed
// clients) is populated.
type BillingConfig struct {
	// Retainer billing
	Frequency    Frequency       `json:"frequency,omitempty"`
	InvoiceDay   int             `json:"invoiceDay,omitempty"` // day of month, clamped to short months
	Amount       decimal.Decimal `json:"amount,omitempty"`
	PaymentTerms string          `json:"paymentTerms,omitempty"`

	// Project billing
	TotalValue *decimal.Decimal `json:"totalValue,omitempty"`
	Milestones []Milestone      `json:"milestones,omitempty"`

	// Usage billing
	SettlementFrequency Frequency       `json:"settlementFrequency,omitempty"`
	TypicalAmount       decimal.Decimal `json:"typicalAmount,omitempty"`

	// Mixed billing sub-configs
	Retainer *BillingConfig `json:"retainer,omitempty"`
	Project  *BillingConfig `json:"project,omitempty"`
	Usage    *BillingConfig `json:"usage,omitempty"`

	// One-time receivables from ledger sync, any client type
	OutstandingInvoices []OutstandingInvoice `json:"outstandingInvoices,omitempty"`

	Source string `json:"source,omitempty"` // manual | ledger_sync
}

// Client is a revenue source in the legacy (pre-obligation) data path.
type Client struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Name            string          `json:"name"`
	Type            ClientType      `json:"type"`
	Currency        string          `json:"currency"`
	Status          ClientStatus    `json:"status"`
	PaymentBehavior PaymentBehavior `json:"paymentBehavior"`
	ChurnRisk       RiskLevel       `json:"churnRisk"`
	ScopeRisk       RiskLevel       `json:"scopeRisk"`
	Billing         BillingConfig   `json:"billing"`
	LedgerContactID *string         `json:"ledgerContactId,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// MonthlyRevenue returns the client's typical revenue per month, used for
// concentration and risk weighting. Milestone projects contribute their
// pending milestone total averaged over the forecast horizon months.
func (c *Client) MonthlyRevenue() decimal.Decimal {
	switch c.Type {
	case ClientTypeRetainer:
		return monthlyEquivalent(c.Billing.Amount, c.Billing.Frequency)
	case ClientTypeUsage:
		return monthlyEquivalent(c.Billing.TypicalAmount, c.Billing.SettlementFrequency)
	case ClientTypeProject:
		total := decimal.Zero
		for _, m := range c.Billing.Milestones {
			if m.Status == "pending" {
				total = total.Add(m.Amount)
			}
		}
		return total.Div(decimal.NewFromInt(3))
	case ClientTypeMixed:
		total := decimal.Zero
		if c.Billing.Retainer != nil {
			total = total.Add(monthlyEquivalent(c.Billing.Retainer.Amount, c.Billing.Retainer.Frequency))
		}
		if c.Billing.Usage != nil {
			total = total.Add(monthlyEquivalent(c.Billing.Usage.TypicalAmount, c.Billing.Usage.SettlementFrequency))
		}
		return total
	}
	return decimal.Zero
}

func monthlyEquivalent(amount decimal.Decimal, freq Frequency) decimal.Decimal {
	switch freq {
	case FrequencyWeekly:
		return amount.Mul(decimal.NewFromFloat(4.33))
	case FrequencyBiWeekly:
		return amount.Mul(decimal.NewFromFloat(2.17))
	case FrequencyQuarterly:
		return amount.Div(decimal.NewFromInt(3))
	case FrequencyAnnually:
		return amount.Div(decimal.NewFromInt(12))
	default:
		return amount
	}
}

type ClientRepository interface {
	Create(client *Client) (*Client, error)
	GetByID(userID, id string) (*Client, error)
	ListByUser(userID string, activeOnly bool) ([]*Client, error)
	Update(client *Client) (*Client, error)
	Delete(userID, id string) error
}
