package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseCategory string

const (
	CategoryPayroll     ExpenseCategory = "payroll"
	CategoryRent        ExpenseCategory = "rent"
	CategoryContractors ExpenseCategory = "contractors"
	CategorySoftware    ExpenseCategory = "software"
	CategoryMarketing   ExpenseCategory = "marketing"
	CategoryUtilities   ExpenseCategory = "utilities"
	CategoryInsurance   ExpenseCategory = "insurance"
	CategoryTaxes       ExpenseCategory = "taxes"
	CategoryOther       ExpenseCategory = "other"
)

// IsNonDiscretionary reports whether spend in this category is committed and
// cannot realistically be delayed.
func (c ExpenseCategory) IsNonDiscretionary() bool {
	switch c {
	case CategoryPayroll, CategoryRent, CategoryUtilities, CategoryInsurance, CategoryTaxes:
		return true
	}
	return false
}

type BucketType string

const (
	BucketTypeFixed    BucketType = "fixed"
	BucketTypeVariable BucketType = "variable"
)

// ExpenseBucket is a committed outflow group in the legacy data path.
type ExpenseBucket struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Name          string          `json:"name"`
	Category      ExpenseCategory `json:"category"`
	Type          BucketType      `json:"type"`
	MonthlyAmount decimal.Decimal `json:"monthlyAmount"`
	Currency      string          `json:"currency"`
	Priority      string          `json:"priority"` // essential | important | discretionary
	IsStable      bool            `json:"isStable"`
	DueDay        int             `json:"dueDay"` // day of month, clamped to short months
	Frequency     Frequency       `json:"frequency"`
	EmployeeCount *int            `json:"employeeCount,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type ExpenseRepository interface {
	Create(bucket *ExpenseBucket) (*ExpenseBucket, error)
	GetByID(userID, id string) (*ExpenseBucket, error)
	ListByUser(userID string) ([]*ExpenseBucket, error)
	Update(bucket *ExpenseBucket) (*ExpenseBucket, error)
	Delete(userID, id string) error
}
