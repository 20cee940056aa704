package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashAccount holds a current cash position. Starting cash for a forecast is
// the sum of all account balances for the user.
type CashAccount struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	AsOfDate  time.Time       `json:"asOfDate"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type AccountRepository interface {
	Create(account *CashAccount) (*CashAccount, error)
	GetByID(userID, id string) (*CashAccount, error)
	ListByUser(userID string) ([]*CashAccount, error)
	Update(account *CashAccount) (*CashAccount, error)
	Delete(userID, id string) error
	SumBalances(userID string) (decimal.Decimal, error)
}
