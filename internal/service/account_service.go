package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/tamio/tamio-backend/internal/domain"
)

// AccountService handles cash account business logic
type AccountService struct {
	accounts domain.AccountRepository
	now      func() time.Time
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts domain.AccountRepository) *AccountService {
	return &AccountService{accounts: accounts, now: time.Now}
}

// Create validates and persists a cash account.
func (s *AccountService) Create(account *domain.CashAccount) (*domain.CashAccount, error) {
	if err := s.validate(account); err != nil {
		return nil, err
	}
	if account.AsOfDate.IsZero() {
		account.AsOfDate = s.now()
	}
	return s.accounts.Create(account)
}

// GetByID retrieves an account by ID.
func (s *AccountService) GetByID(userID, id string) (*domain.CashAccount, error) {
	return s.accounts.GetByID(userID, id)
}

// List retrieves all accounts for a user.
func (s *AccountService) List(userID string) ([]*domain.CashAccount, error) {
	return s.accounts.ListByUser(userID)
}

// Update validates and persists changes to an existing account. Balance
// updates refresh the as-of date.
func (s *AccountService) Update(account *domain.CashAccount) (*domain.CashAccount, error) {
	if err := s.validate(account); err != nil {
		return nil, err
	}
	if account.AsOfDate.IsZero() {
		account.AsOfDate = s.now()
	}
	return s.accounts.Update(account)
}

// Delete removes an account.
func (s *AccountService) Delete(userID, id string) error {
	return s.accounts.Delete(userID, id)
}

func (s *AccountService) validate(account *domain.CashAccount) error {
	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" {
		return fmt.Errorf("%w: account name is required", domain.ErrInvalidInput)
	}
	if len(account.Name) > domain.MaxNameLength {
		return fmt.Errorf("%w: account name exceeds %d characters", domain.ErrInvalidInput, domain.MaxNameLength)
	}
	return nil
}
