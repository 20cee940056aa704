package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/middleware"
	"github.com/tamio/tamio-backend/internal/service"
)

// AccountHandler handles cash account HTTP requests
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// AccountRequest represents the create/update account request body
type AccountRequest struct {
	Name     string `json:"name"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	AsOfDate string `json:"asOfDate,omitempty"`
}

func (r *AccountRequest) toDomain(userID, id string) (*domain.CashAccount, error) {
	balance, err := decimal.NewFromString(r.Balance)
	if err != nil {
		return nil, err
	}
	var asOf time.Time
	if r.AsOfDate != "" {
		if asOf, err = time.Parse("2006-01-02", r.AsOfDate); err != nil {
			return nil, err
		}
	}
	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}
	return &domain.CashAccount{
		ID:       id,
		UserID:   userID,
		Name:     r.Name,
		Balance:  balance,
		Currency: currency,
		AsOfDate: asOf,
	}, nil
}

// CreateAccount creates a cash account
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req AccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	account, err := req.toDomain(userID, "")
	if err != nil {
		return NewValidationError(c, "balance must be a decimal number and asOfDate must be YYYY-MM-DD")
	}

	created, err := h.accountService.Create(account)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetAccounts lists the user's cash accounts
func (h *AccountHandler) GetAccounts(c echo.Context) error {
	userID := middleware.GetUserID(c)

	accounts, err := h.accountService.List(userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, accounts)
}

// GetAccount retrieves a single account
func (h *AccountHandler) GetAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)

	account, err := h.accountService.GetByID(userID, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, account)
}

// UpdateAccount updates an account
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req AccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	account, err := req.toDomain(userID, c.Param("id"))
	if err != nil {
		return NewValidationError(c, "balance must be a decimal number and asOfDate must be YYYY-MM-DD")
	}

	updated, err := h.accountService.Update(account)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteAccount removes an account
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)

	if err := h.accountService.Delete(userID, c.Param("id")); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
