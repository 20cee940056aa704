package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/middleware"
	"github.com/tamio/tamio-backend/internal/service"
)

// ExpenseHandler handles expense bucket HTTP requests
type ExpenseHandler struct {
	expenseService *service.ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenseService *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// CreateExpense creates an expense bucket
func (h *ExpenseHandler) CreateExpense(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var bucket domain.ExpenseBucket
	if err := c.Bind(&bucket); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	bucket.ID = ""
	bucket.UserID = userID

	created, err := h.expenseService.Create(c.Request().Context(), &bucket)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetExpenses lists the user's expense buckets
func (h *ExpenseHandler) GetExpenses(c echo.Context) error {
	userID := middleware.GetUserID(c)

	buckets, err := h.expenseService.List(userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, buckets)
}

// GetExpense retrieves a single expense bucket
func (h *ExpenseHandler) GetExpense(c echo.Context) error {
	userID := middleware.GetUserID(c)

	bucket, err := h.expenseService.GetByID(userID, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, bucket)
}

// UpdateExpense updates an expense bucket
func (h *ExpenseHandler) UpdateExpense(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var bucket domain.ExpenseBucket
	if err := c.Bind(&bucket); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	bucket.ID = c.Param("id")
	bucket.UserID = userID

	updated, err := h.expenseService.Update(c.Request().Context(), &bucket)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteExpense removes an expense bucket
func (h *ExpenseHandler) DeleteExpense(c echo.Context) error {
	userID := middleware.GetUserID(c)

	if err := h.expenseService.Delete(userID, c.Param("id")); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
