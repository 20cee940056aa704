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

// ObligationHandler handles obligation agreement HTTP requests
type ObligationHandler struct {
	obligationService *service.ObligationService
}

// NewObligationHandler creates a new ObligationHandler
func NewObligationHandler(obligationService *service.ObligationService) *ObligationHandler {
	return &ObligationHandler{obligationService: obligationService}
}

// ObligationRequest represents the create/supersede agreement request body
type ObligationRequest struct {
	Type            string  `json:"type"`
	AmountType      string  `json:"amountType,omitempty"`
	AmountSource    string  `json:"amountSource,omitempty"`
	BaseAmount      string  `json:"baseAmount"`
	Currency        string  `json:"currency,omitempty"`
	Frequency       string  `json:"frequency"`
	StartDate       string  `json:"startDate"`
	EndDate         *string `json:"endDate,omitempty"`
	Category        string  `json:"category,omitempty"`
	ClientID        *string `json:"clientId,omitempty"`
	ExpenseBucketID *string `json:"expenseBucketId,omitempty"`
	Confidence      string  `json:"confidence,omitempty"`
	VendorName      *string `json:"vendorName,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

func (r *ObligationRequest) toDomain(userID string) (*domain.ObligationAgreement, error) {
	amount, err := decimal.NewFromString(r.BaseAmount)
	if err != nil {
		return nil, err
	}
	startDate, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return nil, err
	}
	var endDate *time.Time
	if r.EndDate != nil {
		parsed, err := time.Parse("2006-01-02", *r.EndDate)
		if err != nil {
			return nil, err
		}
		endDate = &parsed
	}

	amountType := domain.AmountType(r.AmountType)
	if amountType == "" {
		amountType = domain.AmountFixed
	}
	amountSource := domain.AmountSource(r.AmountSource)
	if amountSource == "" {
		amountSource = domain.SourceManualEntry
	}
	category := domain.ExpenseCategory(r.Category)
	if category == "" {
		category = domain.CategoryOther
	}

	return &domain.ObligationAgreement{
		UserID:          userID,
		Type:            domain.ObligationType(r.Type),
		AmountType:      amountType,
		AmountSource:    amountSource,
		BaseAmount:      amount,
		Currency:        r.Currency,
		Frequency:       domain.Frequency(r.Frequency),
		StartDate:       startDate,
		EndDate:         endDate,
		Category:        category,
		ClientID:        r.ClientID,
		ExpenseBucketID: r.ExpenseBucketID,
		Confidence:      domain.Confidence(r.Confidence),
		VendorName:      r.VendorName,
		Notes:           r.Notes,
	}, nil
}

// CreateObligation creates an agreement and materializes its schedules
func (h *ObligationHandler) CreateObligation(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req ObligationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	agreement, err := req.toDomain(userID)
	if err != nil {
		return NewValidationError(c, "invalid amount or date format")
	}

	created, err := h.obligationService.Create(c.Request().Context(), agreement)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetObligations lists the user's current agreements
func (h *ObligationHandler) GetObligations(c echo.Context) error {
	userID := middleware.GetUserID(c)
	includeSuperseded := c.QueryParam("includeSuperseded") == "true"

	agreements, err := h.obligationService.ListByUser(c.Request().Context(), userID, includeSuperseded)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, agreements)
}

// GetObligation returns one agreement
func (h *ObligationHandler) GetObligation(c echo.Context) error {
	userID := middleware.GetUserID(c)

	agreement, err := h.obligationService.GetByID(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, agreement)
}

// SupersedeObligation replaces an agreement's terms with a successor
func (h *ObligationHandler) SupersedeObligation(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req ObligationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	updated, err := req.toDomain(userID)
	if err != nil {
		return NewValidationError(c, "invalid amount or date format")
	}

	successor, err := h.obligationService.Supersede(c.Request().Context(), userID, c.Param("id"), updated)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, successor)
}

// PaymentRequest represents the record payment request body
type PaymentRequest struct {
	ObligationID *string `json:"obligationId,omitempty"`
	ScheduleID   *string `json:"scheduleId,omitempty"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency,omitempty"`
	PaymentDate  string  `json:"paymentDate"`
	VendorName   *string `json:"vendorName,omitempty"`
	Source       string  `json:"source,omitempty"`
}

// RecordPayment records a realized payment
func (h *ObligationHandler) RecordPayment(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "amount must be a decimal number")
	}
	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		return NewValidationError(c, "paymentDate must be YYYY-MM-DD")
	}
	source := req.Source
	if source == "" {
		source = "manual_entry"
	}

	payment, err := h.obligationService.RecordPayment(c.Request().Context(), &domain.PaymentEvent{
		UserID:       userID,
		ObligationID: req.ObligationID,
		ScheduleID:   req.ScheduleID,
		Amount:       amount,
		Currency:     req.Currency,
		PaymentDate:  paymentDate,
		Source:       source,
		VendorName:   req.VendorName,
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, payment)
}
