package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/middleware"
	"github.com/tamio/tamio-backend/internal/service"
)

// RuleHandler handles financial rule HTTP requests
type RuleHandler struct {
	ruleService     *service.RuleService
	forecastService *service.ForecastService
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(ruleService *service.RuleService, forecastService *service.ForecastService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService, forecastService: forecastService}
}

// RuleRequest represents the create/update rule request body
type RuleRequest struct {
	Type         string `json:"type"`
	BufferMonths int    `json:"bufferMonths"`
	FixedTarget  string `json:"fixedTarget,omitempty"`
	IsActive     *bool  `json:"isActive,omitempty"`
}

func (r *RuleRequest) toDomain(userID, id string) (*domain.FinancialRule, error) {
	fixedTarget := decimal.Zero
	if r.FixedTarget != "" {
		var err error
		if fixedTarget, err = decimal.NewFromString(r.FixedTarget); err != nil {
			return nil, err
		}
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &domain.FinancialRule{
		ID:           id,
		UserID:       userID,
		Type:         domain.RuleType(r.Type),
		BufferMonths: r.BufferMonths,
		FixedTarget:  fixedTarget,
		IsActive:     active,
	}, nil
}

// CreateRule creates a financial rule
func (h *RuleHandler) CreateRule(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req RuleRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	rule, err := req.toDomain(userID, "")
	if err != nil {
		return NewValidationError(c, "fixedTarget must be a decimal number")
	}

	created, err := h.ruleService.Create(c.Request().Context(), rule)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetRules lists the user's rules
func (h *RuleHandler) GetRules(c echo.Context) error {
	userID := middleware.GetUserID(c)

	rules, err := h.ruleService.ListByUser(c.Request().Context(), userID, false)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, rules)
}

// UpdateRule updates a rule
func (h *RuleHandler) UpdateRule(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req RuleRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	rule, err := req.toDomain(userID, c.Param("id"))
	if err != nil {
		return NewValidationError(c, "fixedTarget must be a decimal number")
	}

	updated, err := h.ruleService.Update(c.Request().Context(), rule)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteRule removes a rule
func (h *RuleHandler) DeleteRule(c echo.Context) error {
	userID := middleware.GetUserID(c)

	if err := h.ruleService.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// EvaluateRules runs every active rule against the current forecast
func (h *RuleHandler) EvaluateRules(c echo.Context) error {
	userID := middleware.GetUserID(c)
	ctx := c.Request().Context()

	forecast, err := h.forecastService.GetForecast(ctx, userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	evaluations, err := h.ruleService.EvaluateAll(ctx, userID, forecast)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, evaluations)
}
