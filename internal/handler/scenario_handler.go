package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/middleware"
	"github.com/tamio/tamio-backend/internal/service"
)

// ScenarioHandler handles scenario HTTP requests
type ScenarioHandler struct {
	scenarioService *service.ScenarioService
}

// NewScenarioHandler creates a new ScenarioHandler
func NewScenarioHandler(scenarioService *service.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{scenarioService: scenarioService}
}

// CreateScenarioRequest represents the create scenario request body
type CreateScenarioRequest struct {
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	ClientID         *string `json:"clientId,omitempty"`
	ExpenseBucketID  *string `json:"expenseBucketId,omitempty"`
	EffectiveDate    string  `json:"effectiveDate"`
	Amount           string  `json:"amount,omitempty"`
	Frequency        string  `json:"frequency,omitempty"`
	DeltaPercent     string  `json:"deltaPercent,omitempty"`
	DelayDays        int     `json:"delayDays,omitempty"`
	ParentScenarioID *string `json:"parentScenarioId,omitempty"`
}

// CreateScenario creates a draft scenario
func (h *ScenarioHandler) CreateScenario(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req CreateScenarioRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body")
	}

	effectiveDate, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		return NewValidationError(c, "effectiveDate must be YYYY-MM-DD")
	}

	amount := decimal.Zero
	if req.Amount != "" {
		if amount, err = decimal.NewFromString(req.Amount); err != nil {
			return NewValidationError(c, "amount must be a decimal number")
		}
	}
	deltaPercent := decimal.Zero
	if req.DeltaPercent != "" {
		if deltaPercent, err = decimal.NewFromString(req.DeltaPercent); err != nil {
			return NewValidationError(c, "deltaPercent must be a decimal number")
		}
	}

	scenario := &domain.Scenario{
		UserID: userID,
		Name:   req.Name,
		Type:   domain.ScenarioType(req.Type),
		Scope: domain.ScenarioScope{
			ClientID:        req.ClientID,
			ExpenseBucketID: req.ExpenseBucketID,
		},
		Params: domain.ScenarioParams{
			EffectiveDate: effectiveDate,
			Amount:        amount,
			Frequency:     domain.Frequency(req.Frequency),
			DeltaPercent:  deltaPercent,
			DelayDays:     req.DelayDays,
		},
		ParentScenarioID: req.ParentScenarioID,
	}

	created, err := h.scenarioService.Create(c.Request().Context(), scenario)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetScenarios lists the user's scenarios, optionally filtered by status
func (h *ScenarioHandler) GetScenarios(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var statuses []domain.ScenarioStatus
	if s := c.QueryParam("status"); s != "" {
		statuses = append(statuses, domain.ScenarioStatus(s))
	}

	scenarios, err := h.scenarioService.ListByUser(c.Request().Context(), userID, statuses)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, scenarios)
}

// GetScenario returns one scenario
func (h *ScenarioHandler) GetScenario(c echo.Context) error {
	userID := middleware.GetUserID(c)

	scenario, err := h.scenarioService.GetByID(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, scenario)
}

// BuildScenario computes the scenario comparison against the base forecast
func (h *ScenarioHandler) BuildScenario(c echo.Context) error {
	userID := middleware.GetUserID(c)
	scenarioID := c.Param("id")

	comparison, err := h.scenarioService.Build(c.Request().Context(), userID, scenarioID)
	if err != nil {
		log.Error().Err(err).Str("scenario_id", scenarioID).Msg("scenario build failed")
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, comparison)
}

// UpdateScenarioStatusRequest represents the status update request body
type UpdateScenarioStatusRequest struct {
	Status string `json:"status"`
}

// UpdateScenarioStatus moves a scenario through its lifecycle
func (h *ScenarioHandler) UpdateScenarioStatus(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req UpdateScenarioStatusRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body")
	}

	switch domain.ScenarioStatus(req.Status) {
	case domain.ScenarioDraft, domain.ScenarioActive, domain.ScenarioSaved,
		domain.ScenarioDiscardedStatus, domain.ScenarioConfirmed:
	default:
		return NewValidationError(c, "unknown scenario status")
	}

	if err := h.scenarioService.UpdateStatus(c.Request().Context(), userID, c.Param("id"), domain.ScenarioStatus(req.Status)); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
