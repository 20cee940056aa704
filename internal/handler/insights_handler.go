package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/middleware"
	"github.com/tamio/tamio-backend/internal/service"
)

// InsightsHandler serves behavior analytics and trigger suggestions
type InsightsHandler struct {
	analyticsService *service.AnalyticsService
	triggerService   *service.TriggerService
}

// NewInsightsHandler creates a new InsightsHandler
func NewInsightsHandler(analyticsService *service.AnalyticsService, triggerService *service.TriggerService) *InsightsHandler {
	return &InsightsHandler{analyticsService: analyticsService, triggerService: triggerService}
}

// GetInsights computes and returns all behavior metrics
func (h *InsightsHandler) GetInsights(c echo.Context) error {
	userID := middleware.GetUserID(c)

	results, err := h.analyticsService.ComputeAll(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to compute insights")
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, results)
}

// GetInsight computes a single metric by kind
func (h *InsightsHandler) GetInsight(c echo.Context) error {
	userID := middleware.GetUserID(c)
	kind := domain.MetricKind(c.Param("metric"))

	result, err := h.analyticsService.ComputeOne(c.Request().Context(), userID, kind)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetSuggestions evaluates triggers and returns open suggestions
func (h *InsightsHandler) GetSuggestions(c echo.Context) error {
	userID := middleware.GetUserID(c)
	ctx := c.Request().Context()

	// Evaluate on demand so a user opening the app sees fresh suggestions;
	// cooldowns keep this idempotent between sweeps.
	if _, err := h.triggerService.EvaluateTriggers(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("trigger evaluation failed, serving stored suggestions")
	}

	suggestions, err := h.triggerService.GetSuggestions(ctx, userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, suggestions)
}

// AcceptSuggestion turns a suggestion into a draft scenario
func (h *InsightsHandler) AcceptSuggestion(c echo.Context) error {
	userID := middleware.GetUserID(c)

	scenario, err := h.triggerService.Accept(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, scenario)
}

// DismissSuggestion suppresses a suggestion until its cooldown elapses
func (h *InsightsHandler) DismissSuggestion(c echo.Context) error {
	userID := middleware.GetUserID(c)

	if err := h.triggerService.Dismiss(c.Request().Context(), userID, c.Param("id")); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeferSuggestion extends a suggestion's cooldown window
func (h *InsightsHandler) DeferSuggestion(c echo.Context) error {
	userID := middleware.GetUserID(c)

	if err := h.triggerService.Defer(c.Request().Context(), userID, c.Param("id")); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
