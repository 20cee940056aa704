package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/tamio/tamio-backend/internal/middleware"
	"github.com/tamio/tamio-backend/internal/service"
)

// ForecastHandler handles forecast HTTP requests
type ForecastHandler struct {
	forecastService *service.ForecastService
}

// NewForecastHandler creates a new ForecastHandler
func NewForecastHandler(forecastService *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService}
}

// GetForecast returns the 13-week cash projection for the calling user
func (h *ForecastHandler) GetForecast(c echo.Context) error {
	userID := middleware.GetUserID(c)

	forecast, err := h.forecastService.GetForecast(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to compute forecast")
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, forecast)
}
