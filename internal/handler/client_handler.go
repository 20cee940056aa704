package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/middleware"
	"github.com/tamio/tamio-backend/internal/service"
)

// ClientHandler handles client HTTP requests
type ClientHandler struct {
	clientService *service.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService *service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// CreateClient creates a client
func (h *ClientHandler) CreateClient(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var client domain.Client
	if err := c.Bind(&client); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	client.ID = ""
	client.UserID = userID

	created, err := h.clientService.Create(c.Request().Context(), &client)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetClients lists the user's clients. Pass ?active=true to exclude paused
// and deleted clients.
func (h *ClientHandler) GetClients(c echo.Context) error {
	userID := middleware.GetUserID(c)
	activeOnly := c.QueryParam("active") == "true"

	clients, err := h.clientService.List(userID, activeOnly)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, clients)
}

// GetClient retrieves a single client
func (h *ClientHandler) GetClient(c echo.Context) error {
	userID := middleware.GetUserID(c)

	client, err := h.clientService.GetByID(userID, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, client)
}

// UpdateClient updates a client
func (h *ClientHandler) UpdateClient(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var client domain.Client
	if err := c.Bind(&client); err != nil {
		return NewValidationError(c, "invalid request body")
	}
	client.ID = c.Param("id")
	client.UserID = userID

	updated, err := h.clientService.Update(c.Request().Context(), &client)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteClient removes a client
func (h *ClientHandler) DeleteClient(c echo.Context) error {
	userID := middleware.GetUserID(c)

	if err := h.clientService.Delete(userID, c.Param("id")); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
