package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tamio/tamio-backend/internal/domain"
)

// ClientService handles client-related business logic
type ClientService struct {
	clients     domain.ClientRepository
	obligations *ObligationService
	dualWrite   bool
	logger      zerolog.Logger
}

// NewClientService creates a new ClientService. When dualWrite is enabled,
// client writes are mirrored into obligation agreements so both event
// sources stay consistent during migration.
func NewClientService(clients domain.ClientRepository, obligations *ObligationService, dualWrite bool, logger zerolog.Logger) *ClientService {
	return &ClientService{
		clients:     clients,
		obligations: obligations,
		dualWrite:   dualWrite,
		logger:      logger,
	}
}

// Create validates and persists a client.
func (s *ClientService) Create(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if err := s.validate(client); err != nil {
		return nil, err
	}
	if client.Status == "" {
		client.Status = domain.ClientStatusActive
	}
	if client.PaymentBehavior == "" {
		client.PaymentBehavior = domain.PaymentBehaviorUnknown
	}

	created, err := s.clients.Create(client)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, created)
	return created, nil
}

// GetByID retrieves a client by ID.
func (s *ClientService) GetByID(userID, id string) (*domain.Client, error) {
	return s.clients.GetByID(userID, id)
}

// List retrieves all clients for a user.
func (s *ClientService) List(userID string, activeOnly bool) ([]*domain.Client, error) {
	return s.clients.ListByUser(userID, activeOnly)
}

// Update validates and persists changes to an existing client.
func (s *ClientService) Update(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if err := s.validate(client); err != nil {
		return nil, err
	}
	updated, err := s.clients.Update(client)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, updated)
	return updated, nil
}

// Delete removes a client.
func (s *ClientService) Delete(userID, id string) error {
	return s.clients.Delete(userID, id)
}

func (s *ClientService) validate(client *domain.Client) error {
	client.Name = strings.TrimSpace(client.Name)
	if client.Name == "" {
		return fmt.Errorf("%w: client name is required", domain.ErrInvalidInput)
	}
	if len(client.Name) > domain.MaxNameLength {
		return fmt.Errorf("%w: client name exceeds %d characters", domain.ErrInvalidInput, domain.MaxNameLength)
	}
	switch client.Type {
	case domain.ClientTypeRetainer, domain.ClientTypeProject, domain.ClientTypeUsage, domain.ClientTypeMixed:
	default:
		return fmt.Errorf("%w: unknown client type %q", domain.ErrInvalidInput, client.Type)
	}
	return nil
}

// mirror best-effort dual-writes the client into an obligation agreement.
// Mirror failures are logged, never surfaced to the caller.
func (s *ClientService) mirror(ctx context.Context, client *domain.Client) {
	if !s.dualWrite || client.Status != domain.ClientStatusActive {
		return
	}
	if _, err := s.obligations.SyncFromClient(ctx, client); err != nil {
		s.logger.Warn().Err(err).Str("clientId", client.ID).Msg("client dual-write failed")
	}
}
