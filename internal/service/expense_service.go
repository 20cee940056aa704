package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tamio/tamio-backend/internal/domain"
)

// ExpenseService handles expense-bucket business logic
type ExpenseService struct {
	expenses    domain.ExpenseRepository
	obligations *ObligationService
	dualWrite   bool
	logger      zerolog.Logger
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(expenses domain.ExpenseRepository, obligations *ObligationService, dualWrite bool, logger zerolog.Logger) *ExpenseService {
	return &ExpenseService{
		expenses:    expenses,
		obligations: obligations,
		dualWrite:   dualWrite,
		logger:      logger,
	}
}

// Create validates and persists an expense bucket. When the category is
// missing it is inferred from the bucket name.
func (s *ExpenseService) Create(ctx context.Context, bucket *domain.ExpenseBucket) (*domain.ExpenseBucket, error) {
	if err := s.validate(bucket); err != nil {
		return nil, err
	}
	if bucket.Category == "" {
		bucket.Category = CategorizeExpense(bucket.Name)
	}
	if bucket.Frequency == "" {
		bucket.Frequency = domain.FrequencyMonthly
	}

	created, err := s.expenses.Create(bucket)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, created)
	return created, nil
}

// GetByID retrieves an expense bucket by ID.
func (s *ExpenseService) GetByID(userID, id string) (*domain.ExpenseBucket, error) {
	return s.expenses.GetByID(userID, id)
}

// List retrieves all expense buckets for a user.
func (s *ExpenseService) List(userID string) ([]*domain.ExpenseBucket, error) {
	return s.expenses.ListByUser(userID)
}

// Update validates and persists changes to an existing bucket.
func (s *ExpenseService) Update(ctx context.Context, bucket *domain.ExpenseBucket) (*domain.ExpenseBucket, error) {
	if err := s.validate(bucket); err != nil {
		return nil, err
	}
	updated, err := s.expenses.Update(bucket)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, updated)
	return updated, nil
}

// Delete removes an expense bucket.
func (s *ExpenseService) Delete(userID, id string) error {
	return s.expenses.Delete(userID, id)
}

func (s *ExpenseService) validate(bucket *domain.ExpenseBucket) error {
	bucket.Name = strings.TrimSpace(bucket.Name)
	if bucket.Name == "" {
		return fmt.Errorf("%w: bucket name is required", domain.ErrInvalidInput)
	}
	if len(bucket.Name) > domain.MaxNameLength {
		return fmt.Errorf("%w: bucket name exceeds %d characters", domain.ErrInvalidInput, domain.MaxNameLength)
	}
	if bucket.MonthlyAmount.IsNegative() {
		return fmt.Errorf("%w: monthly amount cannot be negative", domain.ErrInvalidInput)
	}
	return nil
}

func (s *ExpenseService) mirror(ctx context.Context, bucket *domain.ExpenseBucket) {
	if !s.dualWrite {
		return
	}
	if _, err := s.obligations.SyncFromExpense(ctx, bucket); err != nil {
		s.logger.Warn().Err(err).Str("bucketId", bucket.ID).Msg("expense dual-write failed")
	}
}
