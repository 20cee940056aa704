package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/util"
)

// ObligationService owns the write path for obligation agreements: creation,
// supersession on edit, and the dual-write that mirrors legacy client and
// expense records into equivalent agreements during migration.
type ObligationService struct {
	obligations     domain.ObligationRepository
	schedules       *ScheduleService
	converter       CurrencyConverter
	baseCurrency    string
	upstreamTimeout time.Duration
	logger          zerolog.Logger
	now             func() time.Time
}

// NewObligationService creates an ObligationService.
func NewObligationService(
	obligations domain.ObligationRepository,
	schedules *ScheduleService,
	converter CurrencyConverter,
	baseCurrency string,
	upstreamTimeout time.Duration,
	logger zerolog.Logger,
) *ObligationService {
	if upstreamTimeout <= 0 {
		upstreamTimeout = 5 * time.Second
	}
	return &ObligationService{
		obligations:     obligations,
		schedules:       schedules,
		converter:       converter,
		baseCurrency:    baseCurrency,
		upstreamTimeout: upstreamTimeout,
		logger:          logger,
		now:             time.Now,
	}
}

// Create validates the agreement, converts its amount to the base currency,
// persists it, and materializes its schedules.
func (s *ObligationService) Create(ctx context.Context, agreement *domain.ObligationAgreement) (*domain.ObligationAgreement, error) {
	if err := s.validate(agreement); err != nil {
		return nil, err
	}
	if agreement.ID == "" {
		agreement.ID = domain.NewID("obl")
	}
	if agreement.Confidence == "" {
		agreement.Confidence = domain.ConfidenceMedium
	}

	if err := s.toBaseCurrency(ctx, agreement); err != nil {
		return nil, err
	}

	created, err := s.obligations.Create(agreement)
	if err != nil {
		return nil, fmt.Errorf("create agreement: %w", err)
	}

	if err := s.schedules.Regenerate(ctx, created); err != nil {
		return nil, fmt.Errorf("materialize schedules: %w", err)
	}
	return created, nil
}

func (s *ObligationService) GetByID(ctx context.Context, userID, id string) (*domain.ObligationAgreement, error) {
	return s.obligations.GetByID(userID, id)
}

func (s *ObligationService) ListByUser(ctx context.Context, userID string, includeSuperseded bool) ([]*domain.ObligationAgreement, error) {
	return s.obligations.ListByUser(userID, includeSuperseded)
}

// Supersede replaces an agreement's terms by creating a successor and
// marking the original superseded. The original and its past schedules are
// kept so the lineage stays reconstructable; its future schedules are
// removed in favor of the successor's.
func (s *ObligationService) Supersede(ctx context.Context, userID, id string, updated *domain.ObligationAgreement) (*domain.ObligationAgreement, error) {
	existing, err := s.obligations.GetByID(userID, id)
	if err != nil {
		return nil, err
	}
	if existing.SupersededBy != nil {
		return nil, fmt.Errorf("%w: agreement %s is already superseded", domain.ErrInvalidInput, id)
	}

	updated.UserID = userID
	updated.ID = domain.NewID("obl")
	if updated.Confidence == "" {
		updated.Confidence = existing.Confidence
	}
	if err := s.validate(updated); err != nil {
		return nil, err
	}
	if err := s.toBaseCurrency(ctx, updated); err != nil {
		return nil, err
	}

	successor, err := s.obligations.Create(updated)
	if err != nil {
		return nil, fmt.Errorf("create successor: %w", err)
	}
	if err := s.obligations.MarkSuperseded(userID, id, successor.ID); err != nil {
		return nil, fmt.Errorf("mark superseded: %w", err)
	}

	if _, err := s.obligations.DeleteFutureSchedules(id, util.Day(s.now())); err != nil {
		return nil, fmt.Errorf("drop superseded schedules: %w", err)
	}
	if err := s.schedules.Regenerate(ctx, successor); err != nil {
		return nil, fmt.Errorf("materialize successor schedules: %w", err)
	}
	return successor, nil
}

// RecordPayment persists a realized payment and, when it reconciles a
// schedule, marks that schedule paid.
func (s *ObligationService) RecordPayment(ctx context.Context, payment *domain.PaymentEvent) (*domain.PaymentEvent, error) {
	if !payment.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", domain.ErrInvalidInput)
	}
	if payment.ID == "" {
		payment.ID = domain.NewID("pay")
	}
	if payment.Status == "" {
		payment.Status = domain.PaymentCompleted
	}

	created, err := s.obligations.CreatePayment(payment)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if created.ScheduleID != nil && created.Status == domain.PaymentCompleted {
		if err := s.obligations.UpdateScheduleStatus(*created.ScheduleID, domain.SchedulePaid); err != nil {
			s.logger.Warn().Err(err).Str("schedule_id", *created.ScheduleID).Msg("failed to mark schedule paid")
		}
	}
	return created, nil
}

// SyncFromClient mirrors a legacy client's billing configuration into an
// equivalent inflow agreement. Used by the dual-write migration path.
func (s *ObligationService) SyncFromClient(ctx context.Context, client *domain.Client) (*domain.ObligationAgreement, error) {
	amount := client.MonthlyRevenue()
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: client %s has no revenue to mirror", domain.ErrInsufficientData, client.ID)
	}

	clientID := client.ID
	agreement := &domain.ObligationAgreement{
		UserID:       client.UserID,
		Type:         domain.ObligationOther,
		AmountType:   domain.AmountFixed,
		AmountSource: domain.SourceManualEntry,
		BaseAmount:   amount,
		Currency:     client.Currency,
		Frequency:    domain.FrequencyMonthly,
		StartDate:    util.Day(s.now()),
		Category:     domain.CategoryOther,
		ClientID:     &clientID,
		Confidence:   clientSyncConfidence(client),
		VendorName:   &client.Name,
	}
	if client.Billing.Source == "ledger_sync" {
		agreement.AmountSource = domain.SourceLedgerSync
	}
	return s.Create(ctx, agreement)
}

// SyncFromExpense mirrors a legacy expense bucket into an equivalent outflow
// agreement.
func (s *ObligationService) SyncFromExpense(ctx context.Context, bucket *domain.ExpenseBucket) (*domain.ObligationAgreement, error) {
	if !bucket.MonthlyAmount.IsPositive() {
		return nil, fmt.Errorf("%w: bucket %s has no amount to mirror", domain.ErrInsufficientData, bucket.ID)
	}

	amountType := domain.AmountFixed
	confidence := domain.ConfidenceHigh
	if bucket.Type == domain.BucketTypeVariable || !bucket.IsStable {
		amountType = domain.AmountVariable
		confidence = domain.ConfidenceMedium
	}
	freq := bucket.Frequency
	if freq == "" {
		freq = domain.FrequencyMonthly
	}

	bucketID := bucket.ID
	agreement := &domain.ObligationAgreement{
		UserID:          bucket.UserID,
		Type:            obligationTypeForCategory(bucket.Category),
		AmountType:      amountType,
		AmountSource:    domain.SourceManualEntry,
		BaseAmount:      bucket.MonthlyAmount,
		Currency:        bucket.Currency,
		Frequency:       freq,
		StartDate:       util.Day(s.now()),
		Category:        bucket.Category,
		ExpenseBucketID: &bucketID,
		Confidence:      confidence,
		VendorName:      &bucket.Name,
	}
	return s.Create(ctx, agreement)
}

func (s *ObligationService) validate(a *domain.ObligationAgreement) error {
	if a.UserID == "" {
		return fmt.Errorf("%w: agreement user is required", domain.ErrInvalidInput)
	}
	if !a.BaseAmount.IsPositive() {
		return fmt.Errorf("%w: base amount must be positive", domain.ErrInvalidInput)
	}
	if a.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", domain.ErrInvalidInput)
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		return fmt.Errorf("%w: end date precedes start date", domain.ErrInvalidInput)
	}
	if a.ClientID != nil && a.ExpenseBucketID != nil {
		return fmt.Errorf("%w: agreement cannot be both inflow and outflow", domain.ErrInvalidInput)
	}
	return nil
}

// toBaseCurrency converts the agreement amount at write time. Forecast math
// downstream never converts.
func (s *ObligationService) toBaseCurrency(ctx context.Context, a *domain.ObligationAgreement) error {
	if a.Currency == "" {
		a.Currency = s.baseCurrency
	}
	if a.Currency == s.baseCurrency {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()

	conv, err := s.converter.Convert(ctx, a.BaseAmount, a.Currency, s.baseCurrency, s.now())
	if err != nil {
		return fmt.Errorf("convert %s to %s: %w", a.Currency, s.baseCurrency, err)
	}
	a.BaseAmount = conv.Amount
	a.Currency = s.baseCurrency
	return nil
}

func clientSyncConfidence(client *domain.Client) domain.Confidence {
	if client.LedgerContactID != nil {
		return domain.ConfidenceHigh
	}
	return domain.ConfidenceMedium
}

func obligationTypeForCategory(category domain.ExpenseCategory) domain.ObligationType {
	switch category {
	case domain.CategoryPayroll:
		return domain.ObligationPayroll
	case domain.CategoryRent:
		return domain.ObligationLease
	case domain.CategoryContractors:
		return domain.ObligationContractor
	case domain.CategorySoftware:
		return domain.ObligationSubscription
	case domain.CategoryTaxes:
		return domain.ObligationTax
	default:
		return domain.ObligationVendorBill
	}
}
