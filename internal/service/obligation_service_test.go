package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/testutil"
)

func setupObligationService(t *testing.T) (*ObligationService, *testutil.MockObligationRepository) {
	t.Helper()

	repo := testutil.NewMockObligationRepository()
	schedules := NewScheduleService(repo, zerolog.Nop())
	schedules.now = func() time.Time { return testStart }

	svc := NewObligationService(repo, schedules, NewStaticCurrencyConverter(), "USD", 5*time.Second, zerolog.Nop())
	svc.now = func() time.Time { return testStart }
	return svc, repo
}

func TestObligationCreate_MaterializesSchedules(t *testing.T) {
	svc, repo := setupObligationService(t)

	created, err := svc.Create(context.Background(), &domain.ObligationAgreement{
		UserID:     "user_1",
		Type:       domain.ObligationSubscription,
		AmountType: domain.AmountFixed,
		BaseAmount: decimal.NewFromInt(300),
		Currency:   "USD",
		Frequency:  domain.FrequencyMonthly,
		StartDate:  testStart,
		Category:   domain.CategorySoftware,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	schedules, err := repo.ListSchedules(created.ID)
	require.NoError(t, err)
	require.NotEmpty(t, schedules)
	assert.Equal(t, testStart, schedules[0].DueDate)
}

func TestObligationCreate_Validation(t *testing.T) {
	svc, _ := setupObligationService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &domain.ObligationAgreement{
		UserID: "user_1", BaseAmount: decimal.Zero, StartDate: testStart,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	clientID := "clt_1"
	bucketID := "exp_1"
	_, err = svc.Create(ctx, &domain.ObligationAgreement{
		UserID: "user_1", BaseAmount: decimal.NewFromInt(100), StartDate: testStart,
		ClientID: &clientID, ExpenseBucketID: &bucketID,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestObligationCreate_ConvertsToBaseCurrency(t *testing.T) {
	svc, _ := setupObligationService(t)

	created, err := svc.Create(context.Background(), &domain.ObligationAgreement{
		UserID:     "user_1",
		BaseAmount: decimal.NewFromInt(920),
		Currency:   "EUR",
		Frequency:  domain.FrequencyMonthly,
		StartDate:  testStart,
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", created.Currency)
	// 920 EUR at 0.92 EUR per USD is 1000 USD.
	assert.True(t, created.BaseAmount.Sub(decimal.NewFromInt(1000)).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"got %s", created.BaseAmount)
}

func TestObligationCreate_UnknownCurrencyFails(t *testing.T) {
	svc, _ := setupObligationService(t)

	_, err := svc.Create(context.Background(), &domain.ObligationAgreement{
		UserID:     "user_1",
		BaseAmount: decimal.NewFromInt(100),
		Currency:   "JPY",
		StartDate:  testStart,
	})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestSupersede_PreservesLineage(t *testing.T) {
	svc, repo := setupObligationService(t)
	ctx := context.Background()

	original, err := svc.Create(ctx, &domain.ObligationAgreement{
		UserID: "user_1", BaseAmount: decimal.NewFromInt(500),
		Frequency: domain.FrequencyMonthly, StartDate: testStart,
	})
	require.NoError(t, err)

	successor, err := svc.Supersede(ctx, "user_1", original.ID, &domain.ObligationAgreement{
		BaseAmount: decimal.NewFromInt(650),
		Frequency:  domain.FrequencyMonthly, StartDate: testStart,
	})
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, successor.ID)

	// The original survives, marked superseded with a pointer to its successor.
	kept := repo.Agreements[original.ID]
	require.NotNil(t, kept.SupersededBy)
	assert.Equal(t, successor.ID, *kept.SupersededBy)

	// Future schedules belong to the successor only.
	oldSchedules, err := repo.ListSchedules(original.ID)
	require.NoError(t, err)
	assert.Empty(t, oldSchedules)
	newSchedules, err := repo.ListSchedules(successor.ID)
	require.NoError(t, err)
	require.NotEmpty(t, newSchedules)
	assert.True(t, newSchedules[0].EstimatedAmount.Equal(decimal.NewFromInt(650)))

	// Listing without superseded hides the original.
	current, err := svc.ListByUser(ctx, "user_1", false)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, successor.ID, current[0].ID)

	// Superseding twice is rejected.
	_, err = svc.Supersede(ctx, "user_1", original.ID, &domain.ObligationAgreement{
		BaseAmount: decimal.NewFromInt(700), StartDate: testStart,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordPayment_ReconcilesSchedule(t *testing.T) {
	svc, repo := setupObligationService(t)
	ctx := context.Background()

	agreement, err := svc.Create(ctx, &domain.ObligationAgreement{
		UserID: "user_1", BaseAmount: decimal.NewFromInt(500),
		Frequency: domain.FrequencyMonthly, StartDate: testStart,
	})
	require.NoError(t, err)

	schedules, err := repo.ListSchedules(agreement.ID)
	require.NoError(t, err)
	require.NotEmpty(t, schedules)
	scheduleID := schedules[0].ID

	_, err = svc.RecordPayment(ctx, &domain.PaymentEvent{
		UserID:       "user_1",
		ObligationID: &agreement.ID,
		ScheduleID:   &scheduleID,
		Amount:       decimal.NewFromInt(500),
		PaymentDate:  testStart,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SchedulePaid, repo.Schedules[scheduleID].Status)
}

func TestSyncFromExpense_MapsBucketToAgreement(t *testing.T) {
	svc, repo := setupObligationService(t)

	agreement, err := svc.SyncFromExpense(context.Background(), &domain.ExpenseBucket{
		ID: "exp_payroll", UserID: "user_1", Name: "Payroll",
		Category: domain.CategoryPayroll, Type: domain.BucketTypeFixed,
		MonthlyAmount: decimal.NewFromInt(8000), IsStable: true, Currency: "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ObligationPayroll, agreement.Type)
	assert.Equal(t, domain.AmountFixed, agreement.AmountType)
	assert.Equal(t, domain.ConfidenceHigh, agreement.Confidence)
	require.NotNil(t, agreement.ExpenseBucketID)
	assert.Equal(t, "exp_payroll", *agreement.ExpenseBucketID)
	require.NotNil(t, agreement.VendorName)
	assert.Equal(t, "Payroll", *agreement.VendorName)

	schedules, err := repo.ListSchedules(agreement.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, schedules)
}

func TestSyncFromClient_LedgerContactGetsHighConfidence(t *testing.T) {
	svc, _ := setupObligationService(t)
	ledgerID := "xero_123"

	agreement, err := svc.SyncFromClient(context.Background(), &domain.Client{
		ID: "clt_acme", UserID: "user_1", Name: "Acme", Type: domain.ClientTypeRetainer,
		Status: domain.ClientStatusActive, LedgerContactID: &ledgerID, Currency: "USD",
		Billing: domain.BillingConfig{
			Frequency: domain.FrequencyMonthly,
			Amount:    decimal.NewFromInt(10000),
			Source:    "ledger_sync",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceHigh, agreement.Confidence)
	assert.Equal(t, domain.SourceLedgerSync, agreement.AmountSource)
	require.NotNil(t, agreement.ClientID)
	assert.Equal(t, "clt_acme", *agreement.ClientID)
	assert.True(t, agreement.IsInflow())
}
