package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/testutil"
)

func TestLegacySource_RetainerNetTerms(t *testing.T) {
	clients := testutil.NewMockClientRepository()
	expenses := testutil.NewMockExpenseRepository()
	clients.Clients["clt_1"] = &domain.Client{
		ID: "clt_1", UserID: "user_1", Name: "Acme", Type: domain.ClientTypeRetainer,
		Status: domain.ClientStatusActive, PaymentBehavior: domain.PaymentBehaviorOnTime,
		Billing: domain.BillingConfig{
			Frequency:  domain.FrequencyMonthly,
			InvoiceDay: 1,
			Amount:     decimal.NewFromInt(5000),
		},
	}

	src := NewLegacyClientExpenseSource(clients, expenses)
	end := testStart.AddDate(0, 0, 91)
	events, err := src.GenerateEvents(context.Background(), "user_1", testStart, end)
	require.NoError(t, err)

	// Billed on the 1st, paid net 30: Mar 31, May 1, May 31 land inside the
	// window; the June billing pays after it closes.
	require.Len(t, events, 3)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), events[0].Date)
	assert.Equal(t, domain.DirectionIn, events[0].Direction)
	assert.Equal(t, domain.ConfidenceMedium, events[0].Confidence)
	assert.True(t, events[0].IsRecurring)
	assert.Equal(t, "Acme", events[0].SourceName)
}

func TestLegacySource_InactiveClientYieldsNothing(t *testing.T) {
	clients := testutil.NewMockClientRepository()
	expenses := testutil.NewMockExpenseRepository()
	clients.Clients["clt_1"] = &domain.Client{
		ID: "clt_1", UserID: "user_1", Name: "Gone", Type: domain.ClientTypeRetainer,
		Status: domain.ClientStatusPaused,
		Billing: domain.BillingConfig{
			Frequency: domain.FrequencyMonthly,
			Amount:    decimal.NewFromInt(5000),
		},
	}

	src := NewLegacyClientExpenseSource(clients, expenses)
	events, err := src.GenerateEvents(context.Background(), "user_1", testStart, testStart.AddDate(0, 0, 91))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLegacySource_MilestonesSkipPaid(t *testing.T) {
	clients := testutil.NewMockClientRepository()
	expenses := testutil.NewMockExpenseRepository()
	due := testStart.AddDate(0, 0, 20)
	past := testStart.AddDate(0, 0, 10)
	clients.Clients["clt_1"] = &domain.Client{
		ID: "clt_1", UserID: "user_1", Name: "BuildCo", Type: domain.ClientTypeProject,
		Status: domain.ClientStatusActive,
		Billing: domain.BillingConfig{
			Milestones: []domain.Milestone{
				{Name: "Kickoff", Amount: decimal.NewFromInt(4000), ExpectedDate: &past, Status: "paid"},
				{Name: "Delivery", Amount: decimal.NewFromInt(6000), ExpectedDate: &due, Status: "pending", PaymentTerms: "net_7"},
			},
		},
	}

	src := NewLegacyClientExpenseSource(clients, expenses)
	events, err := src.GenerateEvents(context.Background(), "user_1", testStart, testStart.AddDate(0, 0, 91))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, due.AddDate(0, 0, 7), events[0].Date)
	assert.True(t, events[0].Amount.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, domain.ExpenseCategory("milestone_payment"), events[0].Category)
}

func TestLegacySource_ExpenseConfidence(t *testing.T) {
	clients := testutil.NewMockClientRepository()
	expenses := testutil.NewMockExpenseRepository()
	expenses.Buckets["exp_rent"] = &domain.ExpenseBucket{
		ID: "exp_rent", UserID: "user_1", Name: "Rent", Category: domain.CategoryRent,
		Type: domain.BucketTypeFixed, MonthlyAmount: decimal.NewFromInt(2500),
		IsStable: true, DueDay: 5, Frequency: domain.FrequencyMonthly,
	}
	expenses.Buckets["exp_ads"] = &domain.ExpenseBucket{
		ID: "exp_ads", UserID: "user_1", Name: "Ads", Category: domain.CategoryMarketing,
		Type: domain.BucketTypeVariable, MonthlyAmount: decimal.NewFromInt(800),
		DueDay: 5, Frequency: domain.FrequencyMonthly,
	}

	src := NewLegacyClientExpenseSource(clients, expenses)
	events, err := src.GenerateEvents(context.Background(), "user_1", testStart, testStart.AddDate(0, 0, 30))
	require.NoError(t, err)

	require.Len(t, events, 2)
	byID := map[string]domain.CashEvent{}
	for _, e := range events {
		byID[e.SourceID] = e
	}
	assert.Equal(t, domain.ConfidenceHigh, byID["exp_rent"].Confidence)
	assert.Equal(t, domain.ConfidenceMedium, byID["exp_ads"].Confidence)
	assert.Equal(t, domain.DirectionOut, byID["exp_rent"].Direction)
}

func TestObligationSource_DirectionFromLinkage(t *testing.T) {
	repo := testutil.NewMockObligationRepository()
	clients := testutil.NewMockClientRepository()
	expenses := testutil.NewMockExpenseRepository()

	clients.Clients["clt_1"] = &domain.Client{ID: "clt_1", UserID: "user_1", Name: "Acme"}
	expenses.Buckets["exp_1"] = &domain.ExpenseBucket{ID: "exp_1", UserID: "user_1", Name: "Payroll"}

	clientID := "clt_1"
	bucketID := "exp_1"
	repo.Agreements["obl_in"] = &domain.ObligationAgreement{
		ID: "obl_in", UserID: "user_1", ClientID: &clientID,
		Frequency: domain.FrequencyMonthly, Category: domain.CategoryOther,
	}
	repo.Agreements["obl_out"] = &domain.ObligationAgreement{
		ID: "obl_out", UserID: "user_1", ExpenseBucketID: &bucketID,
		Frequency: domain.FrequencyMonthly, Category: domain.CategoryPayroll,
	}
	repo.Schedules["sch_in"] = &domain.ObligationSchedule{
		ID: "sch_in", ObligationID: "obl_in", DueDate: testStart.AddDate(0, 0, 7),
		EstimatedAmount: decimal.NewFromInt(10000), Status: domain.ScheduleScheduled,
		Confidence: domain.ConfidenceHigh,
	}
	repo.Schedules["sch_out"] = &domain.ObligationSchedule{
		ID: "sch_out", ObligationID: "obl_out", DueDate: testStart.AddDate(0, 0, 3),
		EstimatedAmount: decimal.NewFromInt(8000), Status: domain.ScheduleScheduled,
		Confidence: domain.ConfidenceHigh,
	}
	// A schedule pointing at a missing agreement must not turn into cash.
	repo.Schedules["sch_stale"] = &domain.ObligationSchedule{
		ID: "sch_stale", ObligationID: "obl_gone", DueDate: testStart.AddDate(0, 0, 5),
		EstimatedAmount: decimal.NewFromInt(999), Status: domain.ScheduleScheduled,
	}

	src := NewObligationSource(repo, clients, expenses)
	events, err := src.GenerateEvents(context.Background(), "user_1", testStart, testStart.AddDate(0, 0, 30))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, domain.DirectionOut, events[0].Direction)
	assert.Equal(t, "Payroll", events[0].SourceName)
	assert.Equal(t, domain.DirectionIn, events[1].Direction)
	assert.Equal(t, "Acme", events[1].SourceName)
}

func TestObligationSource_CompletedPaymentsAreConfirmedOutflows(t *testing.T) {
	repo := testutil.NewMockObligationRepository()
	src := NewObligationSource(repo, testutil.NewMockClientRepository(), testutil.NewMockExpenseRepository())

	vendor := "AWS"
	repo.Payments["pay_1"] = &domain.PaymentEvent{
		ID: "pay_1", UserID: "user_1", Amount: decimal.NewFromInt(320),
		PaymentDate: testStart.AddDate(0, 0, 2), Status: domain.PaymentCompleted,
		VendorName: &vendor,
	}
	repo.Payments["pay_2"] = &domain.PaymentEvent{
		ID: "pay_2", UserID: "user_1", Amount: decimal.NewFromInt(100),
		PaymentDate: testStart.AddDate(0, 0, 4), Status: domain.PaymentPending,
	}

	events, err := src.GenerateEvents(context.Background(), "user_1", testStart, testStart.AddDate(0, 0, 30))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventConfirmedExpense, events[0].Type)
	assert.Equal(t, domain.ConfidenceHigh, events[0].Confidence)
	assert.Equal(t, "AWS", events[0].SourceName)
}
