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

func monthlyAgreement(id string) *domain.ObligationAgreement {
	return &domain.ObligationAgreement{
		ID:           id,
		UserID:       "user_1",
		Type:         domain.ObligationSubscription,
		AmountType:   domain.AmountFixed,
		AmountSource: domain.SourceManualEntry,
		BaseAmount:   decimal.NewFromInt(500),
		Currency:     "USD",
		Frequency:    domain.FrequencyMonthly,
		StartDate:    time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Category:     domain.CategorySoftware,
		Confidence:   domain.ConfidenceHigh,
	}
}

func TestBuildSchedules_MonthlyAnchorsToStartDate(t *testing.T) {
	agreement := monthlyAgreement("obl_1")
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 120)

	schedules := BuildSchedules(agreement, from, to)
	require.Len(t, schedules, 4)

	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), schedules[0].DueDate)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), schedules[1].DueDate)
	for _, s := range schedules {
		assert.Equal(t, "obl_1", s.ObligationID)
		assert.True(t, s.EstimatedAmount.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, domain.ScheduleScheduled, s.Status)
		assert.Equal(t, domain.EstimateFixedAgreement, s.EstimateSource)
		assert.Equal(t, domain.ConfidenceHigh, s.Confidence)
	}
}

func TestBuildSchedules_DeterministicIDs(t *testing.T) {
	agreement := monthlyAgreement("obl_1")
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 120)

	first := BuildSchedules(agreement, from, to)
	second := BuildSchedules(agreement, from, to)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	assert.Equal(t, "sched_obl_1_2026-03-15", first[0].ID)
}

func TestBuildSchedules_OneTime(t *testing.T) {
	agreement := monthlyAgreement("obl_1")
	agreement.Frequency = domain.FrequencyOneTime
	agreement.StartDate = time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	schedules := BuildSchedules(agreement, from, from.AddDate(0, 0, 120))
	require.Len(t, schedules, 1)
	assert.Equal(t, agreement.StartDate, schedules[0].DueDate)

	// Outside the window, nothing materializes.
	schedules = BuildSchedules(agreement, from.AddDate(1, 0, 0), from.AddDate(1, 0, 120))
	assert.Empty(t, schedules)
}

func TestBuildSchedules_SupersededYieldsNothing(t *testing.T) {
	agreement := monthlyAgreement("obl_1")
	successor := "obl_2"
	agreement.SupersededBy = &successor

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, BuildSchedules(agreement, from, from.AddDate(0, 0, 120)))
}

func TestBuildSchedules_EndDateCaps(t *testing.T) {
	agreement := monthlyAgreement("obl_1")
	end := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	agreement.EndDate = &end

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	schedules := BuildSchedules(agreement, from, from.AddDate(0, 0, 365))
	require.Len(t, schedules, 2)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), schedules[1].DueDate)
}

func TestBuildSchedules_VariableCapsConfidence(t *testing.T) {
	agreement := monthlyAgreement("obl_1")
	agreement.AmountType = domain.AmountVariable
	agreement.Confidence = domain.ConfidenceHigh

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	schedules := BuildSchedules(agreement, from, from.AddDate(0, 0, 60))
	require.NotEmpty(t, schedules)
	for _, s := range schedules {
		assert.Equal(t, domain.ConfidenceMedium, s.Confidence)
		assert.Equal(t, domain.EstimateHistoricalAverage, s.EstimateSource)
	}
}

func TestBuildSchedules_MilestonesFollowRuleDates(t *testing.T) {
	agreement := monthlyAgreement("obl_1")
	agreement.AmountType = domain.AmountMilestone
	agreement.Variability = &domain.VariabilityRule{
		Type: "milestone",
		Params: map[string]decimal.Decimal{
			"2026-03-20": decimal.NewFromInt(12000),
			"2026-06-10": decimal.NewFromInt(8000),
			"2026-12-01": decimal.NewFromInt(9000),
			"phase_zero": decimal.NewFromInt(100),
		},
	}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	schedules := BuildSchedules(agreement, from, from.AddDate(0, 0, 120))

	// One instance per dated phase inside the window; no frequency stepping,
	// no base amount, and the undated entry is ignored.
	require.Len(t, schedules, 2)
	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), schedules[0].DueDate)
	assert.True(t, schedules[0].EstimatedAmount.Equal(decimal.NewFromInt(12000)))
	assert.Equal(t, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), schedules[1].DueDate)
	assert.True(t, schedules[1].EstimatedAmount.Equal(decimal.NewFromInt(8000)))
	for _, s := range schedules {
		assert.Equal(t, domain.EstimateFixedAgreement, s.EstimateSource)
		assert.Equal(t, domain.ConfidenceHigh, s.Confidence)
	}
}

func TestRegenerate_VariableAmountsDeferToEstimator(t *testing.T) {
	repo := testutil.NewMockObligationRepository()
	agreement := monthlyAgreement("obl_1")
	agreement.AmountType = domain.AmountVariable
	agreement.Variability = &domain.VariabilityRule{Type: "historical_average"}
	repo.Agreements[agreement.ID] = agreement

	svc := NewScheduleService(repo, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	svc.UseEstimator(func(a *domain.ObligationAgreement, due time.Time) decimal.Decimal {
		return decimal.NewFromInt(int64(due.Month()) * 100)
	})

	require.NoError(t, svc.Regenerate(context.Background(), agreement))
	schedules, err := repo.ListSchedules(agreement.ID)
	require.NoError(t, err)
	require.NotEmpty(t, schedules)

	for _, s := range schedules {
		want := decimal.NewFromInt(int64(s.DueDate.Month()) * 100)
		assert.True(t, s.EstimatedAmount.Equal(want), "week of %s: got %s", s.DueDate, s.EstimatedAmount)
		assert.Equal(t, domain.EstimateHistoricalAverage, s.EstimateSource)
	}
}

func TestRegenerate_ReplacesFutureSchedules(t *testing.T) {
	repo := testutil.NewMockObligationRepository()
	agreement := monthlyAgreement("obl_1")
	repo.Agreements[agreement.ID] = agreement

	svc := NewScheduleService(repo, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	require.NoError(t, svc.Regenerate(ctx, agreement))
	first, err := repo.ListSchedules(agreement.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// A second run on the unchanged agreement yields the identical set.
	require.NoError(t, svc.Regenerate(ctx, agreement))
	second, err := repo.ListSchedules(agreement.ID)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.True(t, first[i].EstimatedAmount.Equal(second[i].EstimatedAmount))
	}
}

func TestRegenerate_PreservesPaidSchedules(t *testing.T) {
	repo := testutil.NewMockObligationRepository()
	agreement := monthlyAgreement("obl_1")
	repo.Agreements[agreement.ID] = agreement

	paid := &domain.ObligationSchedule{
		ID:              "sched_obl_1_2026-02-15",
		ObligationID:    agreement.ID,
		DueDate:         time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		EstimatedAmount: decimal.NewFromInt(500),
		Status:          domain.SchedulePaid,
	}
	repo.Schedules[paid.ID] = paid

	svc := NewScheduleService(repo, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, svc.Regenerate(context.Background(), agreement))

	kept, ok := repo.Schedules[paid.ID]
	require.True(t, ok, "paid schedule must survive regeneration")
	assert.Equal(t, domain.SchedulePaid, kept.Status)
}

func TestRegenerateAll_IsolatesFailures(t *testing.T) {
	repo := testutil.NewMockObligationRepository()
	repo.Agreements["obl_bad"] = monthlyAgreement("obl_bad")
	repo.Agreements["obl_ok"] = monthlyAgreement("obl_ok")

	calls := 0
	repo.CreateSchedulesFn = func(schedules []*domain.ObligationSchedule) error {
		calls++
		if schedules[0].ObligationID == "obl_bad" {
			return assert.AnError
		}
		for _, s := range schedules {
			repo.Schedules[s.ID] = s
		}
		return nil
	}

	svc := NewScheduleService(repo, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, svc.RegenerateAll(context.Background(), "user_1"))
	assert.Equal(t, 2, calls)

	ok, err := repo.ListSchedules("obl_ok")
	require.NoError(t, err)
	assert.NotEmpty(t, ok)
}
