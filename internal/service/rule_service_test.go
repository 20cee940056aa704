package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/testutil"
)

// steadyForecast builds a projection with a constant weekly outflow and no
// inflow so derived targets are easy to reason about.
func steadyForecast(startingCash, weeklyOut float64, horizon int) *domain.ForecastResponse {
	var events []domain.CashEvent
	for w := 1; w <= horizon; w++ {
		events = append(events, domain.CashEvent{
			ID:        fmt.Sprintf("evt_out_%d", w),
			Date:      testStart.AddDate(0, 0, (w-1)*7),
			Amount:    decimal.NewFromFloat(weeklyOut),
			Direction: domain.DirectionOut,
		})
	}
	forecast, err := ComputeForecast(decimal.NewFromFloat(startingCash), testStart, events, horizon)
	if err != nil {
		panic(err)
	}
	return forecast
}

func TestRuleCreate_Validation(t *testing.T) {
	svc := NewRuleService(testutil.NewMockRuleRepository(), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, &domain.FinancialRule{Type: "speed_limit", BufferMonths: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(ctx, &domain.FinancialRule{Type: domain.RuleMinimumCashBuffer, BufferMonths: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(ctx, &domain.FinancialRule{Type: domain.RuleMinimumCashBuffer})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	rule, err := svc.Create(ctx, &domain.FinancialRule{
		UserID: "user_1", Type: domain.RuleMinimumCashBuffer, BufferMonths: 3, IsActive: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
}

func TestEvaluateRule_FixedTarget(t *testing.T) {
	forecast := steadyForecast(20000, 1000, 13)

	rule := &domain.FinancialRule{
		ID: "rule_1", Type: domain.RuleMinimumCashBuffer,
		FixedTarget: decimal.NewFromInt(15000), IsActive: true,
	}

	eval := EvaluateRule(rule, forecast)
	assert.False(t, eval.Passed)
	assert.True(t, eval.Target.Equal(decimal.NewFromInt(15000)))
	// 20000 - n*1000 < 15000 first at week 6.
	require.NotNil(t, eval.BreachWeek)
	assert.Equal(t, 6, *eval.BreachWeek)
}

func TestEvaluateRule_DerivedTarget(t *testing.T) {
	// 1000/week out means a monthly rate of 4330 and a 2-month target of 8660.
	forecast := steadyForecast(100000, 1000, 13)

	rule := &domain.FinancialRule{
		ID: "rule_1", Type: domain.RuleMinimumCashBuffer, BufferMonths: 2, IsActive: true,
	}

	eval := EvaluateRule(rule, forecast)
	assert.True(t, eval.Passed)
	assert.True(t, eval.Target.Equal(decimal.NewFromFloat(8660)), "got %s", eval.Target)
	assert.Nil(t, eval.BreachWeek)
}

func TestEvaluateRule_EarliestBreachWins(t *testing.T) {
	// A dip in week 3 recovers by week 4; the reported breach is week 3.
	events := []domain.CashEvent{
		{ID: "evt_out", Date: testStart.AddDate(0, 0, 14), Amount: decimal.NewFromInt(9000), Direction: domain.DirectionOut},
		{ID: "evt_in", Date: testStart.AddDate(0, 0, 21), Amount: decimal.NewFromInt(9000), Direction: domain.DirectionIn},
		{ID: "evt_out_late", Date: testStart.AddDate(0, 0, 70), Amount: decimal.NewFromInt(9500), Direction: domain.DirectionOut},
	}
	forecast, err := ComputeForecast(decimal.NewFromInt(10000), testStart, events, 13)
	require.NoError(t, err)

	rule := &domain.FinancialRule{
		ID: "rule_1", Type: domain.RuleMinimumCashBuffer,
		FixedTarget: decimal.NewFromInt(5000), IsActive: true,
	}

	eval := EvaluateRule(rule, forecast)
	assert.False(t, eval.Passed)
	require.NotNil(t, eval.BreachWeek)
	assert.Equal(t, 3, *eval.BreachWeek)
}

func TestEvaluateRule_NoExpenseData(t *testing.T) {
	forecast, err := ComputeForecast(decimal.NewFromInt(10000), testStart, nil, 13)
	require.NoError(t, err)

	rule := &domain.FinancialRule{
		ID: "rule_1", Type: domain.RuleMinimumCashBuffer, BufferMonths: 3, IsActive: true,
	}

	eval := EvaluateRule(rule, forecast)
	assert.True(t, eval.Passed)
	assert.NotEmpty(t, eval.Err)
}

func TestEvaluateAll_IsolatesFailures(t *testing.T) {
	repo := testutil.NewMockRuleRepository()
	repo.Rules["rule_bad"] = &domain.FinancialRule{
		ID: "rule_bad", UserID: "user_1", Type: "unknown_type", IsActive: true,
	}
	repo.Rules["rule_ok"] = &domain.FinancialRule{
		ID: "rule_ok", UserID: "user_1", Type: domain.RuleMinimumCashBuffer,
		FixedTarget: decimal.NewFromInt(1), IsActive: true,
	}

	svc := NewRuleService(repo, zerolog.Nop())
	forecast := steadyForecast(50000, 500, 13)

	evals, err := svc.EvaluateAll(context.Background(), "user_1", forecast)
	require.NoError(t, err)
	require.Len(t, evals, 2)

	byID := map[string]domain.RuleEvaluation{}
	for _, e := range evals {
		byID[e.RuleID] = e
	}
	assert.NotEmpty(t, byID["rule_bad"].Err)
	assert.False(t, byID["rule_bad"].Passed)
	assert.True(t, byID["rule_ok"].Passed)
	assert.Empty(t, byID["rule_ok"].Err)
}

func TestMonthlyExpenseRate_UsesFirstFourWeeks(t *testing.T) {
	// Weeks 1-4 cost 1000 each; week 5 onward is noise the rate ignores.
	var events []domain.CashEvent
	for w := 1; w <= 4; w++ {
		events = append(events, domain.CashEvent{
			ID: fmt.Sprintf("evt_%d", w), Date: testStart.AddDate(0, 0, (w-1)*7),
			Amount: decimal.NewFromInt(1000), Direction: domain.DirectionOut,
		})
	}
	events = append(events, domain.CashEvent{
		ID: "evt_spike", Date: testStart.AddDate(0, 0, 35),
		Amount: decimal.NewFromInt(99999), Direction: domain.DirectionOut,
	})

	forecast, err := ComputeForecast(decimal.NewFromInt(500000), testStart, events, 13)
	require.NoError(t, err)

	rate := MonthlyExpenseRate(forecast)
	assert.True(t, rate.Equal(decimal.NewFromFloat(4330)), "got %s", rate)
}
