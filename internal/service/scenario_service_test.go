package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/testutil"
)

type scenarioFixture struct {
	svc       *ScenarioService
	scenarios *testutil.MockScenarioRepository
	clients   *testutil.MockClientRepository
	expenses  *testutil.MockExpenseRepository
	accounts  *testutil.MockAccountRepository
	rules     *testutil.MockRuleRepository
}

// setupScenarioService wires a freelancer with $50,000 in the bank, one
// $10,000/month retainer client, and an $8,000/month payroll bucket. Events
// are pre-materialized so tests control dates exactly.
func setupScenarioService(t *testing.T) *scenarioFixture {
	t.Helper()

	scenarios := testutil.NewMockScenarioRepository()
	clients := testutil.NewMockClientRepository()
	expenses := testutil.NewMockExpenseRepository()
	accounts := testutil.NewMockAccountRepository()
	rules := testutil.NewMockRuleRepository()

	accounts.Accounts["acct_1"] = &domain.CashAccount{
		ID: "acct_1", UserID: "user_1", Balance: decimal.NewFromInt(50000),
	}
	clients.Clients["clt_acme"] = &domain.Client{
		ID: "clt_acme", UserID: "user_1", Name: "Acme", Type: domain.ClientTypeRetainer,
		Status: domain.ClientStatusActive, PaymentBehavior: domain.PaymentBehaviorOnTime,
		Billing: domain.BillingConfig{
			Frequency: domain.FrequencyMonthly,
			Amount:    decimal.NewFromInt(10000),
		},
	}
	expenses.Buckets["exp_payroll"] = &domain.ExpenseBucket{
		ID: "exp_payroll", UserID: "user_1", Name: "Payroll",
		Category: domain.CategoryPayroll, Type: domain.BucketTypeFixed,
		MonthlyAmount: decimal.NewFromInt(8000), IsStable: true,
	}

	var events []domain.CashEvent
	for cycle := 0; cycle < 3; cycle++ {
		events = append(events,
			domain.CashEvent{
				ID:         domain.EventID("client", "clt_acme", testStart.AddDate(0, 0, 10+cycle*30), 1),
				Date:       testStart.AddDate(0, 0, 10+cycle*30),
				Amount:     decimal.NewFromInt(10000),
				Direction:  domain.DirectionIn,
				Type:       domain.EventExpectedRevenue,
				SourceID:   "clt_acme",
				SourceType: "client",
				Confidence: domain.ConfidenceMedium,
			},
			domain.CashEvent{
				ID:         domain.EventID("expense", "exp_payroll", testStart.AddDate(0, 0, 5+cycle*30), 1),
				Date:       testStart.AddDate(0, 0, 5+cycle*30),
				Amount:     decimal.NewFromInt(8000),
				Direction:  domain.DirectionOut,
				Type:       domain.EventExpectedExpense,
				Category:   domain.CategoryPayroll,
				SourceID:   "exp_payroll",
				SourceType: "expense_bucket",
				Confidence: domain.ConfidenceHigh,
			},
		)
	}

	source := &StaticEventSource{Events: events}
	ruleSvc := NewRuleService(rules, zerolog.Nop())
	svc := NewScenarioService(scenarios, clients, expenses, accounts, source, ruleSvc, 13, zerolog.Nop())
	svc.now = func() time.Time { return testStart }

	return &scenarioFixture{svc: svc, scenarios: scenarios, clients: clients, expenses: expenses, accounts: accounts, rules: rules}
}

func strPtr(s string) *string { return &s }

func TestScenarioCreate_Validation(t *testing.T) {
	f := setupScenarioService(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "bad", Type: "meteor_strike",
		Params: domain.ScenarioParams{EffectiveDate: testStart},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "no date", Type: domain.ScenarioClientGain,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// client_loss needs a client scope pointing at a live client.
	_, err = f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "lose nobody", Type: domain.ScenarioClientLoss,
		Params: domain.ScenarioParams{EffectiveDate: testStart},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "lose ghost", Type: domain.ScenarioClientLoss,
		Scope:  domain.ScenarioScope{ClientID: strPtr("clt_ghost")},
		Params: domain.ScenarioParams{EffectiveDate: testStart},
	})
	assert.ErrorIs(t, err, domain.ErrScopeNotFound)

	created, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "lose Acme", Type: domain.ScenarioClientLoss,
		Scope:  domain.ScenarioScope{ClientID: strPtr("clt_acme")},
		Params: domain.ScenarioParams{EffectiveDate: testStart},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.ScenarioDraft, created.Status)
}

func TestScenarioBuild_ClientLoss(t *testing.T) {
	f := setupScenarioService(t)
	ctx := context.Background()

	// Losing Acme effective week 3 removes the second and third retainer
	// payments but keeps the first.
	sc, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "lose Acme", Type: domain.ScenarioClientLoss,
		Scope:  domain.ScenarioScope{ClientID: strPtr("clt_acme")},
		Params: domain.ScenarioParams{EffectiveDate: testStart.AddDate(0, 0, 14)},
	})
	require.NoError(t, err)

	comparison, err := f.svc.Build(ctx, "user_1", sc.ID)
	require.NoError(t, err)

	// Base: 50000 + 3*10000 - 3*8000 = 56000.
	baseEnd := comparison.Base.Weeks[len(comparison.Base.Weeks)-1].EndingBalance
	assert.True(t, baseEnd.Equal(decimal.NewFromInt(56000)), "got %s", baseEnd)

	// Modified: two inflows gone, ending 36000.
	modEnd := comparison.Modified.Weeks[len(comparison.Modified.Weeks)-1].EndingBalance
	assert.True(t, modEnd.Equal(decimal.NewFromInt(36000)), "got %s", modEnd)
	assert.True(t, comparison.EndDelta.Equal(decimal.NewFromInt(-20000)), "got %s", comparison.EndDelta)

	// Weeks before the effective date are untouched.
	require.Len(t, comparison.WeekDeltas, 13)
	assert.True(t, comparison.WeekDeltas[0].Delta.IsZero())
	assert.True(t, comparison.WeekDeltas[1].Delta.IsZero())
}

func TestScenarioBuild_ClientLossFlipsRule(t *testing.T) {
	f := setupScenarioService(t)
	ctx := context.Background()

	f.rules.Rules["rule_1"] = &domain.FinancialRule{
		ID: "rule_1", UserID: "user_1", Type: domain.RuleMinimumCashBuffer,
		FixedTarget: decimal.NewFromInt(40000), IsActive: true,
	}

	sc, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "lose Acme", Type: domain.ScenarioClientLoss,
		Scope:  domain.ScenarioScope{ClientID: strPtr("clt_acme")},
		Params: domain.ScenarioParams{EffectiveDate: testStart},
	})
	require.NoError(t, err)

	comparison, err := f.svc.Build(ctx, "user_1", sc.ID)
	require.NoError(t, err)

	// All retainer income gone: 50000 - 24000 payroll ends at 26000, below
	// the 40000 floor. Evaluations run against the modified world.
	require.Len(t, comparison.RuleEvaluations, 1)
	assert.False(t, comparison.RuleEvaluations[0].Passed)
	assert.NotNil(t, comparison.RuleEvaluations[0].BreachWeek)
}

func TestScenarioBuild_NoOpDeltaIsZero(t *testing.T) {
	f := setupScenarioService(t)
	ctx := context.Background()

	sc, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "wait and see", Type: domain.ScenarioPaymentDelayIn,
		Scope:  domain.ScenarioScope{ClientID: strPtr("clt_acme")},
		Params: domain.ScenarioParams{EffectiveDate: testStart, DelayDays: 0},
	})
	require.NoError(t, err)

	comparison, err := f.svc.Build(ctx, "user_1", sc.ID)
	require.NoError(t, err)

	for _, d := range comparison.WeekDeltas {
		assert.True(t, d.Delta.IsZero(), "week %d delta should be zero, got %s", d.WeekNumber, d.Delta)
	}
	assert.True(t, comparison.EndDelta.IsZero())
}

func TestScenarioBuild_LayeredChain(t *testing.T) {
	f := setupScenarioService(t)
	ctx := context.Background()

	parent, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "lose Acme", Type: domain.ScenarioClientLoss,
		Scope:  domain.ScenarioScope{ClientID: strPtr("clt_acme")},
		Params: domain.ScenarioParams{EffectiveDate: testStart},
	})
	require.NoError(t, err)

	child, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "then cut payroll", Type: domain.ScenarioContractorLoss,
		Scope:            domain.ScenarioScope{ExpenseBucketID: strPtr("exp_payroll")},
		Params:           domain.ScenarioParams{EffectiveDate: testStart},
		ParentScenarioID: &parent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, child.LayerOrder)

	comparison, err := f.svc.Build(ctx, "user_1", child.ID)
	require.NoError(t, err)

	// Both layers applied: no inflows, no payroll, balance stays at 50000.
	modEnd := comparison.Modified.Weeks[len(comparison.Modified.Weeks)-1].EndingBalance
	assert.True(t, modEnd.Equal(decimal.NewFromInt(50000)), "got %s", modEnd)
}

func TestScenarioBuild_CycleDetected(t *testing.T) {
	f := setupScenarioService(t)

	a := &domain.Scenario{
		ID: "scn_a", UserID: "user_1", Name: "a", Type: domain.ScenarioClientGain,
		Params: domain.ScenarioParams{EffectiveDate: testStart}, Status: domain.ScenarioDraft,
	}
	b := &domain.Scenario{
		ID: "scn_b", UserID: "user_1", Name: "b", Type: domain.ScenarioClientGain,
		Params: domain.ScenarioParams{EffectiveDate: testStart}, Status: domain.ScenarioDraft,
	}
	a.ParentScenarioID = &b.ID
	b.ParentScenarioID = &a.ID
	f.scenarios.Scenarios[a.ID] = a
	f.scenarios.Scenarios[b.ID] = b

	_, err := f.svc.Build(context.Background(), "user_1", "scn_a")
	assert.ErrorIs(t, err, domain.ErrScenarioCycle)
}

func TestScenarioBuild_DiscardedAncestorRejected(t *testing.T) {
	f := setupScenarioService(t)

	parent := &domain.Scenario{
		ID: "scn_parent", UserID: "user_1", Name: "old idea", Type: domain.ScenarioClientGain,
		Params: domain.ScenarioParams{EffectiveDate: testStart}, Status: domain.ScenarioDiscardedStatus,
	}
	child := &domain.Scenario{
		ID: "scn_child", UserID: "user_1", Name: "built on sand", Type: domain.ScenarioClientGain,
		Params: domain.ScenarioParams{EffectiveDate: testStart}, Status: domain.ScenarioDraft,
		ParentScenarioID: &parent.ID,
	}
	f.scenarios.Scenarios[parent.ID] = parent
	f.scenarios.Scenarios[child.ID] = child

	_, err := f.svc.Build(context.Background(), "user_1", "scn_child")
	assert.ErrorIs(t, err, domain.ErrScenarioDiscarded)
}

func TestScenarioBuild_LayerFailureReportsIndex(t *testing.T) {
	f := setupScenarioService(t)
	ctx := context.Background()

	parent, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "lose Acme", Type: domain.ScenarioClientLoss,
		Scope:  domain.ScenarioScope{ClientID: strPtr("clt_acme")},
		Params: domain.ScenarioParams{EffectiveDate: testStart},
	})
	require.NoError(t, err)

	child, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "cut payroll", Type: domain.ScenarioContractorLoss,
		Scope:            domain.ScenarioScope{ExpenseBucketID: strPtr("exp_payroll")},
		Params:           domain.ScenarioParams{EffectiveDate: testStart},
		ParentScenarioID: &parent.ID,
	})
	require.NoError(t, err)

	// The bucket disappears between creation and build.
	delete(f.expenses.Buckets, "exp_payroll")

	_, err = f.svc.Build(ctx, "user_1", child.ID)
	var layerErr *domain.LayerError
	require.True(t, errors.As(err, &layerErr))
	assert.Equal(t, 1, layerErr.Layer)
	assert.Equal(t, child.ID, layerErr.ScenarioID)
}

func TestScenarioBuild_SecondOrderSuggestions(t *testing.T) {
	f := setupScenarioService(t)
	ctx := context.Background()

	// Dropping all income sends the forecast negative nowhere near 50000 in
	// 13 weeks, so shrink the bank first.
	f.accounts.Accounts["acct_1"].Balance = decimal.NewFromInt(10000)

	sc, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "lose Acme", Type: domain.ScenarioClientLoss,
		Scope:  domain.ScenarioScope{ClientID: strPtr("clt_acme")},
		Params: domain.ScenarioParams{EffectiveDate: testStart},
	})
	require.NoError(t, err)

	comparison, err := f.svc.Build(ctx, "user_1", sc.ID)
	require.NoError(t, err)

	require.NotNil(t, comparison.Modified.Summary.RunwayWeeks)
	require.Len(t, comparison.Suggestions, 2)
	assert.Equal(t, domain.ScenarioPaymentDelayOut, comparison.Suggestions[0].Type)
	assert.Equal(t, domain.ScenarioExpenseDecrease, comparison.Suggestions[1].Type)
}

func TestScenarioUpdateStatus_DiscardIsTerminal(t *testing.T) {
	f := setupScenarioService(t)
	ctx := context.Background()

	sc, err := f.svc.Create(ctx, &domain.Scenario{
		UserID: "user_1", Name: "maybe", Type: domain.ScenarioClientGain,
		Params: domain.ScenarioParams{EffectiveDate: testStart, Amount: decimal.NewFromInt(5000)},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateStatus(ctx, "user_1", sc.ID, domain.ScenarioDiscardedStatus))
	err = f.svc.UpdateStatus(ctx, "user_1", sc.ID, domain.ScenarioSaved)
	assert.ErrorIs(t, err, domain.ErrScenarioDiscarded)
}
