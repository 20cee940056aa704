package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/testutil"
)

type triggerFixture struct {
	svc       *TriggerService
	instances *testutil.MockTriggerRepository
	scenarios *testutil.MockScenarioRepository
	clock     *time.Time
}

// setupTriggerService wires a user in visible trouble: a single dominant
// client, a steady burn, and far less cash than the buffer target. Every
// default trigger's condition holds.
func setupTriggerService(t *testing.T) *triggerFixture {
	t.Helper()

	accounts := testutil.NewMockAccountRepository()
	clients := testutil.NewMockClientRepository()
	expenses := testutil.NewMockExpenseRepository()
	obligations := testutil.NewMockObligationRepository()
	rules := testutil.NewMockRuleRepository()
	scenarios := testutil.NewMockScenarioRepository()
	instances := testutil.NewMockTriggerRepository()

	accounts.Accounts["acct_1"] = &domain.CashAccount{
		ID: "acct_1", UserID: "user_1", Balance: decimal.NewFromInt(5000),
	}
	clients.Clients["clt_whale"] = retainerClient("clt_whale", "Whale", 10000, domain.PaymentBehaviorOnTime)

	var events []domain.CashEvent
	for w := 1; w <= 13; w++ {
		events = append(events, domain.CashEvent{
			ID: fmt.Sprintf("evt_burn_%d", w), Date: testStart.AddDate(0, 0, (w-1)*7),
			Amount: decimal.NewFromInt(1000), Direction: domain.DirectionOut,
			Confidence: domain.ConfidenceHigh,
		})
	}
	source := &StaticEventSource{Events: events}

	clock := testStart
	nowFn := func() time.Time { return clock }

	forecast := NewForecastService(accounts, source, 13, zerolog.Nop())
	forecast.now = nowFn
	analytics := NewAnalyticsService(accounts, clients, expenses, obligations, rules, forecast, zerolog.Nop())
	analytics.now = nowFn
	ruleSvc := NewRuleService(rules, zerolog.Nop())
	scenarioSvc := NewScenarioService(scenarios, clients, expenses, accounts, source, ruleSvc, 13, zerolog.Nop())
	scenarioSvc.now = nowFn

	svc := NewTriggerService(instances, analytics, scenarioSvc, zerolog.Nop())
	svc.now = nowFn

	return &triggerFixture{svc: svc, instances: instances, scenarios: scenarios, clock: &clock}
}

func TestEvaluateTriggers_FiresAllDefaultTriggers(t *testing.T) {
	f := setupTriggerService(t)

	fired, err := f.svc.EvaluateTriggers(context.Background(), "user_1")
	require.NoError(t, err)
	require.Len(t, fired, len(DefaultTriggers))

	byTrigger := map[string]*domain.TriggerInstance{}
	for _, inst := range fired {
		byTrigger[inst.TriggerID] = inst
		assert.Equal(t, domain.InstancePending, inst.Status)
		assert.NotEmpty(t, inst.Suggestion.Reason)
		assert.Equal(t, inst.ID, inst.Suggestion.InstanceID)
	}

	// Concentration is scoped to the offending client, the rest are global.
	require.Contains(t, byTrigger, "trg_client_concentration")
	assert.Equal(t, "clt_whale", byTrigger["trg_client_concentration"].ScopeKey)
	require.NotNil(t, byTrigger["trg_client_concentration"].Suggestion.Scope.ClientID)
	assert.Equal(t, "global", byTrigger["trg_runway_breach"].ScopeKey)
}

func TestEvaluateTriggers_CooldownSuppressesRefire(t *testing.T) {
	f := setupTriggerService(t)
	ctx := context.Background()

	first, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Nothing has changed and every cooldown is still open.
	second, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, second)

	// A week later the 24h runway-breach cooldown has long elapsed.
	*f.clock = testStart.Add(8 * 24 * time.Hour)
	third, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)
	assert.Len(t, third, len(DefaultTriggers))
}

func TestEvaluateTriggers_CooldownIsPerTrigger(t *testing.T) {
	f := setupTriggerService(t)
	ctx := context.Background()

	_, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)

	// 30 hours in only the 24h cooldown has elapsed.
	*f.clock = testStart.Add(30 * time.Hour)
	refired, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, refired, 1)
	assert.Equal(t, "trg_runway_breach", refired[0].TriggerID)
}

func TestAccept_CreatesDraftScenario(t *testing.T) {
	f := setupTriggerService(t)
	ctx := context.Background()

	fired, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)
	require.NotEmpty(t, fired)

	scenario, err := f.svc.Accept(ctx, "user_1", fired[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScenarioDraft, scenario.Status)
	assert.Equal(t, fired[0].Suggestion.Type, scenario.Type)
	assert.NotEmpty(t, f.scenarios.Scenarios)

	accepted, err := f.instances.GetInstance("user_1", fired[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceAccepted, accepted.Status)
	assert.NotNil(t, accepted.ResolvedAt)

	// Accepting twice is a conflict with the lifecycle.
	_, err = f.svc.Accept(ctx, "user_1", fired[0].ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDismiss_MarksResolved(t *testing.T) {
	f := setupTriggerService(t)
	ctx := context.Background()

	fired, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)
	require.NotEmpty(t, fired)

	require.NoError(t, f.svc.Dismiss(ctx, "user_1", fired[0].ID))
	dismissed, err := f.instances.GetInstance("user_1", fired[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceDismissed, dismissed.Status)
	assert.NotNil(t, dismissed.ResolvedAt)
}

func TestExpireStale_MarksLapsedInstancesExpired(t *testing.T) {
	f := setupTriggerService(t)
	ctx := context.Background()

	fired, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)
	require.NotEmpty(t, fired)

	// Inside every cooldown window nothing expires.
	expired, err := f.svc.ExpireStale(ctx, "user_1")
	require.NoError(t, err)
	assert.Zero(t, expired)

	*f.clock = testStart.Add(8 * 24 * time.Hour)
	expired, err = f.svc.ExpireStale(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, len(fired), expired)

	for _, inst := range fired {
		stored := f.instances.Instances[inst.ID]
		assert.Equal(t, domain.InstanceExpired, stored.Status)
		require.NotNil(t, stored.ResolvedAt)
		assert.Equal(t, *f.clock, *stored.ResolvedAt)
	}

	suggestions, err := f.svc.GetSuggestions(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestDefer_ExtendsCooldown(t *testing.T) {
	f := setupTriggerService(t)
	ctx := context.Background()

	fired, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)
	require.NotEmpty(t, fired)

	before := fired[0].CooldownUntil
	require.NoError(t, f.svc.Defer(ctx, "user_1", fired[0].ID))

	deferred, err := f.instances.GetInstance("user_1", fired[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceDeferred, deferred.Status)
	assert.Equal(t, before.Add(domain.DeferExtension), deferred.CooldownUntil)
}

func TestGetSuggestions_PendingAndDeferredOnly(t *testing.T) {
	f := setupTriggerService(t)
	ctx := context.Background()

	fired, err := f.svc.EvaluateTriggers(ctx, "user_1")
	require.NoError(t, err)
	require.True(t, len(fired) >= 2)

	require.NoError(t, f.svc.Dismiss(ctx, "user_1", fired[0].ID))
	require.NoError(t, f.svc.Defer(ctx, "user_1", fired[1].ID))

	suggestions, err := f.svc.GetSuggestions(ctx, "user_1")
	require.NoError(t, err)
	assert.Len(t, suggestions, len(fired)-1)
	for _, s := range suggestions {
		assert.NotEqual(t, fired[0].ID, s.ID)
	}
}

func TestTriggerOperator_Compare(t *testing.T) {
	ten := decimal.NewFromInt(10)
	five := decimal.NewFromInt(5)

	assert.True(t, domain.OpLessThan.Compare(five, ten))
	assert.False(t, domain.OpLessThan.Compare(ten, ten))
	assert.True(t, domain.OpLessEqual.Compare(ten, ten))
	assert.True(t, domain.OpGreaterThan.Compare(ten, five))
	assert.True(t, domain.OpGreaterEqual.Compare(ten, ten))
	assert.False(t, domain.OpGreaterEqual.Compare(five, ten))
}
