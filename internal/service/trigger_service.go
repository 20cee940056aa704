package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
)

// DefaultTriggers is the static trigger table. Priority orders display only;
// firing is independent per trigger.
var DefaultTriggers = []domain.Trigger{
	{
		ID:            "trg_runway_breach",
		Metric:        domain.MetricBufferBreach,
		Operator:      domain.OpLessEqual,
		Threshold:     decimal.Zero,
		Severity:      domain.SeverityCritical,
		CooldownHours: 24,
		Priority:      1,
		ScenarioType:  domain.ScenarioPaymentDelayOut,
		Title:         "Cash goes negative within the forecast horizon",
	},
	{
		ID:            "trg_buffer_integrity",
		Metric:        domain.MetricBufferIntegrity,
		Operator:      domain.OpLessThan,
		Threshold:     decimal.NewFromInt(70),
		Severity:      domain.SeverityCritical,
		CooldownHours: 48,
		Priority:      2,
		ScenarioType:  domain.ScenarioExpenseDecrease,
		Title:         "Cash buffer below 70% of target",
	},
	{
		ID:            "trg_client_concentration",
		Metric:        domain.MetricClientConcentration,
		Operator:      domain.OpGreaterThan,
		Threshold:     decimal.NewFromInt(40),
		Severity:      domain.SeverityWarning,
		CooldownHours: 168,
		Priority:      3,
		ScenarioType:  domain.ScenarioClientLoss,
		Title:         "Revenue concentrated in a single client",
	},
	{
		ID:            "trg_health_score",
		Metric:        domain.MetricHealthScore,
		Operator:      domain.OpLessThan,
		Threshold:     decimal.NewFromInt(50),
		Severity:      domain.SeverityWarning,
		CooldownHours: 72,
		Priority:      4,
		ScenarioType:  domain.ScenarioExpenseDecrease,
		Title:         "Financial health score is low",
	},
	{
		ID:            "trg_burn_rate",
		Metric:        domain.MetricBufferTrend,
		Operator:      domain.OpLessThan,
		Threshold:     decimal.NewFromInt(-100),
		Severity:      domain.SeverityInfo,
		CooldownHours: 168,
		Priority:      5,
		ScenarioType:  domain.ScenarioExpenseDecrease,
		Title:         "Cash balance is burning week over week",
	},
}

// triggerCandidate is one (value, scope) pair a trigger is checked against.
// Most metrics yield a single global candidate; concentration yields one per
// client share.
type triggerCandidate struct {
	Value    decimal.Decimal
	ScopeKey string
	Scope    domain.ScenarioScope
	Reason   string
}

// TriggerService evaluates the trigger table against behavior metrics and
// manages the lifecycle of fired instances.
type TriggerService struct {
	instances domain.TriggerRepository
	analytics *AnalyticsService
	scenarios *ScenarioService
	table     []domain.Trigger
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTriggerService creates a TriggerService using the default trigger table.
func NewTriggerService(instances domain.TriggerRepository, analytics *AnalyticsService, scenarios *ScenarioService, logger zerolog.Logger) *TriggerService {
	return &TriggerService{
		instances: instances,
		analytics: analytics,
		scenarios: scenarios,
		table:     DefaultTriggers,
		logger:    logger,
		now:       time.Now,
	}
}

// EvaluateTriggers computes the metric snapshot and fires every trigger
// whose condition holds and whose cooldown window for the scope has elapsed.
// Trigger failures are isolated: one broken trigger does not stop the rest.
func (s *TriggerService) EvaluateTriggers(ctx context.Context, userID string) ([]*domain.TriggerInstance, error) {
	snapshot, err := s.analytics.SnapshotFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build analytics snapshot: %w", err)
	}
	results := RunMetrics(ctx, snapshot)

	byKind := make(map[domain.MetricKind]domain.MetricResult, len(results))
	for _, r := range results {
		byKind[r.Kind] = r
	}

	now := s.now()
	var fired []*domain.TriggerInstance
	for i := range s.table {
		trigger := &s.table[i]
		result, ok := byKind[trigger.Metric]
		if !ok || result.Insufficient {
			continue
		}

		for _, candidate := range extractCandidates(trigger.Metric, result) {
			if !trigger.Operator.Compare(candidate.Value, trigger.Threshold) {
				continue
			}

			inCooldown, err := s.inCooldown(userID, trigger.ID, candidate.ScopeKey, now)
			if err != nil {
				s.logger.Warn().Err(err).Str("trigger_id", trigger.ID).Msg("cooldown check failed")
				continue
			}
			if inCooldown {
				continue
			}

			instance := &domain.TriggerInstance{
				ID:       domain.NewID("inst"),
				TriggerID: trigger.ID,
				UserID:   userID,
				ScopeKey: candidate.ScopeKey,
				Status:   domain.InstancePending,
				Severity: trigger.Severity,
				Suggestion: domain.ScenarioSuggestion{
					Type:     trigger.ScenarioType,
					Title:    trigger.Title,
					Reason:   candidate.Reason,
					Scope:    candidate.Scope,
					Params:   domain.ScenarioParams{EffectiveDate: now},
					Severity: string(trigger.Severity),
					Priority: trigger.Priority,
					TriggerID: trigger.ID,
				},
				FiredAt:       now,
				CooldownUntil: now.Add(time.Duration(trigger.CooldownHours) * time.Hour),
			}
			instance.Suggestion.InstanceID = instance.ID

			created, err := s.instances.CreateInstance(instance)
			if err != nil {
				s.logger.Error().Err(err).Str("trigger_id", trigger.ID).Msg("failed to persist trigger instance")
				continue
			}
			fired = append(fired, created)
		}
	}
	return fired, nil
}

// GetSuggestions returns the pending suggestions for a user, freshest first.
func (s *TriggerService) GetSuggestions(ctx context.Context, userID string) ([]*domain.TriggerInstance, error) {
	return s.instances.ListInstances(userID, []domain.InstanceStatus{domain.InstancePending, domain.InstanceDeferred})
}

// Accept turns a pending suggestion into a draft scenario.
func (s *TriggerService) Accept(ctx context.Context, userID, instanceID string) (*domain.Scenario, error) {
	instance, err := s.instances.GetInstance(userID, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Status != domain.InstancePending && instance.Status != domain.InstanceDeferred {
		return nil, fmt.Errorf("%w: instance is %s", domain.ErrInvalidInput, instance.Status)
	}

	scenario, err := s.scenarios.Create(ctx, &domain.Scenario{
		UserID: userID,
		Name:   instance.Suggestion.Title,
		Type:   instance.Suggestion.Type,
		Scope:  instance.Suggestion.Scope,
		Params: instance.Suggestion.Params,
		Status: domain.ScenarioDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("create scenario from suggestion: %w", err)
	}

	now := s.now()
	instance.Status = domain.InstanceAccepted
	instance.ResolvedAt = &now
	if _, err := s.instances.UpdateInstance(instance); err != nil {
		return nil, err
	}
	return scenario, nil
}

// Dismiss suppresses the suggestion until its cooldown elapses again.
func (s *TriggerService) Dismiss(ctx context.Context, userID, instanceID string) error {
	instance, err := s.instances.GetInstance(userID, instanceID)
	if err != nil {
		return err
	}
	now := s.now()
	instance.Status = domain.InstanceDismissed
	instance.ResolvedAt = &now
	_, err = s.instances.UpdateInstance(instance)
	return err
}

// ExpireStale marks unactioned suggestions whose cooldown window has
// elapsed as expired, dropping them from the feed. The next evaluation is
// free to fire the trigger again.
func (s *TriggerService) ExpireStale(ctx context.Context, userID string) (int, error) {
	instances, err := s.instances.ListInstances(userID, []domain.InstanceStatus{domain.InstancePending, domain.InstanceDeferred})
	if err != nil {
		return 0, fmt.Errorf("list open instances: %w", err)
	}

	now := s.now()
	expired := 0
	for _, instance := range instances {
		if now.Before(instance.CooldownUntil) {
			continue
		}
		instance.Status = domain.InstanceExpired
		resolved := now
		instance.ResolvedAt = &resolved
		if _, err := s.instances.UpdateInstance(instance); err != nil {
			s.logger.Error().Err(err).Str("instance_id", instance.ID).Msg("could not expire trigger instance")
			continue
		}
		expired++
	}
	return expired, nil
}

// Defer extends the cooldown window by the fixed defer extension.
func (s *TriggerService) Defer(ctx context.Context, userID, instanceID string) error {
	instance, err := s.instances.GetInstance(userID, instanceID)
	if err != nil {
		return err
	}
	instance.Status = domain.InstanceDeferred
	instance.CooldownUntil = instance.CooldownUntil.Add(domain.DeferExtension)
	_, err = s.instances.UpdateInstance(instance)
	return err
}

func (s *TriggerService) inCooldown(userID, triggerID, scopeKey string, now time.Time) (bool, error) {
	latest, err := s.instances.LatestFiring(userID, triggerID, scopeKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return now.Before(latest.CooldownUntil), nil
}

// extractCandidates maps a metric result to the comparable values the
// trigger table checks.
func extractCandidates(kind domain.MetricKind, result domain.MetricResult) []triggerCandidate {
	switch kind {
	case domain.MetricBufferBreach:
		v, ok := result.Value.(domain.BufferBreachResult)
		if !ok {
			return nil
		}
		return []triggerCandidate{{
			Value:    v.LowestBalance,
			ScopeKey: "global",
			Reason:   fmt.Sprintf("lowest projected balance is %s in week %d", v.LowestBalance.StringFixed(2), v.LowestWeek),
		}}

	case domain.MetricBufferIntegrity:
		v, ok := result.Value.(domain.BufferIntegrityResult)
		if !ok {
			return nil
		}
		return []triggerCandidate{{
			Value:    v.Score,
			ScopeKey: "global",
			Reason:   fmt.Sprintf("buffer is at %s%% of its %s target", v.Score.StringFixed(0), v.Target.StringFixed(2)),
		}}

	case domain.MetricHealthScore:
		v, ok := result.Value.(domain.HealthScoreResult)
		if !ok {
			return nil
		}
		return []triggerCandidate{{
			Value:    v.Score,
			ScopeKey: "global",
			Reason:   fmt.Sprintf("health score is %s of 100", v.Score.StringFixed(0)),
		}}

	case domain.MetricBufferTrend:
		v, ok := result.Value.(domain.BufferTrendResult)
		if !ok {
			return nil
		}
		return []triggerCandidate{{
			Value:    v.WeeklyDelta,
			ScopeKey: "global",
			Reason:   fmt.Sprintf("balance changes %s per week on average", v.WeeklyDelta.StringFixed(2)),
		}}

	case domain.MetricClientConcentration:
		v, ok := result.Value.(domain.ConcentrationResult)
		if !ok {
			return nil
		}
		var candidates []triggerCandidate
		for _, share := range v.Shares {
			clientID := share.ClientID
			candidates = append(candidates, triggerCandidate{
				Value:    share.Share.Mul(decimalHundred),
				ScopeKey: clientID,
				Scope:    domain.ScenarioScope{ClientID: &clientID},
				Reason:   fmt.Sprintf("%s accounts for %s%% of revenue", share.Name, share.Share.Mul(decimalHundred).StringFixed(0)),
			})
		}
		return candidates
	}
	return nil
}
