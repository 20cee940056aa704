package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
)

// weeksPerMonth converts a weekly average into a monthly figure.
var weeksPerMonth = decimal.NewFromFloat(4.33)

// RuleService manages financial rules and evaluates them against forecasts.
type RuleService struct {
	rules  domain.RuleRepository
	logger zerolog.Logger
}

// NewRuleService creates a RuleService.
func NewRuleService(rules domain.RuleRepository, logger zerolog.Logger) *RuleService {
	return &RuleService{rules: rules, logger: logger}
}

func (s *RuleService) Create(ctx context.Context, rule *domain.FinancialRule) (*domain.FinancialRule, error) {
	if rule.Type != domain.RuleMinimumCashBuffer {
		return nil, fmt.Errorf("%w: unknown rule type %q", domain.ErrInvalidInput, rule.Type)
	}
	if rule.BufferMonths < 0 {
		return nil, fmt.Errorf("%w: buffer months must not be negative", domain.ErrInvalidInput)
	}
	if rule.BufferMonths == 0 && !rule.FixedTarget.IsPositive() {
		return nil, fmt.Errorf("%w: rule needs buffer months or a fixed target", domain.ErrInvalidInput)
	}
	if rule.ID == "" {
		rule.ID = domain.NewID("rule")
	}
	return s.rules.Create(rule)
}

func (s *RuleService) GetByID(ctx context.Context, userID, id string) (*domain.FinancialRule, error) {
	return s.rules.GetByID(userID, id)
}

func (s *RuleService) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.FinancialRule, error) {
	return s.rules.ListByUser(userID, activeOnly)
}

func (s *RuleService) Update(ctx context.Context, rule *domain.FinancialRule) (*domain.FinancialRule, error) {
	if rule.BufferMonths < 0 {
		return nil, fmt.Errorf("%w: buffer months must not be negative", domain.ErrInvalidInput)
	}
	return s.rules.Update(rule)
}

func (s *RuleService) Delete(ctx context.Context, userID, id string) error {
	return s.rules.Delete(userID, id)
}

// EvaluateAll checks every active rule against the forecast. A rule that
// cannot be evaluated reports its own failure instead of aborting the rest.
func (s *RuleService) EvaluateAll(ctx context.Context, userID string, forecast *domain.ForecastResponse) ([]domain.RuleEvaluation, error) {
	rules, err := s.rules.ListByUser(userID, true)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	evaluations := make([]domain.RuleEvaluation, 0, len(rules))
	for _, rule := range rules {
		eval := EvaluateRule(rule, forecast)
		if eval.Err != "" {
			s.logger.Warn().Str("rule_id", rule.ID).Str("error", eval.Err).Msg("rule evaluation failed")
		}
		evaluations = append(evaluations, eval)
	}
	return evaluations, nil
}

// EvaluateRule checks one rule against a forecast. The buffer target is the
// fixed target when set, otherwise buffer months times the average monthly
// outflow observed over the projection. BreachWeek is the earliest week whose
// ending balance falls below the target.
func EvaluateRule(rule *domain.FinancialRule, forecast *domain.ForecastResponse) domain.RuleEvaluation {
	eval := domain.RuleEvaluation{RuleID: rule.ID, Type: rule.Type, Passed: true}

	if rule.Type != domain.RuleMinimumCashBuffer {
		eval.Passed = false
		eval.Err = fmt.Sprintf("unknown rule type %q", rule.Type)
		return eval
	}

	target := rule.FixedTarget
	if !target.IsPositive() {
		monthly := MonthlyExpenseRate(forecast)
		if !monthly.IsPositive() {
			eval.Err = "no expense data to derive buffer target"
			return eval
		}
		target = monthly.Mul(decimal.NewFromInt(int64(rule.BufferMonths)))
	}
	eval.Target = target

	for _, week := range forecast.ProjectionWeeks() {
		if week.EndingBalance.LessThan(target) {
			eval.Passed = false
			w := week.WeekNumber
			eval.BreachWeek = &w
			break
		}
	}
	return eval
}

// MonthlyExpenseRate derives the user's monthly outflow from the forecast:
// the average weekly cash out over the first four projection weeks, scaled
// to a month.
func MonthlyExpenseRate(forecast *domain.ForecastResponse) decimal.Decimal {
	weeks := forecast.ProjectionWeeks()
	if len(weeks) > 4 {
		weeks = weeks[:4]
	}
	if len(weeks) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, w := range weeks {
		total = total.Add(w.CashOut)
	}
	return total.Div(decimal.NewFromInt(int64(len(weeks)))).Mul(weeksPerMonth)
}
