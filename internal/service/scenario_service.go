package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/util"
)

// ScenarioService creates scenarios and builds what-if comparisons by editing
// a cloned event set and recomputing the forecast over it. Base data is never
// mutated.
type ScenarioService struct {
	scenarios domain.ScenarioRepository
	clients   domain.ClientRepository
	expenses  domain.ExpenseRepository
	accounts  domain.AccountRepository
	source    EventSource
	rules     *RuleService
	horizon   int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewScenarioService creates a ScenarioService.
func NewScenarioService(
	scenarios domain.ScenarioRepository,
	clients domain.ClientRepository,
	expenses domain.ExpenseRepository,
	accounts domain.AccountRepository,
	source EventSource,
	rules *RuleService,
	horizon int,
	logger zerolog.Logger,
) *ScenarioService {
	if horizon <= 0 {
		horizon = domain.ForecastHorizonWeeks
	}
	return &ScenarioService{
		scenarios: scenarios,
		clients:   clients,
		expenses:  expenses,
		accounts:  accounts,
		source:    source,
		rules:     rules,
		horizon:   horizon,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates and persists a scenario. Scope references are checked at
// creation so a dangling client or bucket fails fast instead of at build time.
func (s *ScenarioService) Create(ctx context.Context, sc *domain.Scenario) (*domain.Scenario, error) {
	if err := s.validate(sc); err != nil {
		return nil, err
	}
	if err := s.checkScope(sc); err != nil {
		return nil, err
	}

	if sc.ParentScenarioID != nil {
		chain, err := s.resolveChain(sc.UserID, *sc.ParentScenarioID)
		if err != nil {
			return nil, err
		}
		sc.LayerOrder = len(chain)
	}

	if sc.ID == "" {
		sc.ID = domain.NewID("scn")
	}
	if sc.Status == "" {
		sc.Status = domain.ScenarioDraft
	}
	return s.scenarios.Create(sc)
}

func (s *ScenarioService) GetByID(ctx context.Context, userID, id string) (*domain.Scenario, error) {
	return s.scenarios.GetByID(userID, id)
}

func (s *ScenarioService) ListByUser(ctx context.Context, userID string, statuses []domain.ScenarioStatus) ([]*domain.Scenario, error) {
	return s.scenarios.ListByUser(userID, statuses)
}

// UpdateStatus moves a scenario through its lifecycle. Discarding is
// terminal: a discarded scenario can no longer be built or layered on.
func (s *ScenarioService) UpdateStatus(ctx context.Context, userID, id string, status domain.ScenarioStatus) error {
	existing, err := s.scenarios.GetByID(userID, id)
	if err != nil {
		return err
	}
	if existing.Status == domain.ScenarioDiscardedStatus {
		return domain.ErrScenarioDiscarded
	}
	return s.scenarios.UpdateStatus(userID, id, status)
}

// Build resolves the scenario's full parent chain, applies every layer in
// order to a clone of the base events, and returns the comparison of the two
// forecasts. Rules and second-order suggestions are evaluated against the
// modified forecast, the post-change world.
func (s *ScenarioService) Build(ctx context.Context, userID, scenarioID string) (*domain.ScenarioComparison, error) {
	chain, err := s.resolveChain(userID, scenarioID)
	if err != nil {
		return nil, err
	}

	startingCash, err := s.accounts.SumBalances(userID)
	if err != nil {
		return nil, fmt.Errorf("sum account balances: %w", err)
	}

	start := util.Day(s.now())
	end := start.AddDate(0, 0, s.horizon*7-1)

	baseEvents, err := s.source.GenerateEvents(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("generate events: %w", err)
	}

	base, err := ComputeForecast(startingCash, start, baseEvents, s.horizon)
	if err != nil {
		return nil, err
	}

	edited := cloneEvents(baseEvents)
	for i, layer := range chain {
		edited, err = s.applyScenario(edited, layer, start, end)
		if err != nil {
			return nil, &domain.LayerError{Layer: i, ScenarioID: layer.ID, Err: err}
		}
	}

	modified, err := ComputeForecast(startingCash, start, edited, s.horizon)
	if err != nil {
		return nil, err
	}

	comparison := &domain.ScenarioComparison{
		ScenarioID: scenarioID,
		Base:       base,
		Modified:   modified,
		WeekDeltas: weekDeltas(base, modified),
	}
	if n := len(comparison.WeekDeltas); n > 0 {
		comparison.EndDelta = comparison.WeekDeltas[n-1].Delta
	}

	if s.rules != nil {
		evals, err := s.rules.EvaluateAll(ctx, userID, modified)
		if err != nil {
			s.logger.Warn().Err(err).Str("scenario_id", scenarioID).Msg("rule evaluation skipped")
		} else {
			comparison.RuleEvaluations = evals
		}
	}
	comparison.Suggestions = secondOrderSuggestions(modified, chain[len(chain)-1])

	return comparison, nil
}

func (s *ScenarioService) validate(sc *domain.Scenario) error {
	switch sc.Type {
	case domain.ScenarioClientLoss, domain.ScenarioClientGain, domain.ScenarioClientChange,
		domain.ScenarioHiring, domain.ScenarioFiring,
		domain.ScenarioContractorGain, domain.ScenarioContractorLoss,
		domain.ScenarioExpenseIncrease, domain.ScenarioExpenseDecrease,
		domain.ScenarioPaymentDelayIn, domain.ScenarioPaymentDelayOut:
	default:
		return fmt.Errorf("%w: unknown scenario type %q", domain.ErrInvalidInput, sc.Type)
	}
	if sc.Name == "" || len(sc.Name) > domain.MaxNameLength {
		return fmt.Errorf("%w: scenario name must be 1-%d characters", domain.ErrInvalidInput, domain.MaxNameLength)
	}
	if sc.Params.EffectiveDate.IsZero() {
		return fmt.Errorf("%w: effective date is required", domain.ErrInvalidInput)
	}
	if sc.Params.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", domain.ErrInvalidInput)
	}
	if sc.Params.DeltaPercent.LessThan(decimal.NewFromInt(-100)) {
		return fmt.Errorf("%w: delta percent cannot go below -100", domain.ErrInvalidInput)
	}
	if sc.Params.DelayDays < 0 {
		return fmt.Errorf("%w: delay days must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

// checkScope verifies that scoped references still exist.
func (s *ScenarioService) checkScope(sc *domain.Scenario) error {
	if sc.Scope.ClientID != nil {
		if _, err := s.clients.GetByID(sc.UserID, *sc.Scope.ClientID); err != nil {
			return fmt.Errorf("%w: client %s", domain.ErrScopeNotFound, *sc.Scope.ClientID)
		}
	}
	if sc.Scope.ExpenseBucketID != nil {
		if _, err := s.expenses.GetByID(sc.UserID, *sc.Scope.ExpenseBucketID); err != nil {
			return fmt.Errorf("%w: expense bucket %s", domain.ErrScopeNotFound, *sc.Scope.ExpenseBucketID)
		}
	}

	// Scoped types must carry the matching reference.
	switch sc.Type {
	case domain.ScenarioClientLoss, domain.ScenarioClientChange:
		if sc.Scope.ClientID == nil {
			return fmt.Errorf("%w: %s requires a client scope", domain.ErrInvalidInput, sc.Type)
		}
	case domain.ScenarioContractorLoss, domain.ScenarioFiring:
		if sc.Scope.ExpenseBucketID == nil {
			return fmt.Errorf("%w: %s requires an expense bucket scope", domain.ErrInvalidInput, sc.Type)
		}
	}
	return nil
}

// resolveChain walks parent links from the named scenario to the root and
// returns the chain in application order, root first. Cycles and discarded
// ancestors abort the walk.
func (s *ScenarioService) resolveChain(userID, scenarioID string) ([]*domain.Scenario, error) {
	var chain []*domain.Scenario
	seen := make(map[string]bool)

	id := scenarioID
	for {
		if seen[id] {
			return nil, domain.ErrScenarioCycle
		}
		seen[id] = true

		sc, err := s.scenarios.GetByID(userID, id)
		if err != nil {
			return nil, err
		}
		if sc.Status == domain.ScenarioDiscardedStatus {
			return nil, fmt.Errorf("%w: %s", domain.ErrScenarioDiscarded, sc.ID)
		}

		chain = append(chain, sc)
		if sc.ParentScenarioID == nil {
			break
		}
		id = *sc.ParentScenarioID
	}

	// Reverse: the walk collected leaf first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// applyScenario applies one scenario's edit to the event set and returns the
// result. Scope references are re-checked at build time: the underlying
// client or bucket may have been deleted since creation.
func (s *ScenarioService) applyScenario(events []domain.CashEvent, sc *domain.Scenario, start, end time.Time) ([]domain.CashEvent, error) {
	if err := s.checkScope(sc); err != nil {
		return nil, err
	}

	effective := util.Day(sc.Params.EffectiveDate)

	switch sc.Type {
	case domain.ScenarioClientLoss:
		return removeInflows(events, *sc.Scope.ClientID, effective), nil

	case domain.ScenarioClientGain:
		return append(events, syntheticEvents(sc, domain.DirectionIn, domain.EventExpectedRevenue, domain.CategoryOther, effective, end)...), nil

	case domain.ScenarioClientChange:
		return scaleEvents(events, matchClient(*sc.Scope.ClientID), sc.Params.DeltaPercent, effective), nil

	case domain.ScenarioHiring:
		return append(events, syntheticEvents(sc, domain.DirectionOut, domain.EventExpectedExpense, domain.CategoryPayroll, effective, end)...), nil

	case domain.ScenarioContractorGain:
		return append(events, syntheticEvents(sc, domain.DirectionOut, domain.EventExpectedExpense, domain.CategoryContractors, effective, end)...), nil

	case domain.ScenarioFiring:
		return reduceOutflows(events, *sc.Scope.ExpenseBucketID, sc.Params.Amount, effective), nil

	case domain.ScenarioContractorLoss:
		return removeOutflows(events, *sc.Scope.ExpenseBucketID, effective), nil

	case domain.ScenarioExpenseIncrease:
		if sc.Scope.ExpenseBucketID != nil && !sc.Params.DeltaPercent.IsZero() {
			return scaleEvents(events, matchBucket(*sc.Scope.ExpenseBucketID), sc.Params.DeltaPercent, effective), nil
		}
		return append(events, syntheticEvents(sc, domain.DirectionOut, domain.EventExpectedExpense, domain.CategoryOther, effective, end)...), nil

	case domain.ScenarioExpenseDecrease:
		if sc.Scope.ExpenseBucketID != nil && !sc.Params.DeltaPercent.IsZero() {
			return scaleEvents(events, matchBucket(*sc.Scope.ExpenseBucketID), sc.Params.DeltaPercent.Neg(), effective), nil
		}
		if sc.Scope.ExpenseBucketID != nil {
			return reduceOutflows(events, *sc.Scope.ExpenseBucketID, sc.Params.Amount, effective), nil
		}
		return events, nil

	case domain.ScenarioPaymentDelayIn:
		return delayEvents(events, domain.DirectionIn, sc.Scope.ClientID, sc.Params.DelayDays, effective), nil

	case domain.ScenarioPaymentDelayOut:
		return delayEvents(events, domain.DirectionOut, sc.Scope.ExpenseBucketID, sc.Params.DelayDays, effective), nil
	}

	return nil, fmt.Errorf("%w: unknown scenario type %q", domain.ErrInvalidInput, sc.Type)
}

func cloneEvents(events []domain.CashEvent) []domain.CashEvent {
	out := make([]domain.CashEvent, len(events))
	copy(out, events)
	return out
}

func matchClient(clientID string) func(domain.CashEvent) bool {
	return func(e domain.CashEvent) bool {
		return e.Direction == domain.DirectionIn && e.SourceID == clientID
	}
}

func matchBucket(bucketID string) func(domain.CashEvent) bool {
	return func(e domain.CashEvent) bool {
		return e.Direction == domain.DirectionOut && e.SourceID == bucketID
	}
}

func removeInflows(events []domain.CashEvent, clientID string, effective time.Time) []domain.CashEvent {
	match := matchClient(clientID)
	out := events[:0]
	for _, e := range events {
		if match(e) && !e.Date.Before(effective) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func removeOutflows(events []domain.CashEvent, bucketID string, effective time.Time) []domain.CashEvent {
	match := matchBucket(bucketID)
	out := events[:0]
	for _, e := range events {
		if match(e) && !e.Date.Before(effective) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// reduceOutflows subtracts amount from each matching event on or after the
// effective date, clamping at zero.
func reduceOutflows(events []domain.CashEvent, bucketID string, amount decimal.Decimal, effective time.Time) []domain.CashEvent {
	match := matchBucket(bucketID)
	for i, e := range events {
		if !match(e) || e.Date.Before(effective) {
			continue
		}
		reduced := e.Amount.Sub(amount)
		if reduced.IsNegative() {
			reduced = decimal.Zero
		}
		events[i].Amount = reduced
	}
	return events
}

func scaleEvents(events []domain.CashEvent, match func(domain.CashEvent) bool, deltaPercent decimal.Decimal, effective time.Time) []domain.CashEvent {
	factor := decimal.NewFromInt(1).Add(deltaPercent.Div(decimalHundred))
	if factor.IsNegative() {
		factor = decimal.Zero
	}
	for i, e := range events {
		if !match(e) || e.Date.Before(effective) {
			continue
		}
		events[i].Amount = e.Amount.Mul(factor)
	}
	return events
}

func delayEvents(events []domain.CashEvent, direction domain.Direction, sourceID *string, days int, effective time.Time) []domain.CashEvent {
	if days == 0 {
		return events
	}
	for i, e := range events {
		if e.Direction != direction || e.Date.Before(effective) {
			continue
		}
		if sourceID != nil && e.SourceID != *sourceID {
			continue
		}
		events[i].Date = e.Date.AddDate(0, 0, days)
	}
	return events
}

// syntheticEvents materializes the recurring events a gain-type scenario
// introduces, from the effective date to the horizon end.
func syntheticEvents(sc *domain.Scenario, direction domain.Direction, eventType domain.EventType, category domain.ExpenseCategory, effective, end time.Time) []domain.CashEvent {
	if !sc.Params.Amount.IsPositive() {
		return nil
	}
	freq := sc.Params.Frequency
	if freq == "" {
		freq = domain.FrequencyMonthly
	}

	var events []domain.CashEvent
	cursor := effective
	seq := 0
	for !cursor.After(end) {
		seq++
		events = append(events, domain.CashEvent{
			ID:                domain.EventID("scenario", sc.ID, cursor, seq),
			Date:              cursor,
			Amount:            sc.Params.Amount,
			Direction:         direction,
			Type:              eventType,
			Category:          category,
			Confidence:        domain.ConfidenceMedium,
			ConfidenceReason:  "hypothetical (scenario)",
			SourceID:          sc.ID,
			SourceName:        sc.Name,
			SourceType:        "scenario",
			IsRecurring:       freq != domain.FrequencyOneTime,
			RecurrencePattern: freq,
		})
		if freq == domain.FrequencyOneTime {
			break
		}
		cursor = util.StepFrequency(cursor, freq)
	}
	return events
}

func weekDeltas(base, modified *domain.ForecastResponse) []domain.WeekDelta {
	baseWeeks := base.ProjectionWeeks()
	modWeeks := modified.ProjectionWeeks()
	n := len(baseWeeks)
	if len(modWeeks) < n {
		n = len(modWeeks)
	}

	deltas := make([]domain.WeekDelta, 0, n)
	for i := 0; i < n; i++ {
		deltas = append(deltas, domain.WeekDelta{
			WeekNumber: baseWeeks[i].WeekNumber,
			Base:       baseWeeks[i].EndingBalance,
			Scenario:   modWeeks[i].EndingBalance,
			Delta:      modWeeks[i].EndingBalance.Sub(baseWeeks[i].EndingBalance),
		})
	}
	return deltas
}

// secondOrderSuggestions proposes follow-up scenarios from the post-change
// state: when the modified forecast goes cash-negative, suggest the levers
// that buy time.
func secondOrderSuggestions(modified *domain.ForecastResponse, leaf *domain.Scenario) []domain.ScenarioSuggestion {
	if modified.Summary.RunwayWeeks == nil {
		return nil
	}
	breachWeek := *modified.Summary.RunwayWeeks
	shortfall := modified.Summary.LowestCashAmount.Neg()

	effective := modified.StartDate
	return []domain.ScenarioSuggestion{
		{
			Type:   domain.ScenarioPaymentDelayOut,
			Title:  "Delay outgoing payments",
			Reason: fmt.Sprintf("cash goes negative in week %d after %q; delaying outflows buys runway", breachWeek, leaf.Name),
			Params: domain.ScenarioParams{
				EffectiveDate: effective,
				DelayDays:     14,
			},
			Severity: "warning",
			Priority: 1,
		},
		{
			Type:   domain.ScenarioExpenseDecrease,
			Title:  "Cut discretionary spend",
			Reason: fmt.Sprintf("covering the projected %s shortfall requires reducing monthly outflow", shortfall.StringFixed(2)),
			Params: domain.ScenarioParams{
				EffectiveDate: effective,
				DeltaPercent:  decimal.NewFromInt(10),
			},
			Severity: "warning",
			Priority: 2,
		},
	}
}
