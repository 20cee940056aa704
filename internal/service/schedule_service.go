package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/util"
)

// scheduleHorizonDays is how far ahead schedules are materialized. Kept
// ahead of the forecast horizon so the projection never runs off the end of
// the schedule table.
const scheduleHorizonDays = 120

// AmountEstimator supplies the per-period amount for a variable agreement.
// The estimator is externally supplied; schedule generation defers to it for
// every AmountVariable instance.
type AmountEstimator func(agreement *domain.ObligationAgreement, due time.Time) decimal.Decimal

// EstimateBaseAmount is the default estimator: the agreement's base amount
// stands in until a history-backed estimator is plugged in.
func EstimateBaseAmount(agreement *domain.ObligationAgreement, _ time.Time) decimal.Decimal {
	return agreement.BaseAmount
}

// ScheduleService derives ObligationSchedules from agreements on a rolling
// horizon. Regeneration replaces future schedules rather than appending, and
// is exclusive per obligation so interleaved writes cannot duplicate or lose
// instances.
type ScheduleService struct {
	obligations domain.ObligationRepository
	estimator   AmountEstimator
	logger      zerolog.Logger
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewScheduleService creates a ScheduleService.
func NewScheduleService(obligations domain.ObligationRepository, logger zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		obligations: obligations,
		estimator:   EstimateBaseAmount,
		logger:      logger,
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
	}
}

// UseEstimator swaps in a custom variable-amount estimator.
func (s *ScheduleService) UseEstimator(fn AmountEstimator) {
	if fn != nil {
		s.estimator = fn
	}
}

func (s *ScheduleService) lockFor(obligationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[obligationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[obligationID] = l
	}
	return l
}

// Regenerate replaces an agreement's future schedules with a freshly derived
// set. Past schedules keep their recorded state.
func (s *ScheduleService) Regenerate(ctx context.Context, agreement *domain.ObligationAgreement) error {
	lock := s.lockFor(agreement.ID)
	lock.Lock()
	defer lock.Unlock()

	today := util.Day(s.now())

	deleted, err := s.obligations.DeleteFutureSchedules(agreement.ID, today)
	if err != nil {
		return fmt.Errorf("delete future schedules: %w", err)
	}

	schedules := buildSchedules(agreement, today, today.AddDate(0, 0, scheduleHorizonDays), s.estimator)
	if len(schedules) > 0 {
		if err := s.obligations.CreateSchedules(schedules); err != nil {
			return fmt.Errorf("create schedules: %w", err)
		}
	}

	s.logger.Debug().
		Str("obligation_id", agreement.ID).
		Int64("deleted", deleted).
		Int("created", len(schedules)).
		Msg("regenerated obligation schedules")
	return nil
}

// RegenerateAll refreshes the rolling horizon for every current agreement of
// a user. Per-agreement failures are logged and skipped so one bad record
// does not block the rest.
func (s *ScheduleService) RegenerateAll(ctx context.Context, userID string) error {
	agreements, err := s.obligations.ListByUser(userID, false)
	if err != nil {
		return fmt.Errorf("list agreements: %w", err)
	}
	for _, agreement := range agreements {
		if err := s.Regenerate(ctx, agreement); err != nil {
			s.logger.Error().Err(err).Str("obligation_id", agreement.ID).Msg("schedule regeneration failed")
		}
	}
	return nil
}

// BuildSchedules derives the schedule instances for an agreement between
// from and to, estimating variable amounts from the base amount. Schedule
// ids are deterministic per (agreement, due date), so rebuilding an
// unchanged agreement yields an identical set.
func BuildSchedules(agreement *domain.ObligationAgreement, from, to time.Time) []*domain.ObligationSchedule {
	return buildSchedules(agreement, from, to, EstimateBaseAmount)
}

func buildSchedules(agreement *domain.ObligationAgreement, from, to time.Time, estimator AmountEstimator) []*domain.ObligationSchedule {
	if agreement.SupersededBy != nil {
		return nil
	}
	if !agreement.BaseAmount.IsPositive() {
		return nil
	}

	end := to
	if agreement.EndDate != nil && agreement.EndDate.Before(end) {
		end = util.Day(*agreement.EndDate)
	}

	confidence := agreement.Confidence
	if confidence == "" || (agreement.AmountType == domain.AmountVariable && confidence == domain.ConfidenceHigh) {
		confidence = domain.ConfidenceMedium
	}

	// Milestone agreements pay per contract phase, not per period; the
	// variability rule carries the date-keyed phase amounts.
	if agreement.AmountType == domain.AmountMilestone && agreement.Variability != nil {
		return milestoneSchedules(agreement, from, end, confidence)
	}

	estimateSource := domain.EstimateFixedAgreement
	amountFor := func(time.Time) decimal.Decimal { return agreement.BaseAmount }
	if agreement.AmountType == domain.AmountVariable {
		estimateSource = domain.EstimateHistoricalAverage
		amountFor = func(due time.Time) decimal.Decimal { return estimator(agreement, due) }
	}

	var schedules []*domain.ObligationSchedule
	cursor := util.Day(agreement.StartDate)

	if agreement.Frequency == domain.FrequencyOneTime || agreement.Frequency == "" {
		if util.InRange(cursor, from, end) {
			schedules = append(schedules, newSchedule(agreement, cursor, amountFor(cursor), estimateSource, confidence))
		}
		return schedules
	}

	// Step from the agreement start so due dates stay anchored to the
	// contract, skipping instances already in the past.
	for !cursor.After(end) {
		if !cursor.Before(from) {
			schedules = append(schedules, newSchedule(agreement, cursor, amountFor(cursor), estimateSource, confidence))
		}
		cursor = util.StepFrequency(cursor, agreement.Frequency)
	}
	return schedules
}

// milestoneSchedules yields one instance per rule entry. Params keys are
// the phase due dates (YYYY-MM-DD); entries with unparseable dates or
// non-positive amounts are skipped.
func milestoneSchedules(agreement *domain.ObligationAgreement, from, end time.Time, confidence domain.Confidence) []*domain.ObligationSchedule {
	var schedules []*domain.ObligationSchedule
	for key, amount := range agreement.Variability.Params {
		due, err := time.Parse("2006-01-02", key)
		if err != nil || !amount.IsPositive() {
			continue
		}
		due = util.Day(due)
		if !util.InRange(due, from, end) {
			continue
		}
		schedules = append(schedules, newSchedule(agreement, due, amount, domain.EstimateFixedAgreement, confidence))
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].DueDate.Before(schedules[j].DueDate) })
	return schedules
}

func newSchedule(agreement *domain.ObligationAgreement, due time.Time, amount decimal.Decimal, source domain.EstimateSource, confidence domain.Confidence) *domain.ObligationSchedule {
	periodStart := due
	return &domain.ObligationSchedule{
		ID:              fmt.Sprintf("sched_%s_%s", agreement.ID, due.Format("2006-01-02")),
		ObligationID:    agreement.ID,
		DueDate:         due,
		PeriodStart:     &periodStart,
		EstimatedAmount: amount,
		EstimateSource:  source,
		Confidence:      confidence,
		Status:          domain.ScheduleScheduled,
	}
}
