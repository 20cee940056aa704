package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/util"
)

// EventSource materializes dated cash events for a user over a date range.
// Two implementations exist during the data-model migration: the legacy
// client/expense path and the canonical obligation path. The forecast engine
// depends only on this interface; the active implementation is chosen by
// configuration at the process boundary.
type EventSource interface {
	GenerateEvents(ctx context.Context, userID string, start, end time.Time) ([]domain.CashEvent, error)
}

// getNetDays default payment terms per billing shape.
const (
	defaultRetainerTermsDays  = 30
	defaultMilestoneTermsDays = 14
	defaultInvoiceTermsDays   = 0
)

// LegacyClientExpenseSource computes events directly from client billing
// configuration and expense buckets.
type LegacyClientExpenseSource struct {
	clients  domain.ClientRepository
	expenses domain.ExpenseRepository
}

// NewLegacyClientExpenseSource creates a LegacyClientExpenseSource.
func NewLegacyClientExpenseSource(clients domain.ClientRepository, expenses domain.ExpenseRepository) *LegacyClientExpenseSource {
	return &LegacyClientExpenseSource{clients: clients, expenses: expenses}
}

// GenerateEvents computes events on the fly. It is a pure read: regenerating
// for unchanged source state yields an identical event set.
func (s *LegacyClientExpenseSource) GenerateEvents(ctx context.Context, userID string, start, end time.Time) ([]domain.CashEvent, error) {
	clients, err := s.clients.ListByUser(userID, true)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	buckets, err := s.expenses.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list expense buckets: %w", err)
	}

	var events []domain.CashEvent
	for _, client := range clients {
		events = append(events, clientEvents(client, start, end)...)
	}
	for _, bucket := range buckets {
		events = append(events, expenseEvents(bucket, start, end)...)
	}

	sortEvents(events)
	return events, nil
}

func clientEvents(client *domain.Client, start, end time.Time) []domain.CashEvent {
	if client.Status != domain.ClientStatusActive {
		return nil
	}

	confidence := clientConfidence(client)

	var events []domain.CashEvent
	switch client.Type {
	case domain.ClientTypeRetainer:
		events = retainerEvents(client, &client.Billing, start, end, confidence)
	case domain.ClientTypeProject:
		events = milestoneEvents(client, client.Billing.Milestones, start, end, confidence)
	case domain.ClientTypeUsage:
		events = usageEvents(client, &client.Billing, start, end, confidence)
	case domain.ClientTypeMixed:
		if client.Billing.Retainer != nil {
			events = append(events, retainerEvents(client, client.Billing.Retainer, start, end, confidence)...)
		}
		if client.Billing.Project != nil {
			events = append(events, milestoneEvents(client, client.Billing.Project.Milestones, start, end, confidence)...)
		}
		if client.Billing.Usage != nil {
			events = append(events, usageEvents(client, client.Billing.Usage, start, end, confidence)...)
		}
	}

	// Outstanding ledger invoices are one-time receivables that exist
	// regardless of billing type.
	events = append(events, invoiceEvents(client, start, end)...)
	return events
}

func retainerEvents(client *domain.Client, cfg *domain.BillingConfig, start, end time.Time, confidence domain.Confidence) []domain.CashEvent {
	if !cfg.Amount.IsPositive() {
		return nil
	}

	freq := cfg.Frequency
	if freq == "" {
		freq = domain.FrequencyMonthly
	}
	termDays := util.ParsePaymentTerms(cfg.PaymentTerms, defaultRetainerTermsDays)

	var events []domain.CashEvent
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	seq := 0
	for !cursor.After(end) {
		billingDate := cursor
		if cfg.InvoiceDay > 0 {
			billingDate = util.CalculateActualDate(cursor.Year(), cursor.Month(), cfg.InvoiceDay)
		}
		paymentDate := billingDate.AddDate(0, 0, termDays)

		if util.InRange(paymentDate, start, end) {
			seq++
			events = append(events, domain.CashEvent{
				ID:                domain.EventID("client", client.ID, paymentDate, seq),
				Date:              paymentDate,
				Amount:            cfg.Amount,
				Direction:         domain.DirectionIn,
				Type:              domain.EventExpectedRevenue,
				Category:          "retainer",
				Confidence:        confidence,
				ConfidenceReason:  confidenceReason(client),
				SourceID:          client.ID,
				SourceName:        client.Name,
				SourceType:        "client",
				IsRecurring:       true,
				RecurrencePattern: freq,
			})
		}

		cursor = util.StepFrequency(cursor, freq)
	}
	return events
}

func milestoneEvents(client *domain.Client, milestones []domain.Milestone, start, end time.Time, confidence domain.Confidence) []domain.CashEvent {
	var events []domain.CashEvent
	for i, m := range milestones {
		if m.ExpectedDate == nil || !m.Amount.IsPositive() || m.Status == "paid" {
			continue
		}
		termDays := util.ParsePaymentTerms(m.PaymentTerms, defaultMilestoneTermsDays)
		paymentDate := util.Day(*m.ExpectedDate).AddDate(0, 0, termDays)
		if !util.InRange(paymentDate, start, end) {
			continue
		}
		events = append(events, domain.CashEvent{
			ID:               domain.EventID("client", client.ID+"_milestone", paymentDate, i),
			Date:             paymentDate,
			Amount:           m.Amount,
			Direction:        domain.DirectionIn,
			Type:             domain.EventExpectedRevenue,
			Category:         "milestone_payment",
			Confidence:       confidence,
			ConfidenceReason: confidenceReason(client),
			SourceID:         client.ID,
			SourceName:       client.Name,
			SourceType:       "client",
		})
	}
	return events
}

func usageEvents(client *domain.Client, cfg *domain.BillingConfig, start, end time.Time, confidence domain.Confidence) []domain.CashEvent {
	if !cfg.TypicalAmount.IsPositive() {
		return nil
	}

	freq := cfg.SettlementFrequency
	if freq == "" {
		freq = domain.FrequencyMonthly
	}
	termDays := util.ParsePaymentTerms(cfg.PaymentTerms, defaultRetainerTermsDays)

	// Usage revenue is inherently variable, so it never scores above medium.
	if confidence == domain.ConfidenceHigh {
		confidence = domain.ConfidenceMedium
	}

	var events []domain.CashEvent
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	seq := 0
	for !cursor.After(end) {
		paymentDate := cursor.AddDate(0, 0, termDays)
		if util.InRange(paymentDate, start, end) {
			seq++
			events = append(events, domain.CashEvent{
				ID:                domain.EventID("client", client.ID+"_usage", paymentDate, seq),
				Date:              paymentDate,
				Amount:            cfg.TypicalAmount,
				Direction:         domain.DirectionIn,
				Type:              domain.EventExpectedRevenue,
				Category:          "usage",
				Confidence:        confidence,
				ConfidenceReason:  "usage-based (variable)",
				SourceID:          client.ID,
				SourceName:        client.Name,
				SourceType:        "client",
				IsRecurring:       true,
				RecurrencePattern: freq,
			})
		}
		cursor = util.StepFrequency(cursor, freq)
	}
	return events
}

func invoiceEvents(client *domain.Client, start, end time.Time) []domain.CashEvent {
	var events []domain.CashEvent
	for i, inv := range client.Billing.OutstandingInvoices {
		if !inv.Amount.IsPositive() {
			continue
		}
		termDays := util.ParsePaymentTerms(inv.PaymentTerms, defaultInvoiceTermsDays)
		paymentDate := util.Day(inv.ExpectedDate).AddDate(0, 0, termDays)
		if !util.InRange(paymentDate, start, end) {
			continue
		}

		// Synced invoices carry ledger-confirmed amounts.
		confidence := clientConfidence(client)
		if client.LedgerContactID != nil {
			confidence = domain.ConfidenceHigh
		}

		events = append(events, domain.CashEvent{
			ID:               domain.EventID("client", client.ID+"_invoice", paymentDate, i),
			Date:             paymentDate,
			Amount:           inv.Amount,
			Direction:        domain.DirectionIn,
			Type:             domain.EventExpectedRevenue,
			Category:         "outstanding_invoice",
			Confidence:       confidence,
			ConfidenceReason: fmt.Sprintf("outstanding invoice: %s", inv.Name),
			SourceID:         client.ID,
			SourceName:       client.Name,
			SourceType:       "client",
		})
	}
	return events
}

func expenseEvents(bucket *domain.ExpenseBucket, start, end time.Time) []domain.CashEvent {
	if !bucket.MonthlyAmount.IsPositive() {
		return nil
	}

	freq := bucket.Frequency
	if freq == "" {
		freq = domain.FrequencyMonthly
	}
	dueDay := bucket.DueDay
	if dueDay <= 0 {
		dueDay = 15
	}

	confidence := domain.ConfidenceHigh
	reason := "fixed expense"
	if bucket.Type == domain.BucketTypeVariable || !bucket.IsStable {
		confidence = domain.ConfidenceMedium
		reason = "variable expense"
	}

	var events []domain.CashEvent
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	seq := 0
	for !cursor.After(end) {
		dueDate := util.CalculateActualDate(cursor.Year(), cursor.Month(), dueDay)
		if util.InRange(dueDate, start, end) {
			seq++
			events = append(events, domain.CashEvent{
				ID:                domain.EventID("expense", bucket.ID, dueDate, seq),
				Date:              dueDate,
				Amount:            bucket.MonthlyAmount,
				Direction:         domain.DirectionOut,
				Type:              domain.EventExpectedExpense,
				Category:          bucket.Category,
				Confidence:        confidence,
				ConfidenceReason:  reason,
				SourceID:          bucket.ID,
				SourceName:        bucket.Name,
				SourceType:        "expense",
				IsRecurring:       true,
				RecurrencePattern: freq,
			})
		}
		cursor = util.StepFrequency(cursor, freq)
	}
	return events
}

func clientConfidence(client *domain.Client) domain.Confidence {
	if client.LedgerContactID != nil {
		return domain.ConfidenceHigh
	}
	if client.PaymentBehavior == domain.PaymentBehaviorOnTime {
		return domain.ConfidenceMedium
	}
	if client.PaymentBehavior == domain.PaymentBehaviorDelayed {
		return domain.ConfidenceLow
	}
	return domain.ConfidenceMedium
}

func confidenceReason(client *domain.Client) string {
	if client.LedgerContactID != nil {
		return "synced from ledger"
	}
	return "manual entry"
}

// ObligationSource computes events from obligation schedules, the canonical
// data path.
type ObligationSource struct {
	obligations domain.ObligationRepository
	clients     domain.ClientRepository
	expenses    domain.ExpenseRepository
}

// NewObligationSource creates an ObligationSource.
func NewObligationSource(obligations domain.ObligationRepository, clients domain.ClientRepository, expenses domain.ExpenseRepository) *ObligationSource {
	return &ObligationSource{obligations: obligations, clients: clients, expenses: expenses}
}

// GenerateEvents turns scheduled and due obligation schedules into events,
// and appends completed payments as confirmed actual outflows.
func (s *ObligationSource) GenerateEvents(ctx context.Context, userID string, start, end time.Time) ([]domain.CashEvent, error) {
	schedules, err := s.obligations.ListSchedulesByUser(userID, start, end,
		[]domain.ScheduleStatus{domain.ScheduleScheduled, domain.ScheduleDue})
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	agreements, err := s.obligations.ListByUser(userID, false)
	if err != nil {
		return nil, fmt.Errorf("list agreements: %w", err)
	}
	byID := make(map[string]*domain.ObligationAgreement, len(agreements))
	for _, a := range agreements {
		byID[a.ID] = a
	}

	clientNames, err := s.clientNames(userID)
	if err != nil {
		return nil, err
	}
	bucketNames, err := s.bucketNames(userID)
	if err != nil {
		return nil, err
	}

	var events []domain.CashEvent
	for _, sched := range schedules {
		agreement, ok := byID[sched.ObligationID]
		if !ok {
			// Superseded agreement whose schedules were not yet regenerated;
			// skip rather than attribute cash to a stale contract.
			continue
		}

		direction := domain.DirectionOut
		eventType := domain.EventExpectedExpense
		sourceType := "obligation"
		sourceName := vendorOr(agreement, string(agreement.Type))

		if agreement.ClientID != nil {
			direction = domain.DirectionIn
			eventType = domain.EventExpectedRevenue
			sourceType = "client"
			if name, ok := clientNames[*agreement.ClientID]; ok {
				sourceName = name
			}
		} else if agreement.ExpenseBucketID != nil {
			sourceType = "expense"
			if name, ok := bucketNames[*agreement.ExpenseBucketID]; ok {
				sourceName = name
			}
		}

		confidence := sched.Confidence
		if confidence == "" {
			confidence = agreement.Confidence
		}

		events = append(events, domain.CashEvent{
			ID:                "obligation_" + agreement.ID + "_" + sched.ID,
			Date:              sched.DueDate,
			Amount:            sched.EstimatedAmount,
			Direction:         direction,
			Type:              eventType,
			Category:          agreement.Category,
			Confidence:        confidence,
			ConfidenceReason:  fmt.Sprintf("from obligation schedule (%s)", sched.EstimateSource),
			SourceID:          agreement.ID,
			SourceName:        sourceName,
			SourceType:        sourceType,
			IsRecurring:       agreement.Frequency != domain.FrequencyOneTime && agreement.Frequency != "",
			RecurrencePattern: agreement.Frequency,
		})
	}

	payments, err := s.obligations.ListPaymentsByUser(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	for _, p := range payments {
		if p.Status != domain.PaymentCompleted {
			continue
		}
		events = append(events, domain.CashEvent{
			ID:               "payment_" + p.ID,
			Date:             p.PaymentDate,
			Amount:           p.Amount,
			Direction:        domain.DirectionOut,
			Type:             domain.EventConfirmedExpense,
			Category:         "payment",
			Confidence:       domain.ConfidenceHigh,
			ConfidenceReason: "confirmed payment from bank",
			SourceID:         p.ID,
			SourceName:       vendorName(p),
			SourceType:       "payment",
		})
	}

	sortEvents(events)
	return events, nil
}

func (s *ObligationSource) clientNames(userID string) (map[string]string, error) {
	clients, err := s.clients.ListByUser(userID, false)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *ObligationSource) bucketNames(userID string) (map[string]string, error) {
	buckets, err := s.expenses.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list expense buckets: %w", err)
	}
	names := make(map[string]string, len(buckets))
	for _, b := range buckets {
		names[b.ID] = b.Name
	}
	return names, nil
}

func vendorOr(a *domain.ObligationAgreement, fallback string) string {
	if a.VendorName != nil && *a.VendorName != "" {
		return *a.VendorName
	}
	return fallback
}

func vendorName(p *domain.PaymentEvent) string {
	if p.VendorName != nil && *p.VendorName != "" {
		return *p.VendorName
	}
	return "payment"
}

func sortEvents(events []domain.CashEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID < events[j].ID
		}
		return events[i].Date.Before(events[j].Date)
	})
}

// StaticEventSource wraps an already materialized event set. The scenario
// pipeline uses it to recompute a forecast over an edited clone.
type StaticEventSource struct {
	Events []domain.CashEvent
}

// GenerateEvents returns the wrapped events filtered to the range.
func (s *StaticEventSource) GenerateEvents(_ context.Context, _ string, start, end time.Time) ([]domain.CashEvent, error) {
	var out []domain.CashEvent
	for _, e := range s.Events {
		if util.InRange(e.Date, start, end) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

var _ EventSource = (*LegacyClientExpenseSource)(nil)
var _ EventSource = (*ObligationSource)(nil)
var _ EventSource = (*StaticEventSource)(nil)
