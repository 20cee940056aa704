package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
)

// decimalHundred is shared by the percentage math in this package.
var decimalHundred = decimal.NewFromInt(100)

// Snapshot is the read-only view of a user's data that every behavior metric
// computes from. Metrics never reach outside it, which is what makes them
// safe to dispatch concurrently.
type Snapshot struct {
	UserID       string
	Now          time.Time
	StartingCash decimal.Decimal
	Forecast     *domain.ForecastResponse
	Clients      []*domain.Client
	Buckets      []*domain.ExpenseBucket
	Schedules    []*domain.ObligationSchedule
	Agreements   map[string]*domain.ObligationAgreement

	// BufferTargetMonths comes from the user's active buffer rule,
	// defaulting to 3 when none is configured.
	BufferTargetMonths int
}

// MetricFunc computes one behavior metric from a snapshot.
type MetricFunc func(*Snapshot) domain.MetricResult

// MetricRegistry maps every metric kind to its computation. Each entry is a
// pure function of the snapshot and does not read any other metric's output.
var MetricRegistry = map[domain.MetricKind]MetricFunc{
	domain.MetricForecastConfidence:  computeForecastConfidence,
	domain.MetricBufferBreach:        computeBufferBreach,
	domain.MetricHealthScore:         computeHealthScore,
	domain.MetricClientConcentration: computeConcentration,
	domain.MetricRevenueAtRisk:       computeRevenueAtRisk,
	domain.MetricPaymentReliability:  computeReliability,
	domain.MetricExpenseVolatility:   computeVolatility,
	domain.MetricDiscretionaryRatio:  computeDiscretionary,
	domain.MetricUpcomingCommitments: computeCommitments,
	domain.MetricBufferIntegrity:     computeBufferIntegrity,
	domain.MetricBufferTrend:         computeBufferTrend,
	domain.MetricReactiveDecisions:   computeReactiveDecisions,
}

func metricValue(kind domain.MetricKind, now time.Time, value interface{}) domain.MetricResult {
	return domain.MetricResult{Kind: kind, Value: value, ComputedAt: now}
}

func metricInsufficient(kind domain.MetricKind, now time.Time, reason string) domain.MetricResult {
	return domain.MetricResult{Kind: kind, Insufficient: true, Reason: reason, ComputedAt: now}
}

// computeForecastConfidence is the amount-weighted confidence of the whole
// forecast: high counts 1.0, medium 0.8, low 0.5.
func computeForecastConfidence(s *Snapshot) domain.MetricResult {
	if s.Forecast == nil {
		return metricInsufficient(domain.MetricForecastConfidence, s.Now, "no forecast available")
	}

	high := decimal.Zero
	medium := decimal.Zero
	low := decimal.Zero
	for _, w := range s.Forecast.ProjectionWeeks() {
		high = high.Add(w.CashInByTier.High).Add(w.CashOutByTier.High)
		medium = medium.Add(w.CashInByTier.Medium).Add(w.CashOutByTier.Medium)
		low = low.Add(w.CashInByTier.Low).Add(w.CashOutByTier.Low)
	}
	total := high.Add(medium).Add(low)
	if !total.IsPositive() {
		return metricInsufficient(domain.MetricForecastConfidence, s.Now, "no cash events in forecast")
	}

	weighted := high.Mul(domain.ConfidenceHigh.Weight()).
		Add(medium.Mul(domain.ConfidenceMedium.Weight())).
		Add(low.Mul(domain.ConfidenceLow.Weight()))
	pct := weighted.Div(total).Mul(decimalHundred)

	level := domain.ConfidenceLow
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(80)):
		level = domain.ConfidenceHigh
	case pct.GreaterThanOrEqual(decimal.NewFromInt(60)):
		level = domain.ConfidenceMedium
	}

	return metricValue(domain.MetricForecastConfidence, s.Now, domain.ForecastConfidenceResult{
		Percentage:   pct,
		Level:        level,
		HighAmount:   high,
		MediumAmount: medium,
		LowAmount:    low,
	})
}

// computeBufferBreach classifies the forecast's lowest balance against the
// buffer target: healthy at or above target, at risk between zero and
// target, breach at or below zero.
func computeBufferBreach(s *Snapshot) domain.MetricResult {
	if s.Forecast == nil {
		return metricInsufficient(domain.MetricBufferBreach, s.Now, "no forecast available")
	}

	target := bufferTarget(s)
	lowest := s.Forecast.Summary.LowestCashAmount

	status := domain.BufferHealthy
	switch {
	case lowest.LessThanOrEqual(decimal.Zero):
		status = domain.BufferBreach
	case lowest.LessThan(target):
		status = domain.BufferAtRisk
	}

	return metricValue(domain.MetricBufferBreach, s.Now, domain.BufferBreachResult{
		Status:        status,
		LowestBalance: lowest,
		LowestWeek:    s.Forecast.Summary.LowestCashWeek,
		Target:        target,
	})
}

// computeHealthScore is the mean of three sub-scores, each 0-100: income
// diversification, expense stability, and cash discipline.
func computeHealthScore(s *Snapshot) domain.MetricResult {
	income, ok := diversificationScore(s.Clients)
	if !ok {
		return metricInsufficient(domain.MetricHealthScore, s.Now, "no active revenue to score")
	}
	expense := stabilityScore(s.Buckets)
	discipline := disciplineScore(s)

	score := income.Add(expense).Add(discipline).Div(decimal.NewFromInt(3))
	return metricValue(domain.MetricHealthScore, s.Now, domain.HealthScoreResult{
		Score:           score,
		IncomeScore:     income,
		ExpenseScore:    expense,
		DisciplineScore: discipline,
	})
}

// computeConcentration scores revenue diversification with the
// Herfindahl-Hirschman index over client revenue shares.
func computeConcentration(s *Snapshot) domain.MetricResult {
	shares, total := revenueShares(s.Clients)
	if !total.IsPositive() {
		return metricInsufficient(domain.MetricClientConcentration, s.Now, "zero total revenue")
	}

	hhi := decimal.Zero
	for i := range shares {
		hhi = hhi.Add(shares[i].Share.Mul(shares[i].Share))
		switch {
		case shares[i].Share.GreaterThan(decimal.NewFromFloat(0.40)):
			shares[i].Flag = "critical"
		case shares[i].Share.GreaterThan(decimal.NewFromFloat(0.25)):
			shares[i].Flag = "warn"
		}
	}
	score := decimal.NewFromInt(1).Sub(hhi).Mul(decimalHundred)

	return metricValue(domain.MetricClientConcentration, s.Now, domain.ConcentrationResult{
		HHI:    hhi,
		Score:  score,
		Shares: shares,
	})
}

// riskWindow30Factor scales risk probability down for the nearer window.
var (
	riskWindow30Factor    = decimal.NewFromFloat(0.6)
	riskThreshold30       = decimal.NewFromFloat(0.15)
	riskThreshold60       = decimal.NewFromFloat(0.10)
)

// computeRevenueAtRisk sums monthly revenue from clients whose probability
// of non-payment exceeds the window threshold.
func computeRevenueAtRisk(s *Snapshot) domain.MetricResult {
	active := activeClients(s.Clients)
	if len(active) == 0 {
		return metricInsufficient(domain.MetricRevenueAtRisk, s.Now, "no active clients")
	}

	at30 := decimal.Zero
	at60 := decimal.Zero
	var atRisk []domain.ClientAtRisk

	for _, c := range active {
		monthly := c.MonthlyRevenue()
		if !monthly.IsPositive() {
			continue
		}
		reliability := behaviorProfile(c.PaymentBehavior).Score
		baseProb := decimal.NewFromInt(1).Sub(reliability.Div(decimalHundred))

		prob30 := baseProb.Mul(riskWindow30Factor)
		if prob30.GreaterThan(riskThreshold30) {
			at30 = at30.Add(monthly)
			atRisk = append(atRisk, domain.ClientAtRisk{
				ClientID: c.ID, Name: c.Name, MonthlyAmount: monthly, RiskProb: prob30, Window: 30,
			})
		}
		if baseProb.GreaterThan(riskThreshold60) {
			at60 = at60.Add(monthly)
			atRisk = append(atRisk, domain.ClientAtRisk{
				ClientID: c.ID, Name: c.Name, MonthlyAmount: monthly, RiskProb: baseProb, Window: 60,
			})
		}
	}

	return metricValue(domain.MetricRevenueAtRisk, s.Now, domain.RevenueAtRiskResult{
		At30Days: at30,
		At60Days: at60,
		Clients:  atRisk,
	})
}

// behaviorStats is the reliability lookup row for one payment behavior.
type behaviorStats struct {
	MeanDelay decimal.Decimal
	Variance  decimal.Decimal
	Trend     string
	Score     decimal.Decimal
}

func behaviorProfile(b domain.PaymentBehavior) behaviorStats {
	switch b {
	case domain.PaymentBehaviorOnTime:
		return behaviorStats{
			MeanDelay: decimal.NewFromFloat(1.2),
			Variance:  decimal.NewFromFloat(2.5),
			Trend:     "stable",
			Score:     decimal.NewFromInt(92),
		}
	case domain.PaymentBehaviorDelayed:
		return behaviorStats{
			MeanDelay: decimal.NewFromFloat(12.5),
			Variance:  decimal.NewFromFloat(18.0),
			Trend:     "worsening",
			Score:     decimal.NewFromInt(58),
		}
	default:
		return behaviorStats{
			MeanDelay: decimal.NewFromFloat(6.0),
			Variance:  decimal.NewFromFloat(10.0),
			Trend:     "unknown",
			Score:     decimal.NewFromInt(70),
		}
	}
}

// computeReliability scores payment punctuality per client and
// revenue-weights the overall figure.
func computeReliability(s *Snapshot) domain.MetricResult {
	active := activeClients(s.Clients)
	if len(active) == 0 {
		return metricInsufficient(domain.MetricPaymentReliability, s.Now, "no active clients")
	}

	totalRevenue := decimal.Zero
	weighted := decimal.Zero
	clients := make([]domain.ClientReliability, 0, len(active))

	for _, c := range active {
		stats := behaviorProfile(c.PaymentBehavior)
		monthly := c.MonthlyRevenue()

		clients = append(clients, domain.ClientReliability{
			ClientID:  c.ID,
			Name:      c.Name,
			MeanDelay: stats.MeanDelay,
			Variance:  stats.Variance,
			Trend:     stats.Trend,
			Score:     stats.Score,
		})
		totalRevenue = totalRevenue.Add(monthly)
		weighted = weighted.Add(stats.Score.Mul(monthly))
	}

	overall := decimal.NewFromInt(70)
	if totalRevenue.IsPositive() {
		overall = weighted.Div(totalRevenue)
	}

	return metricValue(domain.MetricPaymentReliability, s.Now, domain.ReliabilityResult{
		OverallScore: overall,
		Clients:      clients,
	})
}

// computeVolatility scores expense predictability: per category, the share
// of unstable buckets; overall, 100 minus the mean category index.
func computeVolatility(s *Snapshot) domain.MetricResult {
	if len(s.Buckets) == 0 {
		return metricInsufficient(domain.MetricExpenseVolatility, s.Now, "no expense buckets")
	}

	type counts struct{ total, unstable int }
	byCategory := make(map[domain.ExpenseCategory]*counts)
	var order []domain.ExpenseCategory
	for _, b := range s.Buckets {
		c, ok := byCategory[b.Category]
		if !ok {
			c = &counts{}
			byCategory[b.Category] = c
			order = append(order, b.Category)
		}
		c.total++
		if !b.IsStable || b.Type == domain.BucketTypeVariable {
			c.unstable++
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	indexSum := decimal.Zero
	categories := make([]domain.CategoryVolatility, 0, len(order))
	for _, cat := range order {
		c := byCategory[cat]
		index := decimal.NewFromInt(int64(c.unstable)).
			Div(decimal.NewFromInt(int64(c.total))).
			Mul(decimalHundred)
		categories = append(categories, domain.CategoryVolatility{Category: cat, Index: index})
		indexSum = indexSum.Add(index)
	}
	overall := decimalHundred.Sub(indexSum.Div(decimal.NewFromInt(int64(len(order)))))

	return metricValue(domain.MetricExpenseVolatility, s.Now, domain.VolatilityResult{
		OverallScore: overall,
		Categories:   categories,
	})
}

// delayableShare of discretionary spend assumed realistically deferrable.
var delayableShare = decimal.NewFromFloat(0.7)

func computeDiscretionary(s *Snapshot) domain.MetricResult {
	if len(s.Buckets) == 0 {
		return metricInsufficient(domain.MetricDiscretionaryRatio, s.Now, "no expense buckets")
	}

	discretionary := decimal.Zero
	committed := decimal.Zero
	for _, b := range s.Buckets {
		if b.Category.IsNonDiscretionary() || b.Priority == "essential" {
			committed = committed.Add(b.MonthlyAmount)
		} else {
			discretionary = discretionary.Add(b.MonthlyAmount)
		}
	}
	total := discretionary.Add(committed)
	if !total.IsPositive() {
		return metricInsufficient(domain.MetricDiscretionaryRatio, s.Now, "zero total spend")
	}

	return metricValue(domain.MetricDiscretionaryRatio, s.Now, domain.DiscretionaryResult{
		DiscretionaryTotal:    discretionary,
		NonDiscretionaryTotal: committed,
		Ratio:                 discretionary.Div(total).Mul(decimalHundred),
		Delayable:             discretionary.Mul(delayableShare),
	})
}

// computeCommitments lists schedules due within 30 days, soonest first,
// capped at ten items.
func computeCommitments(s *Snapshot) domain.MetricResult {
	cutoff := s.Now.AddDate(0, 0, 30)

	var items []domain.UpcomingCommitment
	total := decimal.Zero
	for _, sched := range s.Schedules {
		if sched.DueDate.After(cutoff) || sched.DueDate.Before(s.Now.AddDate(0, 0, -1)) {
			continue
		}
		if sched.Status != domain.ScheduleScheduled && sched.Status != domain.ScheduleDue {
			continue
		}

		vendor := "unknown"
		category := domain.CategoryOther
		if agreement, ok := s.Agreements[sched.ObligationID]; ok {
			if agreement.IsInflow() {
				continue
			}
			category = agreement.Category
			if agreement.VendorName != nil {
				vendor = *agreement.VendorName
			}
		}

		items = append(items, domain.UpcomingCommitment{
			ScheduleID: sched.ID,
			VendorName: vendor,
			Category:   category,
			DueDate:    sched.DueDate,
			Amount:     sched.EstimatedAmount,
			Delayable:  !category.IsNonDiscretionary(),
		})
		total = total.Add(sched.EstimatedAmount)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].DueDate.Before(items[j].DueDate) })
	if len(items) > 10 {
		items = items[:10]
	}

	return metricValue(domain.MetricUpcomingCommitments, s.Now, domain.CommitmentsResult{
		Total: total,
		Items: items,
	})
}

// computeBufferIntegrity scores current cash against the buffer target. The
// score may exceed 100 when the buffer is overfunded.
func computeBufferIntegrity(s *Snapshot) domain.MetricResult {
	target := bufferTarget(s)
	if !target.IsPositive() {
		return metricInsufficient(domain.MetricBufferIntegrity, s.Now, "no expense data to derive buffer target")
	}

	score := s.StartingCash.Div(target).Mul(decimalHundred)
	status := domain.BufferHealthy
	switch {
	case score.LessThan(decimal.NewFromInt(70)):
		status = domain.BufferCritical
	case score.LessThan(decimalHundred):
		status = domain.BufferAtRisk
	}

	return metricValue(domain.MetricBufferIntegrity, s.Now, domain.BufferIntegrityResult{
		Score:   score,
		Status:  status,
		Current: s.StartingCash,
		Target:  target,
	})
}

// trendThreshold separates a real build/burn from week-to-week noise.
var trendThreshold = decimal.NewFromInt(100)

func computeBufferTrend(s *Snapshot) domain.MetricResult {
	if s.Forecast == nil {
		return metricInsufficient(domain.MetricBufferTrend, s.Now, "no forecast available")
	}
	weeks := s.Forecast.ProjectionWeeks()
	if len(weeks) < 2 {
		return metricInsufficient(domain.MetricBufferTrend, s.Now, "not enough weeks to derive a trend")
	}

	deltaSum := decimal.Zero
	for i := 1; i < len(weeks); i++ {
		deltaSum = deltaSum.Add(weeks[i].EndingBalance.Sub(weeks[i-1].EndingBalance))
	}
	avgDelta := deltaSum.Div(decimal.NewFromInt(int64(len(weeks) - 1)))

	result := domain.BufferTrendResult{Direction: domain.TrendStable, WeeklyDelta: avgDelta}
	switch {
	case avgDelta.GreaterThan(trendThreshold):
		result.Direction = domain.TrendBuilding
	case avgDelta.LessThan(trendThreshold.Neg()):
		result.Direction = domain.TrendBurning
		if s.StartingCash.IsPositive() {
			runway := s.StartingCash.Div(avgDelta.Abs())
			result.RunwayWeeks = &runway
		}
	}

	return metricValue(domain.MetricBufferTrend, s.Now, result)
}

// computeReactiveDecisions needs activity-correlation data that is not
// collected yet.
func computeReactiveDecisions(s *Snapshot) domain.MetricResult {
	return metricInsufficient(domain.MetricReactiveDecisions, s.Now, "activity log not yet collected")
}

// bufferTarget is the minimum cash reserve: configured months of monthly
// expenses, derived from the forecast's observed outflow.
func bufferTarget(s *Snapshot) decimal.Decimal {
	months := s.BufferTargetMonths
	if months <= 0 {
		months = 3
	}
	monthly := decimal.Zero
	if s.Forecast != nil {
		monthly = MonthlyExpenseRate(s.Forecast)
	}
	if !monthly.IsPositive() {
		// Fall back to bucket configuration when the forecast has no outflow.
		for _, b := range s.Buckets {
			monthly = monthly.Add(b.MonthlyAmount)
		}
	}
	return monthly.Mul(decimal.NewFromInt(int64(months)))
}

func activeClients(clients []*domain.Client) []*domain.Client {
	var out []*domain.Client
	for _, c := range clients {
		if c.Status == domain.ClientStatusActive {
			out = append(out, c)
		}
	}
	return out
}

func revenueShares(clients []*domain.Client) ([]domain.ClientShare, decimal.Decimal) {
	active := activeClients(clients)
	total := decimal.Zero
	monthly := make([]decimal.Decimal, len(active))
	for i, c := range active {
		monthly[i] = c.MonthlyRevenue()
		total = total.Add(monthly[i])
	}
	if !total.IsPositive() {
		return nil, decimal.Zero
	}

	shares := make([]domain.ClientShare, 0, len(active))
	for i, c := range active {
		if !monthly[i].IsPositive() {
			continue
		}
		shares = append(shares, domain.ClientShare{
			ClientID: c.ID,
			Name:     c.Name,
			Share:    monthly[i].Div(total),
		})
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].Share.GreaterThan(shares[j].Share) })
	return shares, total
}

// diversificationScore is the concentration score reused as the income
// sub-score of health, recomputed here from raw data.
func diversificationScore(clients []*domain.Client) (decimal.Decimal, bool) {
	shares, total := revenueShares(clients)
	if !total.IsPositive() {
		return decimal.Zero, false
	}
	hhi := decimal.Zero
	for _, sh := range shares {
		hhi = hhi.Add(sh.Share.Mul(sh.Share))
	}
	return decimal.NewFromInt(1).Sub(hhi).Mul(decimalHundred), true
}

func stabilityScore(buckets []*domain.ExpenseBucket) decimal.Decimal {
	if len(buckets) == 0 {
		return decimal.NewFromInt(50)
	}
	stable := 0
	for _, b := range buckets {
		if b.IsStable && b.Type == domain.BucketTypeFixed {
			stable++
		}
	}
	return decimal.NewFromInt(int64(stable)).
		Div(decimal.NewFromInt(int64(len(buckets)))).
		Mul(decimalHundred)
}

// disciplineScore is buffer integrity clamped to 100.
func disciplineScore(s *Snapshot) decimal.Decimal {
	target := bufferTarget(s)
	if !target.IsPositive() {
		return decimal.NewFromInt(50)
	}
	score := s.StartingCash.Div(target).Mul(decimalHundred)
	if score.GreaterThan(decimalHundred) {
		return decimalHundred
	}
	if score.IsNegative() {
		return decimal.Zero
	}
	return score
}
