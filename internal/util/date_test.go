package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tamio/tamio-backend/internal/domain"
)

func TestCalculateActualDate_NormalDay(t *testing.T) {
	result := CalculateActualDate(2026, time.January, 15)
	assert.Equal(t, 15, result.Day())
	assert.Equal(t, time.January, result.Month())
}

func TestCalculateActualDate_Day31InFebruary(t *testing.T) {
	result := CalculateActualDate(2026, time.February, 31)
	assert.Equal(t, 28, result.Day()) // 2026 is not a leap year
	assert.Equal(t, time.February, result.Month())
}

func TestCalculateActualDate_Day31InApril(t *testing.T) {
	result := CalculateActualDate(2026, time.April, 31)
	assert.Equal(t, 30, result.Day())
}

func TestCalculateActualDate_InvalidDayClampedTo1(t *testing.T) {
	assert.Equal(t, 1, CalculateActualDate(2026, time.March, 0).Day())
	assert.Equal(t, 1, CalculateActualDate(2026, time.March, -5).Day())
}

func TestStepFrequency(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, start.AddDate(0, 0, 7), StepFrequency(start, domain.FrequencyWeekly))
	assert.Equal(t, start.AddDate(0, 0, 14), StepFrequency(start, domain.FrequencyBiWeekly))
	assert.Equal(t, start.AddDate(0, 1, 0), StepFrequency(start, domain.FrequencyMonthly))
	assert.Equal(t, start.AddDate(0, 3, 0), StepFrequency(start, domain.FrequencyQuarterly))
	assert.Equal(t, start.AddDate(1, 0, 0), StepFrequency(start, domain.FrequencyAnnually))
	// Unknown frequency steps monthly
	assert.Equal(t, start.AddDate(0, 1, 0), StepFrequency(start, domain.Frequency("")))
}

func TestParsePaymentTerms(t *testing.T) {
	assert.Equal(t, 30, ParsePaymentTerms("net_30", 14))
	assert.Equal(t, 0, ParsePaymentTerms("net_0", 14))
	assert.Equal(t, 7, ParsePaymentTerms("net_7", 30))
	assert.Equal(t, 14, ParsePaymentTerms("", 14))
	assert.Equal(t, 14, ParsePaymentTerms("whenever", 14))
}

func TestDay(t *testing.T) {
	ts := time.Date(2026, 5, 3, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), Day(ts))
}

func TestInRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, InRange(start, start, end))
	assert.True(t, InRange(end, start, end))
	assert.True(t, InRange(start.AddDate(0, 1, 0), start, end))
	assert.False(t, InRange(start.AddDate(0, 0, -1), start, end))
	assert.False(t, InRange(end.AddDate(0, 0, 1), start, end))
}
