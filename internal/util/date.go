package util

import (
	"strconv"
	"strings"
	"time"

	"github.com/tamio/tamio-backend/internal/domain"
)

// Day truncates a time to UTC midnight. All schedule and event dates are
// plain days.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CalculateActualDate returns the date for a target day in a given month,
// handling months with fewer days (day 31 in February returns Feb 28/29).
func CalculateActualDate(year int, month time.Month, targetDay int) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	actualDay := targetDay
	if actualDay > lastDay {
		actualDay = lastDay
	}
	if actualDay < 1 {
		actualDay = 1
	}

	return time.Date(year, month, actualDay, 0, 0, 0, 0, time.UTC)
}

// StepFrequency advances a date by one billing period.
func StepFrequency(t time.Time, freq domain.Frequency) time.Time {
	switch freq {
	case domain.FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case domain.FrequencyBiWeekly:
		return t.AddDate(0, 0, 14)
	case domain.FrequencyQuarterly:
		return t.AddDate(0, 3, 0)
	case domain.FrequencyAnnually:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// ParsePaymentTerms turns a "net_N" string into a day count. Unparseable
// terms fall back to the given default.
func ParsePaymentTerms(terms string, defaultDays int) int {
	if terms == "" {
		return defaultDays
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(terms, "net_")); err == nil && n >= 0 {
		return n
	}
	return defaultDays
}

// InRange reports start <= t <= end.
func InRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
