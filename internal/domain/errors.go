package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrClientNotFound     = errors.New("client not found")
	ErrExpenseNotFound    = errors.New("expense bucket not found")
	ErrObligationNotFound = errors.New("obligation not found")
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrScenarioNotFound   = errors.New("scenario not found")
	ErrRuleNotFound       = errors.New("rule not found")
	ErrTriggerNotFound    = errors.New("trigger not found")

	// ErrScopeNotFound means a scenario references a client or expense bucket
	// that no longer exists. The scenario build must fail rather than silently
	// produce a comparison against an unedited forecast.
	ErrScopeNotFound = errors.New("scenario scope not found")

	// ErrInsufficientData means a behavior metric cannot be computed from the
	// available data (e.g. zero total revenue for concentration).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUpstreamUnavailable means an external dependency (store, currency
	// rates) timed out or is unreachable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvariantViolation marks a programming defect, never a user-facing
	// condition: negative cash magnitudes, week balances that do not chain.
	ErrInvariantViolation = errors.New("invariant violation")

	ErrScenarioDiscarded = errors.New("scenario is discarded")
	ErrScenarioCycle     = errors.New("scenario parent chain contains a cycle")
)

// LayerError reports which layer of a scenario chain failed to apply.
// A broken intermediate layer invalidates every layer after it, so the
// whole build aborts with this error.
type LayerError struct {
	Layer      int
	ScenarioID string
	Err        error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("scenario layer %d (%s): %v", e.Layer, e.ScenarioID, e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}

// Validation constants
const (
	MaxNameLength = 255
)
