package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
)

// Conversion is the result of converting an amount between currencies.
type Conversion struct {
	Amount   decimal.Decimal
	Rate     decimal.Decimal
	RateDate time.Time
}

// CurrencyConverter converts amounts to the user's base currency. It is
// called at obligation write time only; forecast and scenario computation
// never convert.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (Conversion, error)
}

// StaticCurrencyConverter converts through a fixed USD-relative rate table.
// It stands in for a live rates provider and honors context deadlines the
// same way a remote one would.
type StaticCurrencyConverter struct {
	rates map[string]decimal.Decimal // units per USD
}

// NewStaticCurrencyConverter creates a converter with the built-in table.
func NewStaticCurrencyConverter() *StaticCurrencyConverter {
	return &StaticCurrencyConverter{
		rates: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(1),
			"EUR": decimal.NewFromFloat(0.92),
			"GBP": decimal.NewFromFloat(0.79),
			"CAD": decimal.NewFromFloat(1.36),
			"AUD": decimal.NewFromFloat(1.52),
			"NZD": decimal.NewFromFloat(1.66),
		},
	}
}

func (c *StaticCurrencyConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (Conversion, error) {
	if err := ctx.Err(); err != nil {
		return Conversion{}, fmt.Errorf("%w: currency rates: %v", domain.ErrUpstreamUnavailable, err)
	}

	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to || from == "" || to == "" {
		return Conversion{Amount: amount, Rate: decimal.NewFromInt(1), RateDate: asOf}, nil
	}

	fromRate, ok := c.rates[from]
	if !ok {
		return Conversion{}, fmt.Errorf("%w: no rate for currency %q", domain.ErrUpstreamUnavailable, from)
	}
	toRate, ok := c.rates[to]
	if !ok {
		return Conversion{}, fmt.Errorf("%w: no rate for currency %q", domain.ErrUpstreamUnavailable, to)
	}

	rate := toRate.Div(fromRate)
	return Conversion{
		Amount:   amount.Mul(rate),
		Rate:     rate,
		RateDate: asOf,
	}, nil
}

var _ CurrencyConverter = (*StaticCurrencyConverter)(nil)
