// Package risk implements position sizing, the per-position stop
// tracker, and the pre-trade entry gate with its daily-loss circuit
// breaker.
package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidStopDistance reports a stop on the wrong side of (or equal
// to) the entry price. This is a config/programming defect: it must
// block order placement, never silently size to zero.
var ErrInvalidStopDistance = errors.New("risk: stop distance must be positive")

// SizeInputs parameterize a position-size calculation.
type SizeInputs struct {
	Equity     float64
	RiskPct    float64 // fraction of equity risked if the stop is hit, e.g. 0.02
	EntryPrice float64
	StopPrice  float64
	Increment  float64 // minimum tradable increment; 0 means whole units
}

// Size is the result of a position-size calculation.
type Size struct {
	Quantity    float64 // floored to the instrument increment
	RiskPerUnit float64
	RiskAmount  float64 // equity * riskPct
	Notional    float64 // quantity * entry price
}

// Calculate converts account equity and a risk percentage into an
// order quantity: riskAmount / |entry - stop|, floored to the
// instrument's minimum tradable increment.
func Calculate(in SizeInputs) (Size, error) {
	riskPerUnit := in.EntryPrice - in.StopPrice
	if riskPerUnit < 0 {
		riskPerUnit = -riskPerUnit
	}
	if riskPerUnit <= 0 {
		return Size{}, fmt.Errorf("%w: entry=%v stop=%v", ErrInvalidStopDistance, in.EntryPrice, in.StopPrice)
	}

	riskAmount := in.Equity * in.RiskPct
	quantity := floorToIncrement(riskAmount/riskPerUnit, in.Increment)

	return Size{
		Quantity:    quantity,
		RiskPerUnit: riskPerUnit,
		RiskAmount:  riskAmount,
		Notional:    quantity * in.EntryPrice,
	}, nil
}

// floorToIncrement rounds qty down to a multiple of inc using exact
// decimal arithmetic so 13.999999 at inc=1 stays 13, not 14.
func floorToIncrement(qty, inc float64) float64 {
	if inc <= 0 {
		inc = 1
	}
	q := decimal.NewFromFloat(qty)
	i := decimal.NewFromFloat(inc)
	f, _ := q.Div(i).Floor().Mul(i).Float64()
	return f
}
