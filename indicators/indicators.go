// Package indicators provides technical analysis computations over
// ordered candle windows. All functions are deterministic and safe to
// use in live, replay, and backtests.
package indicators

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/tradebot/market"
)

// ErrInsufficientHistory reports a candle window shorter than the
// longest lookback an indicator needs. Callers must not proceed to
// signal generation on this error; the cycle is skipped instead.
var ErrInsufficientHistory = errors.New("indicators: insufficient candle history")

// Params holds the lookback configuration for the indicator set.
type Params struct {
	RSIPeriod    int     // 14
	EMAFast      int     // 12
	EMASlow      int     // 26
	BBPeriod     int     // 20
	BBStdDev     float64 // 2.0
	VolumePeriod int     // 20
}

// DefaultParams returns the standard indicator periods.
func DefaultParams() Params {
	return Params{
		RSIPeriod:    14,
		EMAFast:      12,
		EMASlow:      26,
		BBPeriod:     20,
		BBStdDev:     2.0,
		VolumePeriod: 20,
	}
}

// MinHistory returns the number of candles needed before a Snapshot
// can be computed. RSI needs one extra candle for the first delta.
func (p Params) MinHistory() int {
	n := p.RSIPeriod + 1
	for _, v := range []int{p.EMAFast, p.EMASlow, p.BBPeriod, p.VolumePeriod} {
		if v > n {
			n = v
		}
	}
	return n
}

// Snapshot holds the per-candle indicator values derived for the most
// recent candle of a window. It is never persisted independently of
// the candle it was derived from.
type Snapshot struct {
	RSI         float64
	EMAFast     float64
	EMASlow     float64
	BBLower     float64
	BBMiddle    float64
	BBUpper     float64
	VolumeRatio float64
}

// Compute derives a Snapshot for the last candle of the window.
// Returns ErrInsufficientHistory when the window is shorter than
// Params.MinHistory().
func Compute(candles []market.Candle, p Params) (Snapshot, error) {
	if need := p.MinHistory(); len(candles) < need {
		return Snapshot{}, fmt.Errorf("%w: need %d candles, got %d",
			ErrInsufficientHistory, need, len(candles))
	}

	rsi, err := RSI(candles, p.RSIPeriod)
	if err != nil {
		return Snapshot{}, err
	}
	fast, err := EMA(candles, p.EMAFast)
	if err != nil {
		return Snapshot{}, err
	}
	slow, err := EMA(candles, p.EMASlow)
	if err != nil {
		return Snapshot{}, err
	}
	lower, middle, upper, err := Bollinger(candles, p.BBPeriod, p.BBStdDev)
	if err != nil {
		return Snapshot{}, err
	}
	vr, err := VolumeRatio(candles, p.VolumePeriod)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		RSI:         rsi,
		EMAFast:     fast,
		EMASlow:     slow,
		BBLower:     lower,
		BBMiddle:    middle,
		BBUpper:     upper,
		VolumeRatio: vr,
	}, nil
}
