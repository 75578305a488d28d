// Package market defines candle data for the decision engine.
package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrDataGap reports a candle series whose timestamps are not an
// uninterrupted, strictly increasing grid at the series granularity.
// Callers treat the affected cycle as skipped; retry/backoff belongs
// to the adapter that produced the data.
var ErrDataGap = errors.New("market: gap in candle series")

// Candle is one OHLCV bar for a fixed time granularity.
// Immutable once recorded.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Time   time.Time
}

// Series is an ordered candle sequence for a single instrument at a
// fixed granularity. Timestamps must be strictly increasing.
type Series struct {
	Instrument  string
	Granularity time.Duration
	Candles     []Candle
}

// NewSeries wraps candles in a Series. It does not validate; call
// Validate before feeding the series to indicators.
func NewSeries(instrument string, granularity time.Duration, candles []Candle) *Series {
	return &Series{
		Instrument:  instrument,
		Granularity: granularity,
		Candles:     candles,
	}
}

// Len returns the number of candles.
func (s *Series) Len() int { return len(s.Candles) }

// Last returns the most recent candle.
func (s *Series) Last() Candle {
	return s.Candles[len(s.Candles)-1]
}

// Window returns the candles up to and including index i, at most n of
// them. Backtests use this to guarantee no lookahead.
func (s *Series) Window(i, n int) []Candle {
	if i >= len(s.Candles) {
		i = len(s.Candles) - 1
	}
	lo := i + 1 - n
	if lo < 0 {
		lo = 0
	}
	return s.Candles[lo : i+1]
}

// Validate checks timestamp ordering and spacing. Consecutive candles
// may be at most maxGap granularity intervals apart (1 means perfectly
// contiguous). A non-increasing timestamp or an oversized gap returns
// ErrDataGap with position detail.
func (s *Series) Validate(maxGap int) error {
	if s.Granularity <= 0 {
		return fmt.Errorf("market: series %s has no granularity", s.Instrument)
	}
	if maxGap < 1 {
		maxGap = 1
	}
	for i := 1; i < len(s.Candles); i++ {
		dt := s.Candles[i].Time.Sub(s.Candles[i-1].Time)
		if dt <= 0 {
			return fmt.Errorf("%w: %s candle %d not after %d", ErrDataGap, s.Instrument, i, i-1)
		}
		if dt > time.Duration(maxGap)*s.Granularity {
			return fmt.Errorf("%w: %s missing %d bars before candle %d",
				ErrDataGap, s.Instrument, int(dt/s.Granularity)-1, i)
		}
	}
	return nil
}
