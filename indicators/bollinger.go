package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tradebot/market"
)

// Bollinger calculates Bollinger Bands over the last `period` closes:
// a simple moving average plus/minus stdDev population standard
// deviations. Returns (lower, middle, upper).
func Bollinger(candles []market.Candle, period int, stdDev float64) (lower, middle, upper float64, err error) {
	if period <= 0 {
		return 0, 0, 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(candles) < period {
		return 0, 0, 0, fmt.Errorf("%w: Bollinger(%d) got %d candles",
			ErrInsufficientHistory, period, len(candles))
	}

	tail := candles[len(candles)-period:]

	mean := 0.0
	for _, c := range tail {
		mean += c.Close
	}
	mean /= float64(period)

	variance := 0.0
	for _, c := range tail {
		d := c.Close - mean
		variance += d * d
	}
	variance /= float64(period)
	sigma := math.Sqrt(variance)

	return mean - stdDev*sigma, mean, mean + stdDev*sigma, nil
}
