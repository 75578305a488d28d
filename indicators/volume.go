package indicators

import (
	"fmt"

	"github.com/rustyeddy/tradebot/market"
)

// VolumeRatio calculates current volume divided by the trailing
// `period` average volume. The current candle is part of the trailing
// window. A zero average yields ratio 0.
func VolumeRatio(candles []market.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(candles) < period {
		return 0, fmt.Errorf("%w: VolumeRatio(%d) got %d candles",
			ErrInsufficientHistory, period, len(candles))
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	avg := sum / float64(period)
	if avg <= 0 {
		return 0, nil
	}
	return candles[len(candles)-1].Volume / avg, nil
}
