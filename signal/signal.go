// Package signal combines indicator snapshots into directional
// trading signals with a confirmation count.
package signal

import (
	"log/slog"
	"time"

	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/market"
)

// Direction of a signal.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	None Direction = "NONE"
)

// Confirmation names recorded on a signal, one per agreeing indicator.
const (
	ConfirmRSI       = "rsi"
	ConfirmEMACross  = "ema_cross"
	ConfirmBollinger = "bollinger"
	ConfirmVolume    = "volume"
)

// Signal is the aggregator's verdict for one candle of one instrument.
// Ephemeral unless a trade results.
type Signal struct {
	Instrument    string
	Direction     Direction
	Confirmations []string
	Price         float64
	StopLoss      float64
	TakeProfit    float64
	Time          time.Time
}

// Thresholds parameterize the four entry conditions.
type Thresholds struct {
	RSIOversold      float64 // 20
	RSIOverbought    float64 // 80
	BBProximity      float64 // 0.15: fraction of band width counted as "near"
	VolumeMultiplier float64 // 2.5
	MinConfirmations int     // 3
	StopLossPct      float64 // stop distance attached to BUY signals
	TakeProfitPct    float64 // target distance attached to BUY signals
}

// DefaultThresholds returns the standard aggregator settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIOversold:      20,
		RSIOverbought:    80,
		BBProximity:      0.15,
		VolumeMultiplier: 2.5,
		MinConfirmations: 3,
		StopLossPct:      0.025,
		TakeProfitPct:    0.04,
	}
}

// Aggregator evaluates indicator snapshots candle by candle. The EMA
// crossover condition is edge-triggered, so the aggregator keeps the
// previous snapshot per instrument in a two-slot rolling buffer.
type Aggregator struct {
	cfg  Thresholds
	log  *slog.Logger
	prev map[string]indicators.Snapshot
}

// NewAggregator builds an aggregator. A nil logger falls back to the
// default slog logger.
func NewAggregator(cfg Thresholds, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		cfg:  cfg,
		log:  log,
		prev: make(map[string]indicators.Snapshot),
	}
}

// Reset drops all remembered snapshots. A fresh run requires a fresh
// crossover buffer.
func (a *Aggregator) Reset() {
	a.prev = make(map[string]indicators.Snapshot)
}

// Evaluate produces the signal for the candle the snapshot was derived
// from. Exactly one call per candle per instrument: the snapshot is
// stored as the crossover reference for the next call.
func (a *Aggregator) Evaluate(instrument string, snap indicators.Snapshot, c market.Candle) Signal {
	prev, hasPrev := a.prev[instrument]
	a.prev[instrument] = snap

	price := c.Close
	var buys, sells []string

	// 1. RSI extremes. Oversold and overbought are mutually exclusive.
	if snap.RSI < a.cfg.RSIOversold {
		buys = append(buys, ConfirmRSI)
	} else if snap.RSI > a.cfg.RSIOverbought {
		sells = append(sells, ConfirmRSI)
	}

	// 2. EMA crossover on this candle specifically, never level-triggered.
	if hasPrev {
		if snap.EMAFast > snap.EMASlow && prev.EMAFast <= prev.EMASlow {
			buys = append(buys, ConfirmEMACross)
		} else if snap.EMAFast < snap.EMASlow && prev.EMAFast >= prev.EMASlow {
			sells = append(sells, ConfirmEMACross)
		}
	}

	// 3. Price near a Bollinger band.
	if width := snap.BBUpper - snap.BBLower; width > 0 {
		pos := (price - snap.BBLower) / width
		if pos < a.cfg.BBProximity {
			buys = append(buys, ConfirmBollinger)
		} else if pos > 1-a.cfg.BBProximity {
			sells = append(sells, ConfirmBollinger)
		}
	}

	// 4. Volume confirmation backs either side.
	if snap.VolumeRatio >= a.cfg.VolumeMultiplier {
		buys = append(buys, ConfirmVolume)
		sells = append(sells, ConfirmVolume)
	}

	sig := Signal{
		Instrument: instrument,
		Direction:  None,
		Price:      price,
		Time:       c.Time,
	}

	buyOK := len(buys) >= a.cfg.MinConfirmations
	sellOK := len(sells) >= a.cfg.MinConfirmations

	switch {
	case buyOK && sellOK:
		// Should be impossible by construction; never silently pick a side.
		a.log.Warn("ambiguous signal, returning NONE",
			"instrument", instrument,
			"buy_confirmations", buys,
			"sell_confirmations", sells,
		)
	case buyOK:
		sig.Direction = Buy
		sig.Confirmations = buys
		sig.StopLoss = price * (1 - a.cfg.StopLossPct)
		sig.TakeProfit = price * (1 + a.cfg.TakeProfitPct)
	case sellOK:
		sig.Direction = Sell
		sig.Confirmations = sells
		sig.StopLoss = price * (1 + a.cfg.StopLossPct)
		sig.TakeProfit = price * (1 - a.cfg.TakeProfitPct)
	}

	return sig
}
