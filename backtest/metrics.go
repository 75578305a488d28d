package backtest

import (
	"math"

	"github.com/rustyeddy/tradebot/portfolio"
)

// Metrics summarizes a trade ledger. ProfitFactor and SharpeRatio are
// reported with explicit Defined flags instead of silently collapsing
// to zero: a ledger with no losing trades has no meaningful profit
// factor, and fewer than two trades has no meaningful Sharpe.
type Metrics struct {
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64

	TotalPnL    float64
	GrossProfit float64
	GrossLoss   float64
	AvgWin      float64
	AvgLoss     float64

	ProfitFactor        float64
	ProfitFactorDefined bool

	SharpeRatio   float64
	SharpeDefined bool

	MaxDrawdownPct float64
}

// ComputeMetrics derives performance statistics from a ledger and the
// equity curve observed while it was produced. An empty ledger yields
// zero win rate with both ratio metrics undefined.
func ComputeMetrics(trades []portfolio.Trade, equityCurve []float64) Metrics {
	var m Metrics
	m.TotalTrades = len(trades)

	for _, t := range trades {
		m.TotalPnL += t.PnL
		if t.PnL > 0 {
			m.Wins++
			m.GrossProfit += t.PnL
		} else {
			m.Losses++
			m.GrossLoss += -t.PnL
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.Wins) / float64(m.TotalTrades)
	}
	if m.Wins > 0 {
		m.AvgWin = m.GrossProfit / float64(m.Wins)
	}
	if m.Losses > 0 {
		m.AvgLoss = -m.GrossLoss / float64(m.Losses)
	}

	if m.GrossLoss > 0 {
		m.ProfitFactor = m.GrossProfit / m.GrossLoss
		m.ProfitFactorDefined = true
	} else if m.GrossProfit > 0 {
		// No losing trades: conventionally infinite, flagged undefined.
		m.ProfitFactor = math.Inf(1)
	}

	m.SharpeRatio, m.SharpeDefined = sharpe(trades)
	m.MaxDrawdownPct = maxDrawdown(equityCurve)

	return m
}

// sharpe computes the Sharpe ratio over the per-trade return series
// using the sample standard deviation. Undefined below 2 trades or
// with zero variance.
func sharpe(trades []portfolio.Trade) (float64, bool) {
	if len(trades) < 2 {
		return 0, false
	}

	n := float64(len(trades))
	mean := 0.0
	for _, t := range trades {
		mean += t.PnLPct
	}
	mean /= n

	variance := 0.0
	for _, t := range trades {
		d := t.PnLPct - mean
		variance += d * d
	}
	variance /= n - 1

	if variance <= 0 {
		return 0, false
	}
	return mean / math.Sqrt(variance), true
}

// maxDrawdown returns the largest peak-to-trough decline of the
// equity curve as a percentage of the peak.
func maxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0]
	maxDD := 0.0
	for _, eq := range curve {
		if eq > peak {
			peak = eq
		}
		if peak > 0 {
			if dd := (peak - eq) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// EquityCurveFromTrades rebuilds a realized-only equity curve from a
// ledger, for reports where the original curve was not kept.
func EquityCurveFromTrades(initial float64, trades []portfolio.Trade) []float64 {
	curve := make([]float64, 0, len(trades)+1)
	curve = append(curve, initial)
	eq := initial
	for _, t := range trades {
		eq += t.PnL
		curve = append(curve, eq)
	}
	return curve
}
