// Package notify pushes trading events to a human. Delivery is best
// effort: a failed notification is logged and dropped, it never blocks
// or aborts the decision loop.
package notify

import (
	"time"

	"github.com/rustyeddy/tradebot/portfolio"
	"github.com/rustyeddy/tradebot/risk"
)

// TradeOpened describes a confirmed entry fill.
type TradeOpened struct {
	Instrument string
	Quantity   float64
	Price      float64
	USDCost    float64
	StopLoss   float64
	TakeProfit float64
	Time       time.Time
}

// TradeClosed describes a closed position.
type TradeClosed struct {
	Instrument string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	PnLPct     float64
	Reason     risk.CloseReason
	Time       time.Time
}

// LossLimitHit fires once when the daily circuit breaker trips.
type LossLimitHit struct {
	Date        string
	RealizedPnL float64
	Limit       float64
}

// Notifier receives trading events.
type Notifier interface {
	TradeOpened(TradeOpened)
	TradeClosed(TradeClosed)
	LossLimitHit(LossLimitHit)
	DailySummary(date string, s portfolio.Summary)
	Error(scope string, err error)
}

// Noop discards every event.
type Noop struct{}

func (Noop) TradeOpened(TradeOpened)                {}
func (Noop) TradeClosed(TradeClosed)                {}
func (Noop) LossLimitHit(LossLimitHit)              {}
func (Noop) DailySummary(string, portfolio.Summary) {}
func (Noop) Error(string, error)                    {}
