// Package journal persists trades, signals, and daily performance so
// runs can be analyzed later and the daily-loss circuit breaker
// survives restarts.
package journal

import "time"

// TradeRecord is the persisted form of a closed trade.
type TradeRecord struct {
	TradeID    string
	RunID      string
	Instrument string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	USDCost    float64
	PnL        float64
	PnLPct     float64
	EntryTime  time.Time
	ExitTime   time.Time
	Reason     string
}

// SignalRecord is the persisted form of a non-NONE signal.
type SignalRecord struct {
	Instrument    string
	Direction     string
	Confirmations string // comma-joined indicator names
	Price         float64
	ActedOn       bool
	Time          time.Time
}

// DailyStats is the end-of-day performance snapshot.
type DailyStats struct {
	Date          string
	Capital       float64
	Equity        float64
	Trades        int
	Wins          int
	Losses        int
	RealizedPnL   float64
	UnrealizedPnL float64
}

// Journal is the persistence adapter contract. Implementations must
// tolerate being called from the single decision loop only.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordSignal(SignalRecord) error
	RecordDaily(DailyStats) error
	Close() error
}

// Noop discards everything. Useful for backtests that only want the
// in-memory ledger.
type Noop struct{}

func (Noop) RecordTrade(TradeRecord) error   { return nil }
func (Noop) RecordSignal(SignalRecord) error { return nil }
func (Noop) RecordDaily(DailyStats) error    { return nil }
func (Noop) Close() error                    { return nil }
