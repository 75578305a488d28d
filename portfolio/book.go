// Package portfolio tracks open positions, capital, and the
// append-only ledger of closed trades.
package portfolio

import (
	"log/slog"
	"sort"
	"time"

	"github.com/rustyeddy/tradebot/risk"
)

// Position is one open holding. It is created only after the order
// executor confirms a fill, mutated by price updates through its stop
// tracker, and destroyed on close.
type Position struct {
	ID         string
	Instrument string
	Side       risk.Side
	EntryPrice float64
	Quantity   float64
	USDCost    float64
	StopLoss   float64
	TakeProfit float64
	OrderID    string
	EntryTime  time.Time
}

// Trade is the ledger record of a closed position. Immutable once
// appended; the unit consumed by performance computation.
type Trade struct {
	ID         string
	Instrument string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	USDCost    float64
	USDReturn  float64
	PnL        float64
	PnLPct     float64
	EntryTime  time.Time
	ExitTime   time.Time
	ExitReason risk.CloseReason
}

// Summary is the daily report payload.
type Summary struct {
	Capital       float64
	Equity        float64
	OpenPositions int
	TotalTrades   int
	Wins          int
	Losses        int
	RealizedPnL   float64
	UnrealizedPnL float64
	WinRate       float64
}

// Book holds at most one position per instrument plus the closed-trade
// ledger. It is single-writer by design; the decision loop is the only
// caller.
type Book struct {
	initialCapital float64
	capital        float64
	positions      map[string]*Position
	trades         []Trade
	log            *slog.Logger
}

// NewBook starts a book with the given trading capital.
func NewBook(capital float64, log *slog.Logger) *Book {
	if log == nil {
		log = slog.Default()
	}
	return &Book{
		initialCapital: capital,
		capital:        capital,
		positions:      make(map[string]*Position),
		log:            log,
	}
}

// Capital returns the free (uninvested) capital.
func (b *Book) Capital() float64 { return b.capital }

// Open records a confirmed fill as a new position and deducts its cost
// from free capital.
func (b *Book) Open(pos Position) *Position {
	p := pos
	b.positions[p.Instrument] = &p
	b.capital -= p.USDCost
	b.log.Info("position opened",
		"instrument", p.Instrument,
		"quantity", p.Quantity,
		"entry", p.EntryPrice,
		"cost", p.USDCost,
		"capital", b.capital,
	)
	return &p
}

// Close removes the position, returns the proceeds to capital, and
// appends the ledger record. Reports false when no position is open
// for the instrument.
func (b *Book) Close(instrument string, exitPrice float64, reason risk.CloseReason, at time.Time) (Trade, bool) {
	pos, ok := b.positions[instrument]
	if !ok {
		b.log.Warn("close requested with no open position", "instrument", instrument)
		return Trade{}, false
	}
	delete(b.positions, instrument)

	pnl := float64(pos.Side) * (exitPrice - pos.EntryPrice) * pos.Quantity
	usdReturn := pos.USDCost + pnl
	pnlPct := 0.0
	if pos.USDCost > 0 {
		pnlPct = pnl / pos.USDCost
	}

	t := Trade{
		ID:         pos.ID,
		Instrument: instrument,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   pos.Quantity,
		USDCost:    pos.USDCost,
		USDReturn:  usdReturn,
		PnL:        pnl,
		PnLPct:     pnlPct,
		EntryTime:  pos.EntryTime,
		ExitTime:   at,
		ExitReason: reason,
	}
	b.trades = append(b.trades, t)
	b.capital += usdReturn

	b.log.Info("position closed",
		"instrument", instrument,
		"reason", string(reason),
		"entry", pos.EntryPrice,
		"exit", exitPrice,
		"pnl", pnl,
		"capital", b.capital,
	)
	return t, true
}

// Position returns the open position for an instrument, if any.
func (b *Book) Position(instrument string) (*Position, bool) {
	p, ok := b.positions[instrument]
	return p, ok
}

// OpenCount returns the number of open positions.
func (b *Book) OpenCount() int { return len(b.positions) }

// OpenInstruments returns instruments with open positions in sorted
// order so replay over the book is deterministic.
func (b *Book) OpenInstruments() []string {
	out := make([]string, 0, len(b.positions))
	for k := range b.positions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Trades returns the closed-trade ledger in close order.
func (b *Book) Trades() []Trade { return b.trades }

// RealizedPnL sums the ledger.
func (b *Book) RealizedPnL() float64 {
	total := 0.0
	for _, t := range b.trades {
		total += t.PnL
	}
	return total
}

// UnrealizedPnL marks open positions against the supplied prices.
// Instruments without a price are marked at entry.
func (b *Book) UnrealizedPnL(prices map[string]float64) float64 {
	total := 0.0
	for inst, pos := range b.positions {
		price, ok := prices[inst]
		if !ok {
			price = pos.EntryPrice
		}
		total += float64(pos.Side) * (price - pos.EntryPrice) * pos.Quantity
	}
	return total
}

// Equity is free capital plus the market value of open positions.
func (b *Book) Equity(prices map[string]float64) float64 {
	equity := b.capital
	for inst, pos := range b.positions {
		price, ok := prices[inst]
		if !ok {
			price = pos.EntryPrice
		}
		equity += pos.USDCost + float64(pos.Side)*(price-pos.EntryPrice)*pos.Quantity
	}
	return equity
}

// Summary builds the daily report payload.
func (b *Book) Summary(prices map[string]float64) Summary {
	wins, losses := 0, 0
	for _, t := range b.trades {
		if t.PnL > 0 {
			wins++
		} else {
			losses++
		}
	}
	winRate := 0.0
	if len(b.trades) > 0 {
		winRate = float64(wins) / float64(len(b.trades))
	}
	return Summary{
		Capital:       b.capital,
		Equity:        b.Equity(prices),
		OpenPositions: len(b.positions),
		TotalTrades:   len(b.trades),
		Wins:          wins,
		Losses:        losses,
		RealizedPnL:   b.RealizedPnL(),
		UnrealizedPnL: b.UnrealizedPnL(prices),
		WinRate:       winRate,
	}
}
