package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebot/risk"
)

var t0 = time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

func openETH(b *Book) *Position {
	return b.Open(Position{
		ID:         "paper-000001",
		Instrument: "ETH-USD",
		Side:       risk.Long,
		EntryPrice: 100,
		Quantity:   2,
		USDCost:    200,
		StopLoss:   97.5,
		TakeProfit: 104,
		EntryTime:  t0,
	})
}

func TestBook_OpenDeductsCapital(t *testing.T) {
	t.Parallel()

	b := NewBook(1000, nil)
	openETH(b)

	assert.InDelta(t, 800, b.Capital(), 1e-9)
	assert.Equal(t, 1, b.OpenCount())

	pos, ok := b.Position("ETH-USD")
	require.True(t, ok)
	assert.Equal(t, "paper-000001", pos.ID)
}

func TestBook_CloseRealizesPnL(t *testing.T) {
	t.Parallel()

	b := NewBook(1000, nil)
	openETH(b)

	tr, ok := b.Close("ETH-USD", 104, risk.ReasonTakeProfit, t0.Add(time.Hour))
	require.True(t, ok)

	assert.InDelta(t, 8, tr.PnL, 1e-9)           // (104-100)*2
	assert.InDelta(t, 0.04, tr.PnLPct, 1e-9)     // 8/200
	assert.InDelta(t, 208, tr.USDReturn, 1e-9)
	assert.Equal(t, risk.ReasonTakeProfit, tr.ExitReason)

	assert.InDelta(t, 1008, b.Capital(), 1e-9)
	assert.Equal(t, 0, b.OpenCount())
	assert.InDelta(t, 8, b.RealizedPnL(), 1e-9)
}

func TestBook_CloseWithoutPosition(t *testing.T) {
	t.Parallel()

	b := NewBook(1000, nil)
	_, ok := b.Close("ETH-USD", 104, risk.ReasonManual, t0)
	assert.False(t, ok)
}

func TestBook_EquityMarksOpenPositions(t *testing.T) {
	t.Parallel()

	b := NewBook(1000, nil)
	openETH(b)

	prices := map[string]float64{"ETH-USD": 110}
	assert.InDelta(t, 20, b.UnrealizedPnL(prices), 1e-9)
	assert.InDelta(t, 1020, b.Equity(prices), 1e-9)

	// No price marks at entry, leaving equity flat.
	assert.InDelta(t, 1000, b.Equity(nil), 1e-9)
}

func TestBook_OpenInstrumentsSorted(t *testing.T) {
	t.Parallel()

	b := NewBook(1000, nil)
	for _, inst := range []string{"ETH-USD", "BTC-USD", "ADA-USD"} {
		b.Open(Position{Instrument: inst, Side: risk.Long, EntryPrice: 1, Quantity: 1, USDCost: 1, EntryTime: t0})
	}
	assert.Equal(t, []string{"ADA-USD", "BTC-USD", "ETH-USD"}, b.OpenInstruments())
}

func TestBook_Summary(t *testing.T) {
	t.Parallel()

	b := NewBook(1000, nil)
	openETH(b)
	b.Close("ETH-USD", 104, risk.ReasonTakeProfit, t0) // +8
	openETH(b)
	b.Close("ETH-USD", 98, risk.ReasonStopLoss, t0) // -4

	s := b.Summary(nil)
	assert.Equal(t, 2, s.TotalTrades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 0.5, s.WinRate, 1e-9)
	assert.InDelta(t, 4, s.RealizedPnL, 1e-9)
	assert.InDelta(t, 1004, s.Equity, 1e-9)
}
