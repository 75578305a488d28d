package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func testTrade(id, runID string, pnl float64, exit time.Time) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		RunID:      runID,
		Instrument: "ETH-USD",
		Quantity:   2,
		EntryPrice: 100,
		ExitPrice:  100 + pnl/2,
		USDCost:    200,
		PnL:        pnl,
		PnLPct:     pnl / 200,
		EntryTime:  exit.Add(-time.Hour),
		ExitTime:   exit,
		Reason:     "STOP_LOSS",
	}
}

func TestSQLite_TradeRoundTrip(t *testing.T) {
	t.Parallel()

	j := openTestDB(t)
	exit := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordTrade(testTrade("t1", "run-a", -6, exit)))
	require.NoError(t, j.RecordTrade(testTrade("t2", "run-a", 12, exit.Add(time.Hour))))
	require.NoError(t, j.RecordTrade(testTrade("t3", "run-b", 5, exit.Add(2*time.Hour))))

	got, err := j.TradesByRun("run-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].TradeID)
	assert.Equal(t, "t2", got[1].TradeID)
	assert.InDelta(t, -6, got[0].PnL, 1e-9)
	assert.Equal(t, "STOP_LOSS", got[0].Reason)
	assert.True(t, got[0].ExitTime.Equal(exit))
}

func TestSQLite_TradesClosedBetween(t *testing.T) {
	t.Parallel()

	j := openTestDB(t)
	day := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordTrade(testTrade("t1", "", -6, day.Add(10*time.Hour))))
	require.NoError(t, j.RecordTrade(testTrade("t2", "", 4, day.Add(26*time.Hour))))

	got, err := j.TradesClosedBetween(day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].TradeID)
}

func TestSQLite_RealizedPnLOn(t *testing.T) {
	t.Parallel()

	j := openTestDB(t)
	day := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordTrade(testTrade("t1", "", -6, day.Add(9*time.Hour))))
	require.NoError(t, j.RecordTrade(testTrade("t2", "", -6, day.Add(12*time.Hour))))
	require.NoError(t, j.RecordTrade(testTrade("t3", "", 3, day.Add(23*time.Hour))))
	require.NoError(t, j.RecordTrade(testTrade("t4", "", -99, day.AddDate(0, 0, 1))))

	pnl, err := j.RealizedPnLOn("2026-08-25")
	require.NoError(t, err)
	assert.InDelta(t, -9, pnl, 1e-9)

	pnl, err = j.RealizedPnLOn("2026-08-20")
	require.NoError(t, err)
	assert.Zero(t, pnl)

	_, err = j.RealizedPnLOn("yesterday")
	assert.Error(t, err)
}

func TestSQLite_SignalRecord(t *testing.T) {
	t.Parallel()

	j := openTestDB(t)
	err := j.RecordSignal(SignalRecord{
		Instrument:    "BTC-USD",
		Direction:     "BUY",
		Confirmations: "rsi,bollinger,volume",
		Price:         50000,
		ActedOn:       true,
		Time:          time.Date(2026, 8, 25, 14, 5, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
}

func TestSQLite_DailyUpsert(t *testing.T) {
	t.Parallel()

	j := openTestDB(t)
	stats := DailyStats{Date: "2026-08-25", Capital: 990, Equity: 1010, Trades: 3, Wins: 1, Losses: 2, RealizedPnL: -10, UnrealizedPnL: 20}

	require.NoError(t, j.RecordDaily(stats))
	stats.Equity = 1020
	require.NoError(t, j.RecordDaily(stats)) // same date must update, not fail
}
