package risk

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

func testLimits() Limits {
	return Limits{
		MaxOpenPositions:  3,
		MaxPositionPct:    0.25,
		DailyLossLimitPct: 0.05,
		DailyLossLimitUSD: 15,
		ProtectedAssets:   []string{"SOL"},
	}
}

func TestIsProtected_BaseAssetOnly(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)

	assert.True(t, m.IsProtected("SOL-USD"))
	assert.True(t, m.IsProtected("sol-usd"))
	assert.False(t, m.IsProtected("ETH-USD"))
	// Quote side never matches the protected list.
	assert.False(t, m.IsProtected("ETH-SOL"))
}

func TestApproveEntry_Allowed(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)
	dec := m.ApproveEntry("ETH-USD", 200, 1000, 1, day1)

	assert.True(t, dec.Allowed)
	assert.Empty(t, dec.Reason)
}

func TestApproveEntry_RejectionOrder(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)
	// Trip the circuit breaker and fill every slot.
	m.RecordClose(-100, 1000, day1)

	// A protected instrument violating every other limit still reports
	// PROTECTED_ASSET: the checks short-circuit in order.
	dec := m.ApproveEntry("SOL-USD", 5000, 1000, 3, day1)
	require.False(t, dec.Allowed)
	assert.Equal(t, ReasonProtectedAsset, dec.Reason)

	// Next in line is the daily loss limit.
	dec = m.ApproveEntry("ETH-USD", 5000, 1000, 3, day1)
	require.False(t, dec.Allowed)
	assert.Equal(t, ReasonDailyLossLimit, dec.Reason)
}

func TestApproveEntry_MaxPositions(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)
	dec := m.ApproveEntry("ETH-USD", 100, 1000, 3, day1)

	require.False(t, dec.Allowed)
	assert.Equal(t, ReasonMaxPositions, dec.Reason)
}

func TestApproveEntry_SizeExceeded(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)
	dec := m.ApproveEntry("ETH-USD", 251, 1000, 0, day1)

	require.False(t, dec.Allowed)
	assert.Equal(t, ReasonSizeExceeded, dec.Reason)

	// Exactly at the cap passes.
	dec = m.ApproveEntry("ETH-USD", 250, 1000, 0, day1)
	assert.True(t, dec.Allowed)
}

func TestApproveEntry_NeverAdmitsOverCapNotional(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)
	rng := rand.New(rand.NewSource(42))

	// Across randomized equity and stop-distance combinations the gate
	// must admit a sized entry only when its notional is within
	// MaxPositionPct of equity, and reject it as SIZE_EXCEEDED otherwise.
	for i := 0; i < 1000; i++ {
		equity := 100 + rng.Float64()*100000
		entry := 1 + rng.Float64()*50000
		stop := entry * (1 - (0.001 + rng.Float64()*0.2))

		sz, err := Calculate(SizeInputs{
			Equity:     equity,
			RiskPct:    0.001 + rng.Float64()*0.05,
			EntryPrice: entry,
			StopPrice:  stop,
			Increment:  0.001,
		})
		require.NoError(t, err)

		maxNotional := testLimits().MaxPositionPct * equity
		dec := m.ApproveEntry("ETH-USD", sz.Notional, equity, 0, day1)
		if dec.Allowed {
			assert.LessOrEqual(t, sz.Notional, maxNotional)
		} else {
			require.Equal(t, ReasonSizeExceeded, dec.Reason)
			assert.Greater(t, sz.Notional, maxNotional)
		}
	}
}

func TestRecordClose_AccumulatesAndPauses(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)

	// USD limit 15 is tighter than 5% of 1000. Three $6 losses cross it.
	st := m.RecordClose(-6, 1000, day1)
	assert.False(t, st.TradingPaused)
	st = m.RecordClose(-6, 1000, day1)
	assert.False(t, st.TradingPaused)
	st = m.RecordClose(-6, 1000, day1)
	assert.True(t, st.TradingPaused)
	assert.InDelta(t, -18, st.RealizedPnL, 1e-9)
}

func TestRecordClose_WinsOffsetLosses(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)

	m.RecordClose(-10, 1000, day1)
	m.RecordClose(+8, 1000, day1)
	st := m.RecordClose(-10, 1000, day1)

	// Net -12 is inside the $15 limit.
	assert.False(t, st.TradingPaused)
	assert.InDelta(t, -12, st.RealizedPnL, 1e-9)
}

func TestRecordClose_PctLimitWhenTighter(t *testing.T) {
	t.Parallel()

	limits := testLimits()
	limits.DailyLossLimitUSD = 500
	m := NewManager(limits, nil)

	// 5% of 200 equity = $10 beats the $500 absolute limit.
	st := m.RecordClose(-10, 200, day1)
	assert.True(t, st.TradingPaused)
}

func TestDayRollover_ResetsState(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)
	m.RecordClose(-20, 1000, day1)
	require.True(t, m.State(day1).TradingPaused)

	day2 := day1.AddDate(0, 0, 1)
	st := m.State(day2)
	assert.False(t, st.TradingPaused)
	assert.Zero(t, st.RealizedPnL)

	dec := m.ApproveEntry("ETH-USD", 100, 1000, 0, day2)
	assert.True(t, dec.Allowed)
}

func TestRestoreDay_RebuildsPause(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)
	st := m.RestoreDay(-18, 1000, day1)

	assert.True(t, st.TradingPaused)
	assert.InDelta(t, -18, st.RealizedPnL, 1e-9)

	m2 := NewManager(testLimits(), nil)
	st = m2.RestoreDay(-5, 1000, day1)
	assert.False(t, st.TradingPaused)
}

func TestReset_ClearsImmediately(t *testing.T) {
	t.Parallel()

	m := NewManager(testLimits(), nil)
	m.RecordClose(-20, 1000, day1)
	m.Reset(day1)

	st := m.State(day1)
	assert.False(t, st.TradingPaused)
	assert.Zero(t, st.RealizedPnL)
}
