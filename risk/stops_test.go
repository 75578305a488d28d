package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebot/market"
)

func newLongTracker() *Tracker {
	// Entry 100, fixed stop 97.5, take profit 110, trailing arms at
	// +4% with a 0.8% distance.
	return NewTracker(Long, 100, 97.5, 110, 0.04, 0.008)
}

func TestTracker_FixedStop(t *testing.T) {
	t.Parallel()

	tr := newLongTracker()

	reason, hit := tr.Update(99)
	assert.False(t, hit)
	assert.Equal(t, ArmedFixed, tr.State())

	reason, hit = tr.Update(97.4)
	require.True(t, hit)
	assert.Equal(t, ReasonStopLoss, reason)
	assert.Equal(t, Closed, tr.State())
}

func TestTracker_ArmsAndTrails(t *testing.T) {
	t.Parallel()

	tr := newLongTracker()

	// +4% arms the trail at 104 * (1 - 0.008) = 103.168.
	_, hit := tr.Update(104)
	require.False(t, hit)
	assert.Equal(t, ArmedTrailing, tr.State())
	trail, armed := tr.TrailingStop()
	require.True(t, armed)
	assert.InDelta(t, 103.168, trail, 1e-9)

	reason, hit := tr.Update(103.1)
	require.True(t, hit)
	assert.Equal(t, ReasonTrailingStop, reason)
}

func TestTracker_TrailRatchetsMonotonically(t *testing.T) {
	t.Parallel()

	tr := newLongTracker()

	_, _ = tr.Update(104)
	_, hit := tr.Update(106)
	require.False(t, hit)
	trail, _ := tr.TrailingStop()
	assert.InDelta(t, 106*0.992, trail, 1e-9)

	// A pullback that stays above the trail must not move it down.
	_, hit = tr.Update(105.5)
	require.False(t, hit)
	after, _ := tr.TrailingStop()
	assert.InDelta(t, trail, after, 1e-12)
}

func TestTracker_TakeProfit(t *testing.T) {
	t.Parallel()

	tr := newLongTracker()

	reason, hit := tr.Update(110)
	require.True(t, hit)
	assert.Equal(t, ReasonTakeProfit, reason)
	assert.Equal(t, Closed, tr.State())
}

func TestTracker_ClosedIsTerminal(t *testing.T) {
	t.Parallel()

	tr := newLongTracker()
	_, hit := tr.Update(97)
	require.True(t, hit)

	_, hit = tr.Update(50)
	assert.False(t, hit)

	tr2 := newLongTracker()
	tr2.Close()
	_, hit = tr2.Update(200)
	assert.False(t, hit)
	assert.Equal(t, Closed, tr2.State())
}

func TestTracker_ShortSide(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Short, 100, 102.5, 90, 0.04, 0.008)

	_, hit := tr.Update(101)
	assert.False(t, hit)

	// -4% for a short is price 96; trail sits at 96 * 1.008.
	_, hit = tr.Update(96)
	require.False(t, hit)
	assert.Equal(t, ArmedTrailing, tr.State())
	trail, _ := tr.TrailingStop()
	assert.InDelta(t, 96*1.008, trail, 1e-9)

	reason, hit := tr.Update(96.9)
	require.True(t, hit)
	assert.Equal(t, ReasonTrailingStop, reason)
}

func candle(high, low, close float64) market.Candle {
	return market.Candle{
		Open: close, High: high, Low: low, Close: close, Volume: 1,
		Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTrackerCandle_StopFillsAtTriggerPrice(t *testing.T) {
	t.Parallel()

	tr := newLongTracker()

	price, reason, hit := tr.UpdateCandle(candle(100.5, 97, 98))
	require.True(t, hit)
	assert.Equal(t, ReasonStopLoss, reason)
	assert.InDelta(t, 97.5, price, 1e-9)
}

func TestTrackerCandle_StopBeforeTakeProfit(t *testing.T) {
	t.Parallel()

	// Both levels inside one bar: the adverse exit wins.
	tr := newLongTracker()

	price, reason, hit := tr.UpdateCandle(candle(111, 97, 105))
	require.True(t, hit)
	assert.Equal(t, ReasonStopLoss, reason)
	assert.InDelta(t, 97.5, price, 1e-9)
}

func TestTrackerCandle_ArmsFromIntrabarPeak(t *testing.T) {
	t.Parallel()

	tr := newLongTracker()

	// High of 105 arms the trail from the peak even though the close
	// pulls back, as long as the low stays above the trail of 104.16.
	price, reason, hit := tr.UpdateCandle(candle(105, 104.3, 104.5))
	require.False(t, hit)
	assert.Equal(t, ArmedTrailing, tr.State())
	trail, _ := tr.TrailingStop()
	assert.InDelta(t, 105*0.992, trail, 1e-9)

	price, reason, hit = tr.UpdateCandle(candle(104.5, 103, 103.2))
	require.True(t, hit)
	assert.Equal(t, ReasonTrailingStop, reason)
	assert.InDelta(t, trail, price, 1e-9)
}

func TestTrackerCandle_TakeProfit(t *testing.T) {
	t.Parallel()

	tr := newLongTracker()

	price, reason, hit := tr.UpdateCandle(candle(110.5, 102, 109))
	require.True(t, hit)
	assert.Equal(t, ReasonTakeProfit, reason)
	assert.InDelta(t, 110.0, price, 1e-9)
}
