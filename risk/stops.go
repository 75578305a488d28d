package risk

import "github.com/rustyeddy/tradebot/market"

// Side of a position: +1 long, -1 short.
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

// TrackerState is the stop tracker's lifecycle state.
type TrackerState string

const (
	ArmedFixed    TrackerState = "ARMED_FIXED"
	ArmedTrailing TrackerState = "ARMED_TRAILING"
	Closed        TrackerState = "CLOSED"
)

// CloseReason explains why a position left the market.
type CloseReason string

const (
	ReasonStopLoss     CloseReason = "STOP_LOSS"
	ReasonTrailingStop CloseReason = "TRAILING_STOP"
	ReasonTakeProfit   CloseReason = "TAKE_PROFIT"
	ReasonSignal       CloseReason = "SIGNAL"
	ReasonEndOfData    CloseReason = "END_OF_DATA"
	ReasonManual       CloseReason = "MANUAL"
)

// Tracker is the per-position exit state machine:
//
//	ARMED_FIXED -> ARMED_TRAILING -> CLOSED
//
// The trailing stop arms once unrealized gain reaches activatePct and
// from then on only ratchets in the profit direction. CLOSED is
// terminal; re-entry requires a new position and a new Tracker.
type Tracker struct {
	side        Side
	entry       float64
	stop        float64
	take        float64
	activatePct float64
	distancePct float64

	state TrackerState
	peak  float64 // most favorable price seen since entry
	trail float64 // meaningful only in ARMED_TRAILING
}

// NewTracker arms a fixed stop for a freshly opened position.
func NewTracker(side Side, entry, stop, take, activatePct, distancePct float64) *Tracker {
	return &Tracker{
		side:        side,
		entry:       entry,
		stop:        stop,
		take:        take,
		activatePct: activatePct,
		distancePct: distancePct,
		state:       ArmedFixed,
		peak:        entry,
	}
}

// State returns the current lifecycle state.
func (t *Tracker) State() TrackerState { return t.state }

// TrailingStop returns the trailing stop price and whether it is armed.
func (t *Tracker) TrailingStop() (float64, bool) {
	return t.trail, t.state == ArmedTrailing
}

// favorable reports whether a is a better price than b for this side.
func (t *Tracker) favorable(a, b float64) bool {
	if t.side == Long {
		return a > b
	}
	return a < b
}

// adverse reports whether price has crossed level against the position.
func (t *Tracker) adverse(price, level float64) bool {
	if t.side == Long {
		return price <= level
	}
	return price >= level
}

// trailFrom computes the trailing stop candidate for a reference price.
func (t *Tracker) trailFrom(ref float64) float64 {
	if t.side == Long {
		return ref * (1 - t.distancePct)
	}
	return ref * (1 + t.distancePct)
}

// gain returns the unrealized gain fraction at price.
func (t *Tracker) gain(price float64) float64 {
	if t.entry == 0 {
		return 0
	}
	return float64(t.side) * (price - t.entry) / t.entry
}

// Update advances the state machine with a live price and reports an
// exit reason when the position must close. The caller closes at the
// current market price.
func (t *Tracker) Update(price float64) (CloseReason, bool) {
	if t.state == Closed {
		return "", false
	}

	if t.favorable(price, t.peak) {
		t.peak = price
	}

	// Take-profit applies in any non-closed state.
	if t.take != 0 && !t.favorable(t.take, price) {
		t.state = Closed
		return ReasonTakeProfit, true
	}

	if t.state == ArmedFixed {
		if t.gain(price) >= t.activatePct {
			t.state = ArmedTrailing
			t.trail = t.trailFrom(price)
		} else if t.stop != 0 && t.adverse(price, t.stop) {
			t.state = Closed
			return ReasonStopLoss, true
		}
	}

	if t.state == ArmedTrailing {
		// Monotonic ratchet: the trail never retreats.
		if cand := t.trailFrom(price); t.favorable(cand, t.trail) {
			t.trail = cand
		}
		if t.adverse(price, t.trail) {
			t.state = Closed
			return ReasonTrailingStop, true
		}
	}

	return "", false
}

// UpdateCandle advances the state machine with a full candle, using
// the bar's high/low for intra-candle triggers. Adverse exits (fixed
// or trailing stop) are checked before the take-profit, the worst case
// when both trigger inside one bar. The returned price is the trigger
// level the exit fills at.
func (t *Tracker) UpdateCandle(c market.Candle) (exitPrice float64, reason CloseReason, hit bool) {
	if t.state == Closed {
		return 0, "", false
	}

	best, worst := c.High, c.Low
	if t.side == Short {
		best, worst = c.Low, c.High
	}
	if t.favorable(best, t.peak) {
		t.peak = best
	}

	if t.state == ArmedFixed {
		if t.stop != 0 && t.adverse(worst, t.stop) {
			t.state = Closed
			return t.stop, ReasonStopLoss, true
		}
		if t.gain(t.peak) >= t.activatePct {
			t.state = ArmedTrailing
			t.trail = t.trailFrom(t.peak)
		}
	}

	if t.state == ArmedTrailing {
		if cand := t.trailFrom(t.peak); t.favorable(cand, t.trail) {
			t.trail = cand
		}
		if t.adverse(worst, t.trail) {
			t.state = Closed
			return t.trail, ReasonTrailingStop, true
		}
	}

	if t.take != 0 && !t.favorable(t.take, best) {
		t.state = Closed
		return t.take, ReasonTakeProfit, true
	}

	return 0, "", false
}

// Close forces the terminal state for exits decided outside the
// tracker (signal reversal, end of data, manual kill).
func (t *Tracker) Close() { t.state = Closed }
