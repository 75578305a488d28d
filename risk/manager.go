package risk

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Reason is a structured entry-rejection code. Rejections are routine
// control flow, not errors; they are surfaced verbatim to the
// notification adapter.
type Reason string

const (
	ReasonProtectedAsset Reason = "PROTECTED_ASSET"
	ReasonDailyLossLimit Reason = "DAILY_LOSS_LIMIT"
	ReasonMaxPositions   Reason = "MAX_POSITIONS"
	ReasonSizeExceeded   Reason = "SIZE_EXCEEDED"
)

// Decision is the entry gate's verdict.
type Decision struct {
	Allowed bool
	Reason  Reason
	Detail  string
}

// Limits are the immutable risk parameters the manager enforces.
type Limits struct {
	MaxOpenPositions  int
	MaxPositionPct    float64 // max notional as fraction of equity
	DailyLossLimitPct float64
	DailyLossLimitUSD float64
	ProtectedAssets   []string // base assets that may never be traded
}

// DailyLossState tracks realized P&L for one wall-clock date. It is an
// explicit value, never a global: the live loop and every backtest own
// independent instances.
type DailyLossState struct {
	Date          string // 2006-01-02, UTC
	RealizedPnL   float64
	TradingPaused bool
}

// Manager is the pre-trade gate combining the protected-asset list,
// the daily-loss circuit breaker, the open-position cap, and the
// per-position notional cap.
type Manager struct {
	limits    Limits
	protected map[string]struct{}
	log       *slog.Logger
	state     DailyLossState
}

// NewManager builds a manager from immutable limits.
func NewManager(limits Limits, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	protected := make(map[string]struct{}, len(limits.ProtectedAssets))
	for _, a := range limits.ProtectedAssets {
		protected[strings.ToUpper(a)] = struct{}{}
	}
	return &Manager{
		limits:    limits,
		protected: protected,
		log:       log,
	}
}

// IsProtected reports whether the instrument's base asset is on the
// protected list. Instruments are product IDs like "ETH-USD".
func (m *Manager) IsProtected(instrument string) bool {
	base, _, _ := strings.Cut(instrument, "-")
	_, ok := m.protected[strings.ToUpper(base)]
	return ok
}

// ApproveEntry runs the rejection checks in their defined order and
// short-circuits on the first failure.
func (m *Manager) ApproveEntry(instrument string, notional, equity float64, openPositions int, now time.Time) Decision {
	if m.IsProtected(instrument) {
		return Decision{
			Reason: ReasonProtectedAsset,
			Detail: fmt.Sprintf("%s involves a protected asset", instrument),
		}
	}

	m.rollover(now)
	if m.state.TradingPaused {
		return Decision{
			Reason: ReasonDailyLossLimit,
			Detail: fmt.Sprintf("trading paused, daily realized P&L %.2f", m.state.RealizedPnL),
		}
	}

	if openPositions >= m.limits.MaxOpenPositions {
		return Decision{
			Reason: ReasonMaxPositions,
			Detail: fmt.Sprintf("open positions %d >= max %d", openPositions, m.limits.MaxOpenPositions),
		}
	}

	if maxNotional := m.limits.MaxPositionPct * equity; notional > maxNotional {
		return Decision{
			Reason: ReasonSizeExceeded,
			Detail: fmt.Sprintf("notional %.2f exceeds %.2f (%.1f%% of equity)",
				notional, maxNotional, 100*m.limits.MaxPositionPct),
		}
	}

	return Decision{Allowed: true}
}

// RecordClose folds a closed position's realized P&L into the daily
// state and trips the circuit breaker once the loss reaches the
// tighter of the percentage and absolute limits.
func (m *Manager) RecordClose(pnl, equity float64, now time.Time) DailyLossState {
	m.rollover(now)
	m.state.RealizedPnL += pnl

	limit := m.lossLimit(equity)
	if !m.state.TradingPaused && limit > 0 && m.state.RealizedPnL <= -limit {
		m.state.TradingPaused = true
		m.log.Warn("daily loss limit hit, pausing entries",
			"realized_pnl", m.state.RealizedPnL,
			"limit", limit,
			"date", m.state.Date,
		)
	}
	return m.state
}

// LossLimit reports the effective daily loss limit at a given equity.
func (m *Manager) LossLimit(equity float64) float64 { return m.lossLimit(equity) }

// lossLimit returns the effective loss magnitude that pauses trading:
// the smaller of pct*equity and the absolute USD limit, since both cap
// losses and the tighter one is reached first.
func (m *Manager) lossLimit(equity float64) float64 {
	pctLimit := m.limits.DailyLossLimitPct * equity
	usdLimit := m.limits.DailyLossLimitUSD
	switch {
	case pctLimit <= 0:
		return usdLimit
	case usdLimit <= 0:
		return pctLimit
	case pctLimit < usdLimit:
		return pctLimit
	default:
		return usdLimit
	}
}

// State returns the current daily-loss state after rollover.
func (m *Manager) State(now time.Time) DailyLossState {
	m.rollover(now)
	return m.state
}

// Restore seeds the daily-loss state from persistence so the circuit
// breaker survives a restart within the same trading day. A state from
// an earlier date is discarded on the next rollover.
func (m *Manager) Restore(st DailyLossState) {
	m.state = st
}

// RestoreDay rebuilds today's state from a persisted realized P&L sum
// and re-evaluates the circuit breaker against it.
func (m *Manager) RestoreDay(realized, equity float64, now time.Time) DailyLossState {
	m.state = DailyLossState{Date: dateOf(now)}
	return m.RecordClose(realized, equity, now)
}

// Reset clears the daily state immediately (manual override).
func (m *Manager) Reset(now time.Time) {
	m.state = DailyLossState{Date: dateOf(now)}
	m.log.Info("daily loss state reset", "date", m.state.Date)
}

// rollover resets the state when the wall-clock date changes.
func (m *Manager) rollover(now time.Time) {
	today := dateOf(now)
	if m.state.Date != today {
		if m.state.Date != "" {
			m.log.Info("new trading day",
				"date", today,
				"previous_realized_pnl", m.state.RealizedPnL,
			)
		}
		m.state = DailyLossState{Date: today}
	}
}

func dateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
