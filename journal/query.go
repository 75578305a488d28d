package journal

import (
	"fmt"
	"time"
)

// TradesClosedBetween returns trades whose exit_time is within
// [start, end), oldest first.
func (j *SQLite) TradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, instrument, quantity, entry_price, exit_price, usd_cost, pnl, pnl_pct, entry_time, exit_time, reason
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID, &rec.RunID, &rec.Instrument, &rec.Quantity,
			&rec.EntryPrice, &rec.ExitPrice, &rec.USDCost,
			&rec.PnL, &rec.PnLPct, &rec.EntryTime, &rec.ExitTime, &rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TradesByRun returns the ledger of one backtest run in close order.
func (j *SQLite) TradesByRun(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, instrument, quantity, entry_price, exit_price, usd_cost, pnl, pnl_pct, entry_time, exit_time, reason
		FROM trades
		WHERE run_id = ?
		ORDER BY exit_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID, &rec.RunID, &rec.Instrument, &rec.Quantity,
			&rec.EntryPrice, &rec.ExitPrice, &rec.USDCost,
			&rec.PnL, &rec.PnLPct, &rec.EntryTime, &rec.ExitTime, &rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RealizedPnLOn sums the realized P&L of trades closed on the given
// UTC date (2006-01-02). The restart path uses this to rebuild the
// daily-loss state.
func (j *SQLite) RealizedPnLOn(date string) (float64, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("bad date %q: %w", date, err)
	}
	next := day.AddDate(0, 0, 1)

	var pnl float64
	err = j.db.QueryRow(`
		SELECT COALESCE(SUM(pnl), 0)
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?`, day, next).Scan(&pnl)
	return pnl, err
}
