package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite journals into a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the
// schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, instrument, quantity, entry_price, exit_price, usd_cost, pnl, pnl_pct, entry_time, exit_time, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Instrument, t.Quantity, t.EntryPrice, t.ExitPrice,
		t.USDCost, t.PnL, t.PnLPct, t.EntryTime, t.ExitTime, t.Reason,
	)
	return err
}

func (j *SQLite) RecordSignal(s SignalRecord) error {
	acted := 0
	if s.ActedOn {
		acted = 1
	}
	_, err := j.db.Exec(`
		INSERT INTO signals
		(instrument, direction, confirmations, price, acted_on, time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Instrument, s.Direction, s.Confirmations, s.Price, acted, s.Time,
	)
	return err
}

func (j *SQLite) RecordDaily(d DailyStats) error {
	_, err := j.db.Exec(`
		INSERT INTO daily_performance
		(date, capital, equity, trades, wins, losses, realized_pnl, unrealized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			capital=excluded.capital,
			equity=excluded.equity,
			trades=excluded.trades,
			wins=excluded.wins,
			losses=excluded.losses,
			realized_pnl=excluded.realized_pnl,
			unrealized_pnl=excluded.unrealized_pnl`,
		d.Date, d.Capital, d.Equity, d.Trades, d.Wins, d.Losses, d.RealizedPnL, d.UnrealizedPnL,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
