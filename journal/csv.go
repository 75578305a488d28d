package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSV journals trades and signals into two flat files.
type CSV struct {
	trades  *csv.Writer
	signals *csv.Writer
	tf, sf  *os.File
}

// NewCSV creates (truncates) both files and writes header rows.
func NewCSV(tradesPath, signalsPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	sf, err := os.Create(signalsPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	fail := func(err error) (*CSV, error) {
		tf.Close()
		sf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	sw := csv.NewWriter(sf)

	if err := tw.Write([]string{"trade_id", "run_id", "instrument", "quantity", "entry_price", "exit_price", "usd_cost", "pnl", "pnl_pct", "entry_time", "exit_time", "reason"}); err != nil {
		return fail(err)
	}
	if err := sw.Write([]string{"time", "instrument", "direction", "confirmations", "price", "acted_on"}); err != nil {
		return fail(err)
	}
	tw.Flush()
	sw.Flush()
	if err := tw.Error(); err != nil {
		return fail(err)
	}
	if err := sw.Error(); err != nil {
		return fail(err)
	}

	return &CSV{trades: tw, signals: sw, tf: tf, sf: sf}, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.RunID,
		t.Instrument,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		f(t.USDCost),
		f(t.PnL),
		f(t.PnLPct),
		t.EntryTime.UTC().Format(time.RFC3339),
		t.ExitTime.UTC().Format(time.RFC3339),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) RecordSignal(s SignalRecord) error {
	acted := "0"
	if s.ActedOn {
		acted = "1"
	}
	err := j.signals.Write([]string{
		s.Time.UTC().Format(time.RFC3339),
		s.Instrument,
		s.Direction,
		s.Confirmations,
		f(s.Price),
		acted,
	})
	if err != nil {
		return err
	}
	j.signals.Flush()
	return j.signals.Error()
}

// RecordDaily is a no-op for the CSV journal; daily stats only make
// sense with the queryable SQLite store.
func (j *CSV) RecordDaily(DailyStats) error { return nil }

func (j *CSV) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.signals.Flush()
	if err := j.signals.Error(); err != nil {
		return err
	}
	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.sf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
