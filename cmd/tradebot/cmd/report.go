package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebot/backtest"
	"github.com/rustyeddy/tradebot/journal"
	"github.com/rustyeddy/tradebot/portfolio"
	"github.com/rustyeddy/tradebot/risk"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute performance metrics from the journal",
	Long: `Read closed trades back out of the SQLite journal and compute
win rate, profit factor, Sharpe ratio, and max drawdown.

Examples:
  tradebot report --db tradebot.db --from 2026-08-01 --to 2026-08-26
  tradebot report --db tradebot.db --run 01J5X...`,
	RunE: runReport,
}

var (
	reportDB      string
	reportRun     string
	reportFrom    string
	reportTo      string
	reportCapital float64
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportDB, "db", "tradebot.db", "path to the SQLite journal")
	reportCmd.Flags().StringVar(&reportRun, "run", "", "restrict to one backtest run ID")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "start date, inclusive (2006-01-02)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "end date, exclusive (2006-01-02)")
	reportCmd.Flags().Float64Var(&reportCapital, "capital", 1000, "initial capital for the drawdown curve")
}

func runReport(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDB)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	var records []journal.TradeRecord
	if reportRun != "" {
		records, err = j.TradesByRun(reportRun)
	} else {
		start, end, perr := reportWindow()
		if perr != nil {
			return perr
		}
		records, err = j.TradesClosedBetween(start, end)
	}
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	trades := make([]portfolio.Trade, len(records))
	for i, r := range records {
		trades[i] = portfolio.Trade{
			ID:         r.TradeID,
			Instrument: r.Instrument,
			EntryPrice: r.EntryPrice,
			ExitPrice:  r.ExitPrice,
			Quantity:   r.Quantity,
			USDCost:    r.USDCost,
			PnL:        r.PnL,
			PnLPct:     r.PnLPct,
			EntryTime:  r.EntryTime,
			ExitTime:   r.ExitTime,
			ExitReason: risk.CloseReason(r.Reason),
		}
	}

	curve := backtest.EquityCurveFromTrades(reportCapital, trades)
	m := backtest.ComputeMetrics(trades, curve)

	fmt.Printf("Trades:        %d (%dW / %dL)\n", m.TotalTrades, m.Wins, m.Losses)
	fmt.Printf("Win rate:      %.1f%%\n", 100*m.WinRate)
	fmt.Printf("Total P&L:     $%.2f\n", m.TotalPnL)
	fmt.Printf("Avg win/loss:  $%.2f / $%.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Printf("Profit factor: %s\n", ratio(m.ProfitFactor, m.ProfitFactorDefined))
	fmt.Printf("Sharpe:        %s\n", ratio(m.SharpeRatio, m.SharpeDefined))
	fmt.Printf("Max drawdown:  %.2f%%\n", m.MaxDrawdownPct)
	return nil
}

// reportWindow parses --from/--to, defaulting to all history.
func reportWindow() (time.Time, time.Time, error) {
	start := time.Unix(0, 0).UTC()
	end := time.Now().UTC().AddDate(0, 0, 1)

	if reportFrom != "" {
		t, err := time.Parse("2006-01-02", reportFrom)
		if err != nil {
			return start, end, fmt.Errorf("bad --from %q: %w", reportFrom, err)
		}
		start = t
	}
	if reportTo != "" {
		t, err := time.Parse("2006-01-02", reportTo)
		if err != nil {
			return start, end, fmt.Errorf("bad --to %q: %w", reportTo, err)
		}
		end = t
	}
	return start, end, nil
}
