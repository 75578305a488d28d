package cmd

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebot/backtest"
	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/internal/id"
	"github.com/rustyeddy/tradebot/journal"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/portfolio"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical candles through the decision pipeline",
	Long: `Run a deterministic backtest over CSV candle data.

The data directory must contain one file per configured trading pair,
named after the pair (e.g. BTC-USD.csv) with columns
time,open,high,low,close,volume. Two runs over the same data and
config produce identical trade ledgers.

Example:
  tradebot backtest -f tradebot.yaml --data ./candles`,
	RunE: runBacktest,
}

var (
	backtestConfigPath string
	backtestDataDir    string
	backtestSave       bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&backtestConfigPath, "config", "f", "", "path to YAML config file (required)")
	backtestCmd.Flags().StringVarP(&backtestDataDir, "data", "d", "", "directory of per-instrument candle CSVs (required)")
	backtestCmd.Flags().BoolVar(&backtestSave, "save", false, "record the trade ledger in the configured journal")
	backtestCmd.MarkFlagRequired("config")
	backtestCmd.MarkFlagRequired("data")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger()

	cfg, err := config.LoadFromFile(backtestConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data := make(map[string]*market.Series, len(cfg.TradingPairs))
	for _, pair := range cfg.TradingPairs {
		path := filepath.Join(backtestDataDir, pair+".csv")
		s, err := market.LoadCSV(path, pair, cfg.Strategy.Granularity.Std())
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		data[pair] = s
	}

	engine := backtest.New(cfg, log)
	res, err := engine.Run(cmd.Context(), data)
	if err != nil {
		return err
	}

	printResult(cfg, res)

	if backtestSave && cfg.Journal.Driver == "sqlite" {
		runID := id.New()
		if err := saveLedger(cfg.Journal.Path, runID, res.Trades); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		fmt.Printf("\nLedger saved to %s (run %s)\n", cfg.Journal.Path, runID)
	}
	return nil
}

func printResult(cfg *config.Config, res *backtest.Result) {
	m := res.Metrics

	fmt.Printf("Backtest %s .. %s (%d candles, %d instruments)\n",
		res.Start.Format("2006-01-02 15:04"), res.End.Format("2006-01-02 15:04"),
		res.Candles, len(res.Instruments))
	fmt.Printf("  Initial capital: $%.2f\n", cfg.Capital)
	fmt.Printf("  Final equity:    $%.2f (%+.2f%%)\n",
		res.FinalEquity, 100*(res.FinalEquity-cfg.Capital)/cfg.Capital)
	fmt.Println()
	fmt.Printf("  Trades:        %d (%dW / %dL)\n", m.TotalTrades, m.Wins, m.Losses)
	fmt.Printf("  Win rate:      %.1f%%\n", 100*m.WinRate)
	fmt.Printf("  Total P&L:     $%.2f\n", m.TotalPnL)
	fmt.Printf("  Avg win/loss:  $%.2f / $%.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Printf("  Profit factor: %s\n", ratio(m.ProfitFactor, m.ProfitFactorDefined))
	fmt.Printf("  Sharpe:        %s\n", ratio(m.SharpeRatio, m.SharpeDefined))
	fmt.Printf("  Max drawdown:  %.2f%%\n", m.MaxDrawdownPct)
}

func ratio(v float64, defined bool) string {
	if !defined {
		if math.IsInf(v, 1) {
			return "inf (no losing trades)"
		}
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func saveLedger(dbPath, runID string, trades []portfolio.Trade) error {
	j, err := journal.NewSQLite(dbPath)
	if err != nil {
		return err
	}
	defer j.Close()

	for _, t := range trades {
		// Paper fill IDs restart at 1 every run; namespace them by run.
		rec := journal.TradeRecord{
			TradeID:    runID + "-" + t.ID,
			RunID:      runID,
			Instrument: t.Instrument,
			Quantity:   t.Quantity,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			USDCost:    t.USDCost,
			PnL:        t.PnL,
			PnLPct:     t.PnLPct,
			EntryTime:  t.EntryTime,
			ExitTime:   t.ExitTime,
			Reason:     string(t.ExitReason),
		}
		if err := j.RecordTrade(rec); err != nil {
			return err
		}
	}
	return nil
}
