package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradebot",
	Short: "A multi-instrument crypto trading bot and backtest engine",
	Long: `Tradebot is a signal-driven spot trading bot written in Go.

It provides tools for:
  - Live and paper trading against Binance spot markets
  - Confirmation-based signal generation (RSI, EMA cross, Bollinger, volume)
  - Risk-based position sizing with a daily loss circuit breaker
  - Trailing stop management per position
  - Deterministic backtesting over historical candle data
  - Trade journaling to SQLite or CSV`,
}

var verbose bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// logger builds the process-wide structured logger honoring --verbose.
func logger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
