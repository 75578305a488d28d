package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebot/binance"
	"github.com/rustyeddy/tradebot/bot"
	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/journal"
	"github.com/rustyeddy/tradebot/notify"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading bot from a config file",
	Long: `Start the decision loop in the mode the config selects.

In paper mode orders fill instantly at the reference price; in live
mode they are routed to Binance spot. Both modes use real market data.

Example:
  tradebot run -f tradebot.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to YAML config file (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logger()

	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	jrnl, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	var notif notify.Notifier = notify.Noop{}
	if cfg.Telegram.Enabled {
		notif, err = notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
	}

	data := binance.New(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.Testnet, log)

	var exec broker.Broker
	if cfg.Bot.Mode == "live" {
		exec = data
	} else {
		exec = broker.NewPaper(log)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bot.New(cfg, data, exec, jrnl, notif, log)
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openJournal builds the journal the config selects.
func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Driver {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.Path)
	case "csv":
		signals := cfg.Journal.SignalsPath
		if signals == "" {
			signals = "signals.csv"
		}
		return journal.NewCSV(cfg.Journal.Path, signals)
	default:
		return journal.Noop{}, nil
	}
}
