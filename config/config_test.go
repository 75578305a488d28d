package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradebot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
trading_pairs: ["BTC-USD", "ETH-USD", "ADA-USD"]
capital: 5000
bot:
  mode: paper
  interval: 15m
  summary_hour: 8
strategy:
  granularity: 15m
  min_confirmations: 2
risk:
  risk_per_trade_pct: 0.01
  protected_assets: ["SOL"]
journal:
  driver: csv
  path: trades.csv
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC-USD", "ETH-USD", "ADA-USD"}, cfg.TradingPairs)
	assert.InDelta(t, 5000, cfg.Capital, 1e-9)
	assert.Equal(t, 15*time.Minute, cfg.Bot.Interval.Std())
	assert.Equal(t, 8, cfg.Bot.SummaryHour)
	assert.Equal(t, 2, cfg.Strategy.MinConfirmations)
	assert.InDelta(t, 0.01, cfg.Risk.RiskPerTradePct, 1e-9)
	assert.Equal(t, []string{"SOL"}, cfg.Risk.ProtectedAssets)
	assert.Equal(t, "csv", cfg.Journal.Driver)

	// Untouched fields keep their defaults.
	assert.Equal(t, 14, cfg.Indicators.RSIPeriod)
	assert.InDelta(t, 0.025, cfg.Strategy.StopLossPct, 1e-9)
}

func TestLoadFromFile_BadDuration(t *testing.T) {
	path := writeConfig(t, "bot:\n  interval: soon\n")
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edit  func(*Config)
		valid bool
	}{
		{"default", func(c *Config) {}, true},
		{"no pairs", func(c *Config) { c.TradingPairs = nil }, false},
		{"bad pair format", func(c *Config) { c.TradingPairs = []string{"BTCUSD"} }, false},
		{"zero capital", func(c *Config) { c.Capital = 0 }, false},
		{"bad mode", func(c *Config) { c.Bot.Mode = "yolo" }, false},
		{"summary hour high", func(c *Config) { c.Bot.SummaryHour = 24 }, false},
		{"confirmations high", func(c *Config) { c.Strategy.MinConfirmations = 5 }, false},
		{"lookback too short", func(c *Config) { c.Strategy.LookbackCandles = 10 }, false},
		{"risk pct 1", func(c *Config) { c.Risk.RiskPerTradePct = 1 }, false},
		{"position pct over 1", func(c *Config) { c.Risk.MaxPositionPct = 1.5 }, false},
		{"unknown journal", func(c *Config) { c.Journal.Driver = "parquet" }, false},
		{"live without keys", func(c *Config) { c.Bot.Mode = "live" }, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.edit(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")

	cfg := Default()
	cfg.Capital = 2500
	cfg.Bot.Interval = Duration(time.Hour)
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 2500, got.Capital, 1e-9)
	assert.Equal(t, time.Hour, got.Bot.Interval.Std())
}

func TestConversionHelpers(t *testing.T) {
	t.Parallel()

	cfg := Default()

	ip := cfg.IndicatorParams()
	assert.Equal(t, 26, ip.EMASlow)

	th := cfg.SignalThresholds()
	assert.Equal(t, 3, th.MinConfirmations)
	assert.InDelta(t, 2.5, th.VolumeMultiplier, 1e-9)

	rl := cfg.RiskLimits()
	assert.Equal(t, 3, rl.MaxOpenPositions)
	assert.InDelta(t, 0.03, rl.DailyLossLimitPct, 1e-9)
}
