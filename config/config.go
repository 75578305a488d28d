// Package config loads and validates the engine configuration. The
// loaded Config is an immutable snapshot: the live loop and every
// backtest run against the copy they were started with, never against
// a file that may change underneath them.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/risk"
	"github.com/rustyeddy/tradebot/signal"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "5m" or "1h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Bot controls the live decision loop.
type Bot struct {
	Mode        string   `yaml:"mode"`         // "paper" or "live"
	Interval    Duration `yaml:"interval"`     // decision cycle cadence
	SummaryHour int      `yaml:"summary_hour"` // UTC hour for the daily summary
	MaxGap      int      `yaml:"max_gap"`      // tolerated missing bars between candles
}

// Strategy holds the signal aggregator settings.
type Strategy struct {
	Granularity      Duration `yaml:"granularity"`
	LookbackCandles  int      `yaml:"lookback_candles"`
	MinConfirmations int      `yaml:"min_confirmations"`

	RSIOversold      float64 `yaml:"rsi_oversold"`
	RSIOverbought    float64 `yaml:"rsi_overbought"`
	BBProximity      float64 `yaml:"bb_proximity"`
	VolumeMultiplier float64 `yaml:"volume_multiplier"`

	StopLossPct         float64 `yaml:"stop_loss_pct"`
	TakeProfitPct       float64 `yaml:"take_profit_pct"`
	TrailingActivatePct float64 `yaml:"trailing_activate_pct"`
	TrailingDistancePct float64 `yaml:"trailing_distance_pct"`
}

// Indicators holds the lookback periods.
type Indicators struct {
	RSIPeriod    int     `yaml:"rsi_period"`
	EMAFast      int     `yaml:"ema_fast"`
	EMASlow      int     `yaml:"ema_slow"`
	BBPeriod     int     `yaml:"bb_period"`
	BBStdDev     float64 `yaml:"bb_std_dev"`
	VolumePeriod int     `yaml:"volume_period"`
}

// Risk holds the pre-trade gate and sizing parameters.
type Risk struct {
	RiskPerTradePct   float64  `yaml:"risk_per_trade_pct"`
	MaxOpenPositions  int      `yaml:"max_open_positions"`
	MaxPositionPct    float64  `yaml:"max_position_pct"`
	DailyLossLimitPct float64  `yaml:"daily_loss_limit_pct"`
	DailyLossLimitUSD float64  `yaml:"daily_loss_limit_usd"`
	ProtectedAssets   []string `yaml:"protected_assets"`
	QuantityIncrement float64  `yaml:"quantity_increment"`
}

// Journal selects the persistence driver.
type Journal struct {
	Driver      string `yaml:"driver"` // "sqlite", "csv", or "none"
	Path        string `yaml:"path"`
	SignalsPath string `yaml:"signals_path"` // csv driver only
}

// Telegram notification settings. The token and chat ID come from the
// environment, never from the YAML file.
type Telegram struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"-"`
	ChatID  int64  `yaml:"-"`
}

// Binance exchange credentials, also environment-only.
type Binance struct {
	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`
	Testnet   bool   `yaml:"testnet"`
}

// Config is the complete engine configuration.
type Config struct {
	TradingPairs []string `yaml:"trading_pairs"`
	Capital      float64  `yaml:"capital"`

	Bot        Bot        `yaml:"bot"`
	Strategy   Strategy   `yaml:"strategy"`
	Indicators Indicators `yaml:"indicators"`
	Risk       Risk       `yaml:"risk"`
	Journal    Journal    `yaml:"journal"`
	Telegram   Telegram   `yaml:"telegram"`
	Binance    Binance    `yaml:"binance"`
}

// Default returns the baseline configuration.
func Default() *Config {
	ip := indicators.DefaultParams()
	th := signal.DefaultThresholds()
	return &Config{
		TradingPairs: []string{"BTC-USD", "ETH-USD"},
		Capital:      1000,
		Bot: Bot{
			Mode:        "paper",
			Interval:    Duration(5 * time.Minute),
			SummaryHour: 0,
			MaxGap:      1,
		},
		Strategy: Strategy{
			Granularity:         Duration(5 * time.Minute),
			LookbackCandles:     100,
			MinConfirmations:    th.MinConfirmations,
			RSIOversold:         th.RSIOversold,
			RSIOverbought:       th.RSIOverbought,
			BBProximity:         th.BBProximity,
			VolumeMultiplier:    th.VolumeMultiplier,
			StopLossPct:         th.StopLossPct,
			TakeProfitPct:       th.TakeProfitPct,
			TrailingActivatePct: 0.015,
			TrailingDistancePct: 0.008,
		},
		Indicators: Indicators{
			RSIPeriod:    ip.RSIPeriod,
			EMAFast:      ip.EMAFast,
			EMASlow:      ip.EMASlow,
			BBPeriod:     ip.BBPeriod,
			BBStdDev:     ip.BBStdDev,
			VolumePeriod: ip.VolumePeriod,
		},
		Risk: Risk{
			RiskPerTradePct:   0.02,
			MaxOpenPositions:  3,
			MaxPositionPct:    0.25,
			DailyLossLimitPct: 0.03,
			DailyLossLimitUSD: 150,
			ProtectedAssets:   []string{},
			QuantityIncrement: 0,
		},
		Journal: Journal{
			Driver: "sqlite",
			Path:   "tradebot.db",
		},
	}
}

// LoadFromFile reads a YAML config over the defaults, pulls secrets
// from the environment (a .env file is honored when present), and
// validates the result.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.loadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// loadEnv fills credential fields from the environment.
func (c *Config) loadEnv() {
	_ = godotenv.Load()

	c.Binance.APIKey = os.Getenv("BINANCE_API_KEY")
	c.Binance.APISecret = os.Getenv("BINANCE_API_SECRET")
	c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		fmt.Sscan(chat, &c.Telegram.ChatID)
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.TradingPairs) == 0 {
		return fmt.Errorf("config: trading_pairs is empty")
	}
	for _, p := range c.TradingPairs {
		if !strings.Contains(p, "-") {
			return fmt.Errorf("config: trading pair %q is not BASE-QUOTE", p)
		}
	}
	if c.Capital <= 0 {
		return fmt.Errorf("config: capital must be positive")
	}
	switch c.Bot.Mode {
	case "paper", "live":
	default:
		return fmt.Errorf("config: bot mode %q is not paper or live", c.Bot.Mode)
	}
	if c.Bot.Interval <= 0 {
		return fmt.Errorf("config: bot interval must be positive")
	}
	if h := c.Bot.SummaryHour; h < 0 || h > 23 {
		return fmt.Errorf("config: summary_hour %d out of range", h)
	}
	if c.Strategy.Granularity <= 0 {
		return fmt.Errorf("config: strategy granularity must be positive")
	}
	if n := c.Strategy.MinConfirmations; n < 1 || n > 4 {
		return fmt.Errorf("config: min_confirmations %d out of range 1..4", n)
	}
	if c.Strategy.LookbackCandles < c.IndicatorParams().MinHistory() {
		return fmt.Errorf("config: lookback_candles %d below indicator minimum %d",
			c.Strategy.LookbackCandles, c.IndicatorParams().MinHistory())
	}
	if c.Strategy.StopLossPct <= 0 {
		return fmt.Errorf("config: stop_loss_pct must be positive")
	}
	if c.Risk.RiskPerTradePct <= 0 || c.Risk.RiskPerTradePct >= 1 {
		return fmt.Errorf("config: risk_per_trade_pct must be in (0, 1)")
	}
	if c.Risk.MaxOpenPositions < 1 {
		return fmt.Errorf("config: max_open_positions must be at least 1")
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("config: max_position_pct must be in (0, 1]")
	}
	switch c.Journal.Driver {
	case "sqlite", "csv", "none":
	default:
		return fmt.Errorf("config: journal driver %q unknown", c.Journal.Driver)
	}
	if c.Bot.Mode == "live" {
		if c.Binance.APIKey == "" || c.Binance.APISecret == "" {
			return fmt.Errorf("config: live mode requires BINANCE_API_KEY and BINANCE_API_SECRET")
		}
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("config: telegram enabled without TELEGRAM_BOT_TOKEN")
	}
	return nil
}

// IndicatorParams maps the config onto indicator lookbacks.
func (c *Config) IndicatorParams() indicators.Params {
	return indicators.Params{
		RSIPeriod:    c.Indicators.RSIPeriod,
		EMAFast:      c.Indicators.EMAFast,
		EMASlow:      c.Indicators.EMASlow,
		BBPeriod:     c.Indicators.BBPeriod,
		BBStdDev:     c.Indicators.BBStdDev,
		VolumePeriod: c.Indicators.VolumePeriod,
	}
}

// SignalThresholds maps the config onto aggregator thresholds.
func (c *Config) SignalThresholds() signal.Thresholds {
	return signal.Thresholds{
		RSIOversold:      c.Strategy.RSIOversold,
		RSIOverbought:    c.Strategy.RSIOverbought,
		BBProximity:      c.Strategy.BBProximity,
		VolumeMultiplier: c.Strategy.VolumeMultiplier,
		MinConfirmations: c.Strategy.MinConfirmations,
		StopLossPct:      c.Strategy.StopLossPct,
		TakeProfitPct:    c.Strategy.TakeProfitPct,
	}
}

// RiskLimits maps the config onto the entry gate.
func (c *Config) RiskLimits() risk.Limits {
	return risk.Limits{
		MaxOpenPositions:  c.Risk.MaxOpenPositions,
		MaxPositionPct:    c.Risk.MaxPositionPct,
		DailyLossLimitPct: c.Risk.DailyLossLimitPct,
		DailyLossLimitUSD: c.Risk.DailyLossLimitUSD,
		ProtectedAssets:   c.Risk.ProtectedAssets,
	}
}
