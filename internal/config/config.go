// Package config exposes strongly typed application configuration structs
// loaded from YAML, with environment overrides for secrets and deploy knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment,
// metrics address, and logging level.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Exchange describes which venue supplies market data and how to reach it.
type Exchange struct {
	// Preferred is "auto", "binance", "bybit", or "okx". Auto walks the
	// fallback order until a venue passes its health check.
	Preferred  string `yaml:"preferred"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	TradeLimit int    `yaml:"trade_limit"`  // tape depth per symbol
	CandleLimit int   `yaml:"candle_limit"` // candles per (symbol, timeframe)
}

// Scan groups the batch-evaluation knobs.
type Scan struct {
	Timeframes []string `yaml:"timeframes"`
	TopCoins   int      `yaml:"top_coins"`
	MinScore   float64  `yaml:"min_score"`
	TopN       int      `yaml:"top_n"`
	Workers    int      `yaml:"workers"`
}

// Technical holds the price-momentum lens thresholds and periods.
type Technical struct {
	RSIPeriod      int     `yaml:"rsi_period"`
	RSIOversold    float64 `yaml:"rsi_oversold"`
	RSIOverbought  float64 `yaml:"rsi_overbought"`
	EMAShortPeriod int     `yaml:"ema_short_period"`
	EMALongPeriod  int     `yaml:"ema_long_period"`
	MACDFast       int     `yaml:"macd_fast"`
	MACDSlow       int     `yaml:"macd_slow"`
	MACDSignal     int     `yaml:"macd_signal"`
	VolumePeriod   int     `yaml:"volume_period"`
	VolumeSpike    float64 `yaml:"volume_spike_threshold"`
}

// Funding holds the funding-rate lens thresholds (signed percentages).
type Funding struct {
	ExtremePositive float64 `yaml:"extreme_positive"`
	ExtremeNegative float64 `yaml:"extreme_negative"`
	HighPositive    float64 `yaml:"high_positive"`
	HighNegative    float64 `yaml:"high_negative"`
}

// Liquidation holds the liquidation lens thresholds.
type Liquidation struct {
	ThresholdUSD          float64 `yaml:"threshold_usd"`
	PriceThresholdPercent float64 `yaml:"price_threshold_percent"`
}

// Weights sets the per-lens share of the aggregated score.
type Weights struct {
	Technical   float64 `yaml:"technical"`
	Funding     float64 `yaml:"funding"`
	Liquidation float64 `yaml:"liquidation"`
}

// Telegram configures the result sink. An empty bot token disables delivery.
type Telegram struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App         App         `yaml:"app"`
	Exchange    Exchange    `yaml:"exchange"`
	Scan        Scan        `yaml:"scan"`
	Technical   Technical   `yaml:"technical"`
	Funding     Funding     `yaml:"funding"`
	Liquidation Liquidation `yaml:"liquidation"`
	Weights     Weights     `yaml:"weights"`
	Telegram    Telegram    `yaml:"telegram"`
}

// Default returns a fully populated configuration with the standard
// thresholds; a YAML file or env overrides refine it.
func Default() *Config {
	return &Config{
		App: App{
			Name:        "perpscan",
			Env:         "dev",
			MetricsAddr: ":9109",
			LogLevel:    "info",
		},
		Exchange: Exchange{
			Preferred:   "auto",
			TradeLimit:  500,
			CandleLimit: 100,
		},
		Scan: Scan{
			Timeframes: []string{"1h", "4h"},
			TopCoins:   20,
			MinScore:   7.0,
			TopN:       5,
			Workers:    4,
		},
		Technical: Technical{
			RSIPeriod:      14,
			RSIOversold:    30,
			RSIOverbought:  70,
			EMAShortPeriod: 12,
			EMALongPeriod:  26,
			MACDFast:       12,
			MACDSlow:       26,
			MACDSignal:     9,
			VolumePeriod:   20,
			VolumeSpike:    2.0,
		},
		Funding: Funding{
			ExtremePositive: 0.1,
			ExtremeNegative: -0.1,
			HighPositive:    0.05,
			HighNegative:    -0.05,
		},
		Liquidation: Liquidation{
			ThresholdUSD:          1_000_000,
			PriceThresholdPercent: 0.5,
		},
		Weights: Weights{Technical: 0.50, Funding: 0.30, Liquidation: 0.20},
	}
}

// Load reads a YAML file from disk over the defaults and hydrates a Config.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets and common knobs from environment variables so
// deploys never need credentials in the YAML file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("EXCHANGE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("EXCHANGE_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("PREFERRED_EXCHANGE"); v != "" {
		c.Exchange.Preferred = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		parts := strings.Split(v, ",")
		timeframes := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				timeframes = append(timeframes, p)
			}
		}
		if len(timeframes) > 0 {
			c.Scan.Timeframes = timeframes
		}
	}
	if v, err := strconv.Atoi(os.Getenv("TOP_COINS_COUNT")); err == nil && v > 0 {
		c.Scan.TopCoins = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("MIN_SIGNAL_SCORE"), 64); err == nil {
		c.Scan.MinScore = v
	}
}

// Validate returns every problem found rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	if c.Scan.MinScore < 0 || c.Scan.MinScore > 10 {
		errs = append(errs, fmt.Errorf("scan.min_score must be between 0 and 10, got %v", c.Scan.MinScore))
	}
	if len(c.Scan.Timeframes) == 0 {
		errs = append(errs, fmt.Errorf("scan.timeframes must not be empty"))
	}
	if c.Technical.RSIOversold >= c.Technical.RSIOverbought {
		errs = append(errs, fmt.Errorf("technical.rsi_oversold must be less than rsi_overbought"))
	}
	if !(c.Funding.HighPositive > 0 && c.Funding.HighPositive < c.Funding.ExtremePositive) {
		errs = append(errs, fmt.Errorf("funding.high_positive must sit strictly between 0 and extreme_positive"))
	}
	if !(c.Funding.HighNegative < 0 && c.Funding.HighNegative > c.Funding.ExtremeNegative) {
		errs = append(errs, fmt.Errorf("funding.high_negative must sit strictly between 0 and extreme_negative"))
	}
	if c.Liquidation.ThresholdUSD <= 0 {
		errs = append(errs, fmt.Errorf("liquidation.threshold_usd must be positive"))
	}
	switch strings.ToLower(c.Exchange.Preferred) {
	case "auto", "binance", "bybit", "okx":
	default:
		errs = append(errs, fmt.Errorf("exchange.preferred must be one of auto, binance, bybit, okx"))
	}
	return errs
}
