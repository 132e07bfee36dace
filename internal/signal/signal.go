// Package signal standardizes payloads shared between data providers, the
// analysis lenses, and the aggregation layer.
package signal

import (
	"fmt"
	"time"
)

// Direction expresses the directional lean of a lens or an aggregated signal.
type Direction int

const (
	// Neutral means no directional lean; a neutral lens always carries score 0.
	Neutral Direction = iota
	// Long is a bullish lean.
	Long
	// Short is a bearish lean.
	Short
)

// String returns the wire form used in logs and serialized output.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "neutral"
	}
}

// MarshalText serializes the direction as its string form.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText parses the string form back into a Direction.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "long":
		*d = Long
	case "short":
		*d = Short
	case "neutral", "":
		*d = Neutral
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}

// Strength buckets an aggregated score into a coarse confidence category.
type Strength string

const (
	Weak       Strength = "weak"        // score < 5
	Moderate   Strength = "moderate"    // 5 <= score < 7
	Strong     Strength = "strong"      // 7 <= score < 8.5
	VeryStrong Strength = "very_strong" // score >= 8.5
)

// Crossover is the outcome of comparing two series across the last two bars.
type Crossover string

const (
	CrossBullish Crossover = "bullish"
	CrossBearish Crossover = "bearish"
	CrossNone    Crossover = "none"
)

// RSIZone classifies an RSI reading against the configured thresholds.
type RSIZone string

const (
	RSIOversold   RSIZone = "oversold"
	RSIOverbought RSIZone = "overbought"
	RSINeutral    RSIZone = "neutral"
)

// Intensity grades how far a funding rate sits beyond its thresholds.
type Intensity string

const (
	IntensityExtreme  Intensity = "extreme"
	IntensityHigh     Intensity = "high"
	IntensityModerate Intensity = "moderate"
	IntensityLow      Intensity = "low"
)

// Candle is one OHLCV bar. Providers must return candles in chronological
// order with monotonic open times.
type Candle struct {
	OpenTime    time.Time `json:"open_time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	QuoteVolume float64   `json:"quote_volume"`
}

// Trade is a single tape entry used by the liquidation estimator.
type Trade struct {
	Price        float64   `json:"price"`
	Qty          float64   `json:"qty"`
	QuoteQty     float64   `json:"quote_qty"`
	Time         time.Time `json:"time"`
	IsBuyerMaker bool      `json:"is_buyer_maker"`
}

// FundingRate is one funding reading for a perpetual contract.
type FundingRate struct {
	Symbol          string    `json:"symbol"`
	RatePercent     float64   `json:"rate_percent"`
	RateRaw         float64   `json:"rate_raw"`
	NextFundingTime time.Time `json:"next_funding_time,omitempty"`
}

// Technical is the outcome of the price-momentum lens for one
// (symbol, timeframe) evaluation. Built once, never mutated.
type Technical struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`

	RSI     float64 `json:"rsi"`
	RSIZone RSIZone `json:"rsi_zone"`

	MACD          float64   `json:"macd"`
	MACDSignal    float64   `json:"macd_signal"`
	MACDHistogram float64   `json:"macd_histogram"`
	MACDCrossover Crossover `json:"macd_crossover"`

	EMAShort     float64   `json:"ema_short"`
	EMALong      float64   `json:"ema_long"`
	EMACrossover Crossover `json:"ema_crossover"`
	PriceVsEMA   float64   `json:"price_vs_ema"` // percent above/below long EMA

	VolumeRatio float64 `json:"volume_ratio"`
	VolumeSpike bool    `json:"volume_spike"`

	CurrentPrice       float64 `json:"current_price"`
	PriceChangePercent float64 `json:"price_change_percent"`

	Bias     Direction `json:"bias"`
	Strength float64   `json:"strength"` // 0-10
}

// Funding is the outcome of the funding-rate sentiment lens.
type Funding struct {
	Symbol          string    `json:"symbol"`
	RatePercent     float64   `json:"rate_percent"`
	RateRaw         float64   `json:"rate_raw"`
	NextFundingTime time.Time `json:"next_funding_time,omitempty"`

	Signal      Direction `json:"signal"`
	Intensity   Intensity `json:"intensity"`
	Description string    `json:"description"`
	Score       float64   `json:"score"` // 0-10
}

// Liquidation is the outcome of the liquidation-flow lens. Totals are
// estimates derived from the trade tape, not exchange-reported figures.
type Liquidation struct {
	Symbol string `json:"symbol"`

	LongUSD  float64 `json:"long_liquidations_usd"`
	ShortUSD float64 `json:"short_liquidations_usd"`
	NetUSD   float64 `json:"net_liquidations_usd"` // positive = more longs liquidated

	Signal      Direction `json:"signal"`
	Description string    `json:"description"`
	Score       float64   `json:"score"` // 0-10
}

// Aggregated is the merged output of the three lenses for one
// (symbol, timeframe). Immutable after construction; the component signals
// keep their own independent scores.
type Aggregated struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Type       Direction `json:"signal_type"`
	Strength   Strength  `json:"strength"`
	TotalScore float64   `json:"total_score"` // 0-10

	Technical   *Technical   `json:"technical_signal,omitempty"`
	Funding     *Funding     `json:"funding_signal,omitempty"`
	Liquidation *Liquidation `json:"liquidation_signal,omitempty"`

	TechnicalScore   float64 `json:"technical_score"`
	FundingScore     float64 `json:"funding_score"`
	LiquidationScore float64 `json:"liquidation_score"`

	ConfluenceCount int     `json:"confluence_count"`
	ConfluenceBonus float64 `json:"confluence_bonus"`

	Timestamp time.Time `json:"timestamp"`
	Reasons   []string  `json:"reasons"`
}
