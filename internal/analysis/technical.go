// Package analysis implements the three analytical lenses (technical,
// funding, liquidation) and the weighted confluence aggregation that merges
// them into one ranked signal per symbol and timeframe.
package analysis

import (
	"fmt"
	"math"

	"perpscan-go/internal/indicator"
	"perpscan-go/internal/signal"
	"perpscan-go/internal/util"
)

// TechnicalConfig bundles the indicator periods and thresholds for the
// price-momentum lens. Passed by value; there is no global configuration.
type TechnicalConfig struct {
	RSIPeriod      int
	RSIOversold    float64
	RSIOverbought  float64
	EMAShortPeriod int
	EMALongPeriod  int
	MACDFast       int
	MACDSlow       int
	MACDSignal     int
	VolumePeriod   int
	VolumeSpike    float64 // multiplier of average volume that counts as a spike
}

// DefaultTechnicalConfig returns the standard periods and thresholds.
func DefaultTechnicalConfig() TechnicalConfig {
	return TechnicalConfig{
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
	}
}

// minBars is the shortest candle window the lens will accept.
func (c TechnicalConfig) minBars() int {
	longest := c.EMALongPeriod
	if c.MACDSlow > longest {
		longest = c.MACDSlow
	}
	return longest + 10
}

// AnalyzeTechnicals runs the full indicator suite over a chronological candle
// window and classifies the result into a directional bias with a strength.
// Windows shorter than the configured periods allow return an
// ErrInsufficientData-wrapped error; the caller skips that unit.
func AnalyzeTechnicals(candles []signal.Candle, symbol, timeframe string, cfg TechnicalConfig) (*signal.Technical, error) {
	if len(candles) < cfg.minBars() {
		return nil, fmt.Errorf("technical %s %s: need %d candles, have %d: %w",
			symbol, timeframe, cfg.minBars(), len(candles), indicator.ErrInsufficientData)
	}

	closes := indicator.Closes(candles)
	volumes := indicator.Volumes(candles)

	rsi, err := indicator.RSI(closes, cfg.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("technical %s %s: %w", symbol, timeframe, err)
	}
	macd, err := indicator.MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	if err != nil {
		return nil, fmt.Errorf("technical %s %s: %w", symbol, timeframe, err)
	}
	emaShort, err := indicator.EMA(closes, cfg.EMAShortPeriod)
	if err != nil {
		return nil, fmt.Errorf("technical %s %s: %w", symbol, timeframe, err)
	}
	emaLong, err := indicator.EMA(closes, cfg.EMALongPeriod)
	if err != nil {
		return nil, fmt.Errorf("technical %s %s: %w", symbol, timeframe, err)
	}
	volumeRatio := indicator.VolumeRatio(volumes, cfg.VolumePeriod)

	last := len(closes) - 1
	currentPrice := closes[last]

	priceChange := 0.0
	if last >= 1 && closes[last-1] != 0 {
		priceChange = (currentPrice - closes[last-1]) / closes[last-1] * 100
	}

	zone := signal.RSINeutral
	switch {
	case rsi <= cfg.RSIOversold:
		zone = signal.RSIOversold
	case rsi >= cfg.RSIOverbought:
		zone = signal.RSIOverbought
	}

	macdCross := indicator.DetectCrossover(macd.Line, macd.Signal)
	emaCross := indicator.DetectCrossover(emaShort, emaLong)

	priceVsEMA := 0.0
	if emaLong[last] != 0 {
		priceVsEMA = (currentPrice - emaLong[last]) / emaLong[last] * 100
	}
	volumeSpike := volumeRatio >= cfg.VolumeSpike

	bias, strength := CalculateBias(BiasInput{
		RSIZone:       zone,
		RSI:           rsi,
		RSIOversold:   cfg.RSIOversold,
		RSIOverbought: cfg.RSIOverbought,
		MACDCrossover: macdCross,
		MACDHistogram: macd.Histogram[last],
		EMACrossover:  emaCross,
		PriceVsEMA:    priceVsEMA,
		VolumeSpike:   volumeSpike,
	})

	return &signal.Technical{
		Symbol:             symbol,
		Timeframe:          timeframe,
		RSI:                rsi,
		RSIZone:            zone,
		MACD:               macd.Line[last],
		MACDSignal:         macd.Signal[last],
		MACDHistogram:      macd.Histogram[last],
		MACDCrossover:      macdCross,
		EMAShort:           emaShort[last],
		EMALong:            emaLong[last],
		EMACrossover:       emaCross,
		PriceVsEMA:         priceVsEMA,
		VolumeRatio:        volumeRatio,
		VolumeSpike:        volumeSpike,
		CurrentPrice:       currentPrice,
		PriceChangePercent: priceChange,
		Bias:               bias,
		Strength:           strength,
	}, nil
}

// BiasInput carries the classified indicator readings the bias scorer needs.
type BiasInput struct {
	RSIZone       signal.RSIZone
	RSI           float64
	RSIOversold   float64
	RSIOverbought float64
	MACDCrossover signal.Crossover
	MACDHistogram float64
	EMACrossover  signal.Crossover
	PriceVsEMA    float64
	VolumeSpike   bool
}

// CalculateBias accumulates long and short scores from the indicator
// readings and resolves them into a direction with a 0-10 strength.
// A margin of 1 between the sides is required before a direction is called;
// near-tied scores resolve to neutral with strength 0.
func CalculateBias(in BiasInput) (signal.Direction, float64) {
	var longScore, shortScore float64

	// RSI: up to 3 points, scaling with how deep into the zone the reading is.
	switch in.RSIZone {
	case signal.RSIOversold:
		intensity := (in.RSIOversold - in.RSI) / in.RSIOversold
		longScore += 2 + math.Min(intensity, 1)
	case signal.RSIOverbought:
		intensity := (in.RSI - in.RSIOverbought) / (100 - in.RSIOverbought)
		shortScore += 2 + math.Min(intensity, 1)
	}

	// MACD: a crossover is worth 2.5; without one the histogram sign gets 0.5.
	switch in.MACDCrossover {
	case signal.CrossBullish:
		longScore += 2.5
	case signal.CrossBearish:
		shortScore += 2.5
	default:
		if in.MACDHistogram > 0 {
			longScore += 0.5
		} else if in.MACDHistogram < 0 {
			shortScore += 0.5
		}
	}

	// EMA crossover: 2 points.
	switch in.EMACrossover {
	case signal.CrossBullish:
		longScore += 2
	case signal.CrossBearish:
		shortScore += 2
	}

	// Price stretched beyond 2% of the long EMA: up to 1.5 points.
	if in.PriceVsEMA > 2 {
		longScore += math.Min(in.PriceVsEMA/4, 1.5)
	} else if in.PriceVsEMA < -2 {
		shortScore += math.Min(math.Abs(in.PriceVsEMA)/4, 1.5)
	}

	// Volume spike amplifies whichever side already leads; a tie gets nothing.
	if in.VolumeSpike {
		if longScore > shortScore {
			longScore++
		} else if shortScore > longScore {
			shortScore++
		}
	}

	switch {
	case longScore > shortScore+1:
		return signal.Long, util.Round1(math.Min(longScore, 10))
	case shortScore > longScore+1:
		return signal.Short, util.Round1(math.Min(shortScore, 10))
	default:
		return signal.Neutral, 0
	}
}
