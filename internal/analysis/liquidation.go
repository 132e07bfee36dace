package analysis

import (
	"fmt"
	"math"
	"sort"

	"perpscan-go/internal/signal"
	"perpscan-go/internal/util"
)

// LiquidationConfig tunes the tape estimator and the significance classifier.
type LiquidationConfig struct {
	ThresholdUSD          float64 // notional below half of this reads as low activity
	PriceThresholdPercent float64 // per-trade move that flags a likely liquidation
}

// DefaultLiquidationConfig returns the standard $1M significance threshold
// and 0.5% shock threshold.
func DefaultLiquidationConfig() LiquidationConfig {
	return LiquidationConfig{
		ThresholdUSD:          1_000_000,
		PriceThresholdPercent: 0.5,
	}
}

// EstimateLiquidations approximates long/short liquidation notional from a
// trade tape. Exchanges do not expose liquidations over public REST, so a
// sharp move between consecutive trades stands in for one: a sell into a
// drop beyond the threshold counts as a long liquidation, a buy into a rise
// as a short liquidation. The tape is re-sorted by timestamp defensively.
func EstimateLiquidations(trades []signal.Trade, priceThresholdPercent float64) (longUSD, shortUSD float64) {
	if len(trades) < 2 {
		return 0, 0
	}
	sorted := make([]signal.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		if prev.Price <= 0 {
			continue
		}
		trade := sorted[i]
		change := (trade.Price - prev.Price) / prev.Price * 100

		switch {
		case change < -priceThresholdPercent && trade.IsBuyerMaker:
			longUSD += trade.QuoteQty
		case change > priceThresholdPercent && !trade.IsBuyerMaker:
			shortUSD += trade.QuoteQty
		}
	}
	return longUSD, shortUSD
}

// AnalyzeLiquidations classifies long/short liquidation totals against a
// significance threshold. One side must both clear the threshold and exceed
// the other by 1.5x before a direction is called; everything else is neutral
// with score 0.
func AnalyzeLiquidations(symbol string, longUSD, shortUSD, thresholdUSD float64) *signal.Liquidation {
	total := longUSD + shortUSD

	out := &signal.Liquidation{
		Symbol:   symbol,
		LongUSD:  longUSD,
		ShortUSD: shortUSD,
		NetUSD:   longUSD - shortUSD,
		Signal:   signal.Neutral,
	}

	switch {
	case total < thresholdUSD/2:
		out.Description = fmt.Sprintf("Low liquidation activity. Longs: $%s, Shorts: $%s",
			util.FormatUSD(longUSD), util.FormatUSD(shortUSD))

	case longUSD >= thresholdUSD && longUSD > shortUSD*1.5:
		out.Signal = signal.Long
		magnitude := math.Min(longUSD/thresholdUSD, 5)
		imbalance := math.Min(longUSD/math.Max(shortUSD, 1)-1, 5)
		out.Score = util.Round1(math.Min(magnitude+imbalance, 10))
		out.Description = fmt.Sprintf("Large long liquidations detected ($%s). Potential capitulation - consider long positions.",
			util.FormatUSD(longUSD))

	case shortUSD >= thresholdUSD && shortUSD > longUSD*1.5:
		out.Signal = signal.Short
		magnitude := math.Min(shortUSD/thresholdUSD, 5)
		imbalance := math.Min(shortUSD/math.Max(longUSD, 1)-1, 5)
		out.Score = util.Round1(math.Min(magnitude+imbalance, 10))
		out.Description = fmt.Sprintf("Large short liquidations detected ($%s). Potential short squeeze exhaustion - consider short positions.",
			util.FormatUSD(shortUSD))

	case total >= thresholdUSD:
		out.Description = fmt.Sprintf("Balanced liquidations. Longs: $%s, Shorts: $%s",
			util.FormatUSD(longUSD), util.FormatUSD(shortUSD))

	default:
		out.Description = "No significant liquidation activity detected."
	}

	return out
}
