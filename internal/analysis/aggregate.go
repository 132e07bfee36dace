package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"perpscan-go/internal/signal"
	"perpscan-go/internal/util"
)

// Weights sets the share each lens contributes to the aggregated score.
type Weights struct {
	Technical   float64
	Funding     float64
	Liquidation float64
}

// DefaultWeights favors technicals, then funding, then liquidation flow.
func DefaultWeights() Weights {
	return Weights{Technical: 0.50, Funding: 0.30, Liquidation: 0.20}
}

// StrengthFor buckets a total score into its confidence category.
func StrengthFor(score float64) signal.Strength {
	switch {
	case score >= 8.5:
		return signal.VeryStrong
	case score >= 7:
		return signal.Strong
	case score >= 5:
		return signal.Moderate
	default:
		return signal.Weak
	}
}

// Aggregate merges up to three lens outputs into one directional signal.
// Each present, non-neutral lens contributes its score times its weight to
// the side it leans toward; the stronger side wins, agreeing lenses earn a
// confluence bonus, and the total is capped at 10. A tie (including all
// lenses neutral or absent) yields a neutral signal with score 0.
func Aggregate(symbol, timeframe string, technical *signal.Technical, funding *signal.Funding, liquidation *signal.Liquidation, weights Weights) signal.Aggregated {
	var longScore, shortScore float64
	var techContrib, fundingContrib, liqContrib float64
	var agreeLong, agreeShort int
	reasons := make([]string, 0, 4)

	// Lenses are evaluated in a fixed order so the reason list is stable:
	// technical, funding, liquidation.
	if technical != nil && technical.Bias != signal.Neutral {
		techContrib = technical.Strength * weights.Technical
		reason := fmt.Sprintf("Technical: %s (RSI: %.1f, MACD: %s)",
			strings.ToUpper(technical.Bias.String()), technical.RSI, technical.MACDCrossover)
		if technical.Bias == signal.Long {
			longScore += techContrib
			agreeLong++
		} else {
			shortScore += techContrib
			agreeShort++
		}
		reasons = append(reasons, reason)
	}

	if funding != nil && funding.Signal != signal.Neutral {
		fundingContrib = funding.Score * weights.Funding
		if funding.Signal == signal.Long {
			longScore += fundingContrib
			agreeLong++
			reasons = append(reasons, fmt.Sprintf("Funding: %s negative (%.4f%%)",
				strings.ToUpper(string(funding.Intensity)), funding.RatePercent))
		} else {
			shortScore += fundingContrib
			agreeShort++
			reasons = append(reasons, fmt.Sprintf("Funding: %s positive (%.4f%%)",
				strings.ToUpper(string(funding.Intensity)), funding.RatePercent))
		}
	}

	if liquidation != nil && liquidation.Signal != signal.Neutral {
		liqContrib = liquidation.Score * weights.Liquidation
		if liquidation.Signal == signal.Long {
			longScore += liqContrib
			agreeLong++
			reasons = append(reasons, fmt.Sprintf("Liquidations: Long cascade ($%s)", util.FormatUSD(liquidation.LongUSD)))
		} else {
			shortScore += liqContrib
			agreeShort++
			reasons = append(reasons, fmt.Sprintf("Liquidations: Short squeeze ($%s)", util.FormatUSD(liquidation.ShortUSD)))
		}
	}

	signalType := signal.Neutral
	var baseScore float64
	var confluence int
	switch {
	case longScore > shortScore:
		signalType = signal.Long
		baseScore = longScore
		confluence = agreeLong
	case shortScore > longScore:
		signalType = signal.Short
		baseScore = shortScore
		confluence = agreeShort
	}

	var bonus float64
	switch {
	case confluence >= 3:
		bonus = 1.5
		reasons = append(reasons, "Strong confluence: All 3 signals agree")
	case confluence == 2:
		bonus = 0.75
		reasons = append(reasons, "Good confluence: 2 signals agree")
	}

	totalScore := util.Round1(math.Min(baseScore+bonus, 10))

	return signal.Aggregated{
		Symbol:           symbol,
		Timeframe:        timeframe,
		Type:             signalType,
		Strength:         StrengthFor(totalScore),
		TotalScore:       totalScore,
		Technical:        technical,
		Funding:          funding,
		Liquidation:      liquidation,
		TechnicalScore:   util.Round1(techContrib),
		FundingScore:     util.Round1(fundingContrib),
		LiquidationScore: util.Round1(liqContrib),
		ConfluenceCount:  confluence,
		ConfluenceBonus:  bonus,
		Timestamp:        time.Now().UTC(),
		Reasons:          reasons,
	}
}
