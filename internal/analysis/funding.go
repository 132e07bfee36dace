package analysis

import (
	"fmt"
	"math"
	"time"

	"perpscan-go/internal/signal"
	"perpscan-go/internal/util"
)

// FundingConfig holds the signed percentage thresholds for the funding lens.
// The high thresholds must sit strictly between zero and their extreme.
type FundingConfig struct {
	ExtremePositive float64
	ExtremeNegative float64
	HighPositive    float64
	HighNegative    float64
}

// DefaultFundingConfig returns the standard thresholds (percent per interval).
func DefaultFundingConfig() FundingConfig {
	return FundingConfig{
		ExtremePositive: 0.1,
		ExtremeNegative: -0.1,
		HighPositive:    0.05,
		HighNegative:    -0.05,
	}
}

// moderateBand is the fixed band around zero inside which funding reads neutral.
const moderateBand = 0.01

type fundingOutcome struct {
	signal      signal.Direction
	intensity   signal.Intensity
	score       float64
	description string
}

type fundingRule struct {
	matches func(rate float64, cfg FundingConfig) bool
	build   func(rate float64, cfg FundingConfig) fundingOutcome
}

// fundingRules is evaluated top to bottom; the first matching rule wins.
// Thresholds compare the signed rate, never its absolute value.
var fundingRules = []fundingRule{
	{
		matches: func(rate float64, cfg FundingConfig) bool { return rate <= cfg.ExtremeNegative },
		build: func(rate float64, cfg FundingConfig) fundingOutcome {
			return fundingOutcome{
				signal:      signal.Long,
				intensity:   signal.IntensityExtreme,
				score:       math.Min(math.Abs(rate)/math.Abs(cfg.ExtremeNegative)*5, 10),
				description: fmt.Sprintf("Extreme negative funding (%.4f%%). Shorts are paying longs heavily - potential long opportunity.", rate),
			}
		},
	},
	{
		matches: func(rate float64, cfg FundingConfig) bool { return rate <= cfg.HighNegative },
		build: func(rate float64, cfg FundingConfig) fundingOutcome {
			return fundingOutcome{
				signal:      signal.Long,
				intensity:   signal.IntensityHigh,
				score:       math.Min(math.Abs(rate)/math.Abs(cfg.ExtremeNegative)*4, 7),
				description: fmt.Sprintf("High negative funding (%.4f%%). Shorts paying longs - consider long positions.", rate),
			}
		},
	},
	{
		matches: func(rate float64, cfg FundingConfig) bool { return rate >= cfg.ExtremePositive },
		build: func(rate float64, cfg FundingConfig) fundingOutcome {
			return fundingOutcome{
				signal:      signal.Short,
				intensity:   signal.IntensityExtreme,
				score:       math.Min(rate/cfg.ExtremePositive*5, 10),
				description: fmt.Sprintf("Extreme positive funding (%.4f%%). Longs are paying shorts heavily - potential short opportunity.", rate),
			}
		},
	},
	{
		matches: func(rate float64, cfg FundingConfig) bool { return rate >= cfg.HighPositive },
		build: func(rate float64, cfg FundingConfig) fundingOutcome {
			return fundingOutcome{
				signal:      signal.Short,
				intensity:   signal.IntensityHigh,
				score:       math.Min(rate/cfg.ExtremePositive*4, 7),
				description: fmt.Sprintf("High positive funding (%.4f%%). Longs paying shorts - consider short positions.", rate),
			}
		},
	},
	{
		matches: func(rate float64, cfg FundingConfig) bool { return rate > moderateBand },
		build: func(rate float64, cfg FundingConfig) fundingOutcome {
			return fundingOutcome{
				signal:      signal.Short,
				intensity:   signal.IntensityModerate,
				score:       2,
				description: fmt.Sprintf("Moderate positive funding (%.4f%%). Slight bearish bias.", rate),
			}
		},
	},
	{
		matches: func(rate float64, cfg FundingConfig) bool { return rate < -moderateBand },
		build: func(rate float64, cfg FundingConfig) fundingOutcome {
			return fundingOutcome{
				signal:      signal.Long,
				intensity:   signal.IntensityModerate,
				score:       2,
				description: fmt.Sprintf("Moderate negative funding (%.4f%%). Slight bullish bias.", rate),
			}
		},
	},
}

// AnalyzeFunding classifies one funding-rate reading (in percent) into a
// directional signal with an intensity grade and a 0-10 score.
func AnalyzeFunding(symbol string, ratePercent float64, nextFunding time.Time, cfg FundingConfig) *signal.Funding {
	outcome := fundingOutcome{
		signal:      signal.Neutral,
		intensity:   signal.IntensityLow,
		score:       0,
		description: fmt.Sprintf("Neutral funding rate (%.4f%%). No clear signal.", ratePercent),
	}
	for _, rule := range fundingRules {
		if rule.matches(ratePercent, cfg) {
			outcome = rule.build(ratePercent, cfg)
			break
		}
	}

	return &signal.Funding{
		Symbol:          symbol,
		RatePercent:     ratePercent,
		RateRaw:         ratePercent / 100,
		NextFundingTime: nextFunding,
		Signal:          outcome.signal,
		Intensity:       outcome.intensity,
		Description:     outcome.description,
		Score:           util.Round1(outcome.score),
	}
}
