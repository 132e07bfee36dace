package indicator

import "perpscan-go/internal/signal"

// DetectCrossover compares the sign of a-b at the last two bars of both
// series. A flip from negative to positive is bullish, positive to negative
// is bearish. Fewer than two bars on either series yields none.
func DetectCrossover(a, b []float64) signal.Crossover {
	if len(a) < 2 || len(b) < 2 {
		return signal.CrossNone
	}
	prev := a[len(a)-2] - b[len(b)-2]
	curr := a[len(a)-1] - b[len(b)-1]

	switch {
	case prev < 0 && curr > 0:
		return signal.CrossBullish
	case prev > 0 && curr < 0:
		return signal.CrossBearish
	default:
		return signal.CrossNone
	}
}
