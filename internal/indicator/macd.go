package indicator

import "fmt"

// MACDResult carries the full MACD line, signal line, and histogram series so
// callers can run crossover detection on the last two bars.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes macd = EMA(fast) - EMA(slow), a signal line as the EMA of the
// macd series, and the histogram as their difference.
func MACD(closes []float64, fast, slow, signalPeriod int) (MACDResult, error) {
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 || fast >= slow {
		return MACDResult{}, fmt.Errorf("macd: invalid periods %d/%d/%d: %w", fast, slow, signalPeriod, ErrInsufficientData)
	}
	if len(closes) < slow+signalPeriod {
		return MACDResult{}, fmt.Errorf("macd: need %d closes, have %d: %w", slow+signalPeriod, len(closes), ErrInsufficientData)
	}

	emaFast, err := EMA(closes, fast)
	if err != nil {
		return MACDResult{}, err
	}
	emaSlow, err := EMA(closes, slow)
	if err != nil {
		return MACDResult{}, err
	}

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	signalLine, err := EMA(line, signalPeriod)
	if err != nil {
		return MACDResult{}, err
	}
	histogram := make([]float64, len(closes))
	for i := range closes {
		histogram[i] = line[i] - signalLine[i]
	}
	return MACDResult{Line: line, Signal: signalLine, Histogram: histogram}, nil
}
