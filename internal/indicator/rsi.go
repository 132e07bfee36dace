package indicator

import "fmt"

// RSI computes the Relative Strength Index over the trailing period bars.
// Average gain and loss are simple means of the last period deltas, with the
// opposite sign zero-filled each bar. A zero average loss saturates the
// result to exactly 100.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("rsi: period %d: %w", period, ErrInsufficientData)
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("rsi: need %d closes, have %d: %w", period+1, len(closes), ErrInsufficientData)
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}
