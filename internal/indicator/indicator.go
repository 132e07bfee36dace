// Package indicator provides pure numeric functions over chronological price
// and volume series. Nothing in here holds state; every function is safe to
// call concurrently.
package indicator

import (
	"errors"
	"fmt"

	"perpscan-go/internal/signal"
)

// ErrInsufficientData is returned when a series is shorter than the minimum
// an indicator needs. Callers are expected to skip the evaluation rather
// than work with a silently wrong number.
var ErrInsufficientData = errors.New("insufficient data")

// Closes extracts the close column from a candle series.
func Closes(candles []signal.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volume column from a candle series.
func Volumes(candles []signal.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// EMA computes an exponential moving average series with smoothing factor
// 2/(period+1), seeded by the first value rather than a warmup SMA.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("ema: period %d: %w", period, ErrInsufficientData)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("ema: empty series: %w", ErrInsufficientData)
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

// SMA returns the simple moving average of the trailing period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period {
		return 0, fmt.Errorf("sma: need %d values, have %d: %w", period, len(values), ErrInsufficientData)
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}
