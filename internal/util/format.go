package util

import (
	"math"
	"strconv"
)

// FormatUSD renders a dollar amount with thousands separators and no cents.
func FormatUSD(v float64) string {
	neg := v < 0
	s := strconv.FormatFloat(math.Round(math.Abs(v)), 'f', -1, 64)
	out := make([]byte, 0, len(s)+len(s)/3+1)
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
