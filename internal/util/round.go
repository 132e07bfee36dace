package util

import "math"

// Round1 rounds to one decimal place, half away from zero. All user-facing
// scores in the scanner share this convention.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Clamp10 bounds a score to the [0, 10] scale.
func Clamp10(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 10 {
		return 10
	}
	return x
}
