package indicator

// VolumeRatio compares the latest bar's volume against the mean of the
// trailing period bars. When the mean is zero or there is no history the
// ratio defaults to 1.0, never NaN.
func VolumeRatio(volumes []float64, period int) float64 {
	if len(volumes) == 0 || period <= 0 {
		return 1.0
	}
	window := volumes
	if len(volumes) > period {
		window = volumes[len(volumes)-period:]
	}
	var sum float64
	for _, v := range window {
		sum += v
	}
	avg := sum / float64(len(window))
	if avg <= 0 {
		return 1.0
	}
	return volumes[len(volumes)-1] / avg
}
