package therm

// Baseline holds the pre-pulse reference temperature per channel (°C).
// It is computed once per measurement cycle and never mutated after.
type Baseline [NumChannels]float64

// Average computes the per-channel arithmetic mean of the given readings.
// No outlier rejection: an Invalid sentinel in the input is absorbed into
// the mean, matching the probe's fail-safe behavior.
func Average(readings []Reading) Baseline {
	var b Baseline
	if len(readings) == 0 {
		return b
	}

	for _, r := range readings {
		for j := range r.Temp {
			b[j] += r.Temp[j]
		}
	}
	n := float64(len(readings))
	for j := range b {
		b[j] /= n
	}
	return b
}

// Rise returns the per-channel rise of the reading above the baseline.
func (b Baseline) Rise(r Reading) [NumChannels]float64 {
	var rise [NumChannels]float64
	for j := range rise {
		rise[j] = r.Temp[j] - b[j]
	}
	return rise
}
