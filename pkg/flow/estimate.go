// Package flow derives flow velocity and direction from the per-channel
// peak temperature rises of one heat-pulse measurement cycle.
package flow

import (
	"math"

	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

// DirectionUndefined is the direction reported for a stagnant (unmeasurable)
// flow result.
const DirectionUndefined = -1.0

// Peak holds one channel's peak rise above baseline and the time it occurred.
type Peak struct {
	DeltaT float64 // Peak rise above baseline (°C)
	Time   float64 // Seconds since heater off at which the peak was recorded
}

// Result is the output of one measurement cycle.
type Result struct {
	VelocityCmDay float64                        // Flow velocity (cm/day), 0 for stagnant flow
	DirectionDeg  float64                        // Direction in [0,360), or DirectionUndefined
	PeakTemps     [therm.NumChannels]float64     // Peak ΔT per channel (°C)
	PeakTimes     [therm.NumChannels]float64     // Time to peak per channel (s)
	Valid         bool                           // False only if the cycle could not complete
}

// Estimator converts four channel peaks into a Result using the lab
// calibration constants.
type Estimator struct {
	threshold   float64 // Stagnation threshold (°C)
	calK        float64 // Empirical velocity constant (cm·s/day)
	minPeakTime float64 // Floor for peak time before dividing (s)
}

// NewEstimator creates an Estimator from the flow calibration.
func NewEstimator(cfg config.FlowConfig) *Estimator {
	return &Estimator{
		threshold:   cfg.StagnationThreshold,
		calK:        cfg.CalK,
		minPeakTime: cfg.MinPeakTimeS,
	}
}

// Dominant returns the channel with the largest peak rise. Ties break to
// the lowest channel index because the scan uses strict greater-than.
func Dominant(peaks [therm.NumChannels]Peak) therm.Channel {
	max := therm.North
	for j := max + 1; j < therm.NumChannels; j++ {
		if peaks[j].DeltaT > peaks[max].DeltaT {
			max = j
		}
	}
	return max
}

// Estimate produces a Result from the four channel peaks. A dominant rise
// below the stagnation threshold is a legitimate "no measurable flow"
// result, not a failure: velocity 0, direction undefined, Valid true.
func (e *Estimator) Estimate(peaks [therm.NumChannels]Peak) Result {
	result := Result{Valid: true}
	for j, p := range peaks {
		result.PeakTemps[j] = p.DeltaT
		result.PeakTimes[j] = p.Time
	}

	dominant := Dominant(peaks)

	if peaks[dominant].DeltaT < e.threshold {
		// No measurable flow: essentially stagnant
		result.VelocityCmDay = 0
		result.DirectionDeg = DirectionUndefined
		return result
	}

	result.DirectionDeg = circularMean(peaks)
	result.VelocityCmDay = e.velocity(peaks[dominant].Time)
	return result
}

// circularMean computes the ΔT-weighted circular mean of the four channel
// bearings. Averaging the sine and cosine components interpolates smoothly
// between adjacent channels (a NE flow raises both N and E) and avoids
// wraparound error at 0°/360°.
func circularMean(peaks [therm.NumChannels]Peak) float64 {
	var sinSum, cosSum float64
	for j, p := range peaks {
		rad := therm.Channel(j).Bearing() * math.Pi / 180.0
		sinSum += p.DeltaT * math.Sin(rad)
		cosSum += p.DeltaT * math.Cos(rad)
	}

	direction := math.Atan2(sinSum, cosSum) * 180.0 / math.Pi
	if direction < 0 {
		direction += 360.0
	}
	return direction
}

// velocity applies the empirical inverse relation v = K / t_peak. The peak
// time is floored before dividing to bound the velocity for near-instant
// pulses.
func (e *Estimator) velocity(peakTime float64) float64 {
	if peakTime < e.minPeakTime {
		peakTime = e.minPeakTime
	}
	return e.calK / peakTime
}
