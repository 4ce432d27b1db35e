package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

func defaultEstimator() *Estimator {
	return NewEstimator(config.Default().Flow)
}

func TestDominant(t *testing.T) {
	tests := []struct {
		name  string
		peaks [therm.NumChannels]Peak
		want  therm.Channel
	}{
		{
			name:  "east dominates",
			peaks: [therm.NumChannels]Peak{{DeltaT: 0.1}, {DeltaT: 0.5}, {DeltaT: 0.2}, {DeltaT: 0.1}},
			want:  therm.East,
		},
		{
			name:  "west dominates",
			peaks: [therm.NumChannels]Peak{{DeltaT: 0.1}, {DeltaT: 0.1}, {DeltaT: 0.2}, {DeltaT: 0.9}},
			want:  therm.West,
		},
		{
			name:  "tie breaks to lowest index",
			peaks: [therm.NumChannels]Peak{{DeltaT: 0.3}, {DeltaT: 0.3}, {DeltaT: 0.3}, {DeltaT: 0.3}},
			want:  therm.North,
		},
		{
			name:  "all zero",
			peaks: [therm.NumChannels]Peak{},
			want:  therm.North,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dominant(tt.peaks))
		})
	}
}

func TestEstimate_Stagnant(t *testing.T) {
	est := defaultEstimator()

	// Every rise below the 0.05°C threshold: legitimate "no measurable flow"
	peaks := [therm.NumChannels]Peak{
		{DeltaT: 0.04, Time: 10},
		{DeltaT: 0.04, Time: 12},
		{DeltaT: 0.03, Time: 14},
		{DeltaT: 0.04, Time: 16},
	}

	result := est.Estimate(peaks)

	assert.True(t, result.Valid)
	assert.Equal(t, 0.0, result.VelocityCmDay)
	assert.Equal(t, DirectionUndefined, result.DirectionDeg)
	// Peaks are still echoed for diagnostics
	assert.Equal(t, 0.04, result.PeakTemps[therm.North])
	assert.Equal(t, 10.0, result.PeakTimes[therm.North])
}

func TestEstimate_CardinalDirections(t *testing.T) {
	est := defaultEstimator()

	tests := []struct {
		name     string
		dominant therm.Channel
		wantDeg  float64
	}{
		{name: "north", dominant: therm.North, wantDeg: 0},
		{name: "east", dominant: therm.East, wantDeg: 90},
		{name: "south", dominant: therm.South, wantDeg: 180},
		{name: "west", dominant: therm.West, wantDeg: 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var peaks [therm.NumChannels]Peak
			peaks[tt.dominant] = Peak{DeltaT: 0.5, Time: 9.0}

			result := est.Estimate(peaks)

			assert.True(t, result.Valid)
			assert.InDelta(t, tt.wantDeg, result.DirectionDeg, 1e-9)
			assert.InDelta(t, 900.0/9.0, result.VelocityCmDay, 1e-9)
		})
	}
}

func TestEstimate_IntercardinalInterpolation(t *testing.T) {
	est := defaultEstimator()

	// Equal N and E rises interpolate to a northeast direction
	peaks := [therm.NumChannels]Peak{
		{DeltaT: 0.4, Time: 10},
		{DeltaT: 0.4, Time: 11},
		{},
		{},
	}

	result := est.Estimate(peaks)

	assert.InDelta(t, 45.0, result.DirectionDeg, 1e-9)
}

func TestEstimate_WraparoundAtNorth(t *testing.T) {
	est := defaultEstimator()

	// Equal N and W rises must give 315°, not the arithmetic mean 135°
	peaks := [therm.NumChannels]Peak{
		{DeltaT: 0.4, Time: 10},
		{},
		{},
		{DeltaT: 0.4, Time: 11},
	}

	result := est.Estimate(peaks)

	assert.InDelta(t, 315.0, result.DirectionDeg, 1e-9)
}

func TestEstimate_VelocityInverseTime(t *testing.T) {
	est := defaultEstimator()

	peaksAt := func(peakTime float64) [therm.NumChannels]Peak {
		var peaks [therm.NumChannels]Peak
		peaks[therm.East] = Peak{DeltaT: 0.5, Time: peakTime}
		return peaks
	}

	// Doubling the peak time halves the velocity
	v10 := est.Estimate(peaksAt(10)).VelocityCmDay
	v20 := est.Estimate(peaksAt(20)).VelocityCmDay
	assert.InDelta(t, v10/2.0, v20, 1e-9)
	assert.InDelta(t, 90.0, v10, 1e-9)
}

func TestEstimate_PeakTimeFloor(t *testing.T) {
	est := defaultEstimator()

	peaksAt := func(peakTime float64) [therm.NumChannels]Peak {
		var peaks [therm.NumChannels]Peak
		peaks[therm.North] = Peak{DeltaT: 0.5, Time: peakTime}
		return peaks
	}

	// Times below the 0.5s floor all clamp to the same bounded velocity
	vFloor := est.Estimate(peaksAt(0.5)).VelocityCmDay
	vBelow := est.Estimate(peaksAt(0.1)).VelocityCmDay
	vZero := est.Estimate(peaksAt(0)).VelocityCmDay

	assert.InDelta(t, 1800.0, vFloor, 1e-9)
	assert.Equal(t, vFloor, vBelow)
	assert.Equal(t, vFloor, vZero)
}

func TestEstimate_EchoesAllPeaks(t *testing.T) {
	est := defaultEstimator()

	peaks := [therm.NumChannels]Peak{
		{DeltaT: 0.1, Time: 1},
		{DeltaT: 0.6, Time: 5},
		{DeltaT: 0.3, Time: 7},
		{DeltaT: 0.2, Time: 9},
	}

	result := est.Estimate(peaks)

	for j := range peaks {
		assert.Equal(t, peaks[j].DeltaT, result.PeakTemps[j])
		assert.Equal(t, peaks[j].Time, result.PeakTimes[j])
	}
}
