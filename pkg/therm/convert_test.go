package therm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/probe"
)

// With the default calibration (VRef 3.3V, 10k series, 10k NTC @25°C,
// 0.000125 V/count) the divider sits at exactly VRef/2 = 1.65V when the
// thermistor is at its nominal temperature: 1.65 / 0.000125 = 13200 counts.
const nominalCounts = 13200

func TestTemperature_NominalPoint(t *testing.T) {
	conv := NewConverter(config.Default())

	got := conv.Temperature(nominalCounts)
	assert.InDelta(t, 25.0, got, 0.001, "R = R0 must convert to the nominal temperature")
}

func TestTemperature_ColdGroundwater(t *testing.T) {
	conv := NewConverter(config.Default())

	// 14°C water: NTC ≈ 16618Ω, divider at 2.060V, 16482 counts. Typical
	// groundwater sits above the nominal point, not near the int16 limit.
	got := conv.Temperature(16482)
	assert.InDelta(t, 14.0, got, 0.05)
}

func TestTemperature_MonotonicDecreasing(t *testing.T) {
	conv := NewConverter(config.Default())

	// NTC: higher divider voltage means higher resistance means colder water.
	counts := []int16{10000, 12000, 13200, 14000, 16000, 20000}
	prev := conv.Temperature(counts[0])
	for _, c := range counts[1:] {
		got := conv.Temperature(c)
		assert.Less(t, got, prev, "temperature must decrease as counts increase (at %d counts)", c)
		prev = got
	}
}

func TestTemperature_Sentinel(t *testing.T) {
	conv := NewConverter(config.Default())

	tests := []struct {
		name string
		raw  int16
	}{
		{
			name: "zero counts",
			raw:  0,
		},
		{
			name: "negative counts",
			raw:  -100,
		},
		{
			name: "saturated at vref", // 3.3 / 0.000125 = 26400
			raw:  26400,
		},
		{
			name: "above vref",
			raw:  30000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conv.Temperature(tt.raw)
			assert.Equal(t, Invalid, got)
		})
	}
}

func TestTemperature_PlausibleRange(t *testing.T) {
	conv := NewConverter(config.Default())

	// Anything between a near-shorted and a near-saturated divider should
	// land in a physically plausible water temperature range.
	for raw := int16(4000); raw < 24000; raw += 500 {
		got := conv.Temperature(raw)
		assert.Greater(t, got, -50.0, "at %d counts", raw)
		assert.Less(t, got, 150.0, "at %d counts", raw)
	}
}

func TestReading_ConvertsAllChannels(t *testing.T) {
	conv := NewConverter(config.Default())

	now := time.Now()
	raw := probe.RawSample{
		Timestamp: now,
		Therm:     [NumChannels]int16{nominalCounts, nominalCounts, 0, nominalCounts},
	}

	r := conv.Reading(raw)

	assert.Equal(t, now, r.Timestamp)
	assert.InDelta(t, 25.0, r.Temp[North], 0.001)
	assert.InDelta(t, 25.0, r.Temp[East], 0.001)
	assert.Equal(t, Invalid, r.Temp[South])
	assert.InDelta(t, 25.0, r.Temp[West], 0.001)
}

func TestChannel_NamesAndBearings(t *testing.T) {
	assert.Equal(t, "N", North.String())
	assert.Equal(t, "E", East.String())
	assert.Equal(t, "S", South.String())
	assert.Equal(t, "W", West.String())
	assert.Equal(t, "?", Channel(7).String())

	assert.Equal(t, 0.0, North.Bearing())
	assert.Equal(t, 90.0, East.Bearing())
	assert.Equal(t, 180.0, South.Bearing())
	assert.Equal(t, 270.0, West.Bearing())
}
