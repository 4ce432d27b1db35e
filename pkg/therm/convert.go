package therm

import (
	"math"
	"time"

	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/probe"
)

// Invalid is the sentinel temperature returned when the divider inversion
// yields an impossible or saturated state. Callers treat it as "no valid
// reading" for that sample; it is deliberately far outside the physical
// range so it never wins a peak comparison.
const Invalid = -999.0

const kelvinOffset = 273.15

// Reading holds one four-channel temperature sample (°C), indexed by Channel.
type Reading struct {
	Timestamp time.Time
	Temp      [NumChannels]float64
}

// Converter maps raw ADC counts to thermistor temperatures using the
// voltage divider inversion and the B-parameter Steinhart-Hart equation.
type Converter struct {
	voltsPerCount float64
	vref          float64
	seriesR       float64
	nominalR      float64
	nominalTK     float64 // Nominal temperature in Kelvin
	bCoeff        float64
}

// NewConverter creates a Converter from the divider and thermistor calibration.
func NewConverter(cfg *config.Config) *Converter {
	return &Converter{
		voltsPerCount: cfg.Divider.VoltsPerCount,
		vref:          cfg.Divider.VRef,
		seriesR:       cfg.Divider.SeriesR,
		nominalR:      cfg.Thermistor.NominalR,
		nominalTK:     cfg.Thermistor.NominalT + kelvinOffset,
		bCoeff:        cfg.Thermistor.BCoeff,
	}
}

// Temperature converts a raw ADC count on one channel to °C.
// Returns Invalid when the reading implies a non-positive or saturated
// divider state.
func (c *Converter) Temperature(raw int16) float64 {
	voltage := float64(raw) * c.voltsPerCount
	if voltage >= c.vref {
		// Saturated divider: the inversion below would blow up.
		return Invalid
	}

	// Voltage divider: V = VRef * R_therm / (R_series + R_therm)
	rTherm := c.seriesR * voltage / (c.vref - voltage)
	if rTherm <= 0 {
		return Invalid
	}

	// Steinhart-Hart simplified (B-parameter equation):
	// 1/T = 1/T0 + (1/B)·ln(R/R0)
	invT := 1.0/c.nominalTK + math.Log(rTherm/c.nominalR)/c.bCoeff
	return 1.0/invT - kelvinOffset
}

// Reading converts one raw four-channel sample to temperatures.
func (c *Converter) Reading(raw probe.RawSample) Reading {
	r := Reading{Timestamp: raw.Timestamp}
	for j := range raw.Therm {
		r.Temp[j] = c.Temperature(raw.Therm[j])
	}
	return r
}
