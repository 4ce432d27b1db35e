//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS          = 1  // ADC read interval in milliseconds (same for all channels)
	NUM_SAMPLES                 = 20 // Number of samples to average per channel
	IGNORE_SAMPLES_AFTER_CHANGE = 10 // Ignore this many samples after a heater state change

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // Requested sampling resolution; Get() returns left-adjusted 16-bit values regardless

	// Wire scale. Counts are emitted in 0.125 mV steps, the LSB of the
	// ADS1115 used by the first probe revision, so one host-side
	// volts_per_count calibration covers both revisions and full scale
	// (3.3V) is 26400 counts, inside the signed 16-bit line format.
	WIRE_LSB_MICROVOLTS = 125

	// Heater pin
	PIN_HEATER = machine.D7

	// Thermistor divider ADC pins, channel order N, E, S, W
	PIN_THERM_N = machine.A0
	PIN_THERM_E = machine.A1
	PIN_THERM_S = machine.A2
	PIN_THERM_W = machine.A3

	// Serial configuration
	// Format "unix_micros,n,e,s,w,h\n" is ~40 bytes max per line.
	// 50 outputs/sec * 40 bytes/line = 2,000 bytes/sec; 115200 baud
	// (11,520 bytes/sec on 8N1) leaves ~5.7x headroom.
	UART_BAUD_RATE = 115200
)
