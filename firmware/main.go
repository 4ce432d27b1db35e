//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

const numTherm = 4

var (
	adcs [numTherm]machine.ADC
	uart = machine.UART0

	// Heater state
	heaterOn        bool
	ignoreCountdown int

	// ADC averaging - running sums and a shared count. All four channels
	// are read in the same pass, so one count covers them all.
	thermSums   [numTherm]uint32
	sampleCount int

	// Timing
	lastADCRead time.Time

	// Serial buffer for reading commands
	serialBuffer [8]byte
	serialPos    int
)

func main() {
	// Configure heater pin as output
	PIN_HEATER.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_HEATER.Low()

	// Configure ADC pins and set up ADCs with highest resolution
	thermPins := [numTherm]machine.Pin{PIN_THERM_N, PIN_THERM_E, PIN_THERM_S, PIN_THERM_W}

	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}

	for i, pin := range thermPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	// Configure UART for heater control
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	// Initialize timing
	lastADCRead = time.Now()

	// Main loop
	for {
		now := time.Now()

		// Check for serial input (non-blocking)
		processSerial()

		// Read all four channels in one pass (every 1ms)
		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			readThermistors()
			lastADCRead = now
		}

		// Output once N samples have accumulated
		if sampleCount >= NUM_SAMPLES {
			outputAveragedValues()
			// Reset and start accumulating again
			for i := range thermSums {
				thermSums[i] = 0
			}
			sampleCount = 0
		}

		// Small delay to prevent tight loop (but still allow precise timing)
		time.Sleep(100 * time.Microsecond)
	}
}

// readThermistors samples all four divider voltages back to back. One pass
// takes a few microseconds, so the four counts are effectively simultaneous.
func readThermistors() {
	if ignoreCountdown > 0 {
		// Ignore this sample
		ignoreCountdown--
		return
	}

	for i := range adcs {
		thermSums[i] += uint32(adcs[i].Get())
	}
	sampleCount++
}

func outputAveragedValues() {
	n := sampleCount
	if n > NUM_SAMPLES {
		n = NUM_SAMPLES
	}
	if n == 0 {
		n = 1 // Avoid division by zero
	}

	// Get timestamp in unix microseconds
	now := time.Now()
	timestampMicros := now.UnixNano() / 1000 // Convert nanoseconds to microseconds

	// Output format: "unix_micros,n,e,s,w,h\n"
	// Example: "1234567890123,13250,13180,13407,13199,1\n"
	print(timestampMicros)
	for i := range thermSums {
		print(",")
		print(wireCount(thermSums[i], n))
	}
	print(",")
	if heaterOn {
		print("1")
	} else {
		print("0")
	}
	print("\n")
}

// wireCount converts an accumulated sum of raw ADC readings into one
// averaged count on the wire scale. machine.ADC.Get() scales to the full
// 0-65535 range whatever resolution is configured, so the average is taken
// back to microvolts and then quantized to the wire LSB.
func wireCount(sum uint32, n int) uint16 {
	avgMicrovolts := uint64(sum) * ADC_REFERENCE_MV * 1000 / (uint64(n) * 65536)
	return uint16(avgMicrovolts / WIRE_LSB_MICROVOLTS)
}

func processSerial() {
	// Read available bytes from serial
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		// Check for newline (end of line)
		if data == '\n' || data == '\r' {
			if serialPos == 1 {
				// We have exactly one digit, process the heater command
				updateHeaterState(serialBuffer[0] == '1')
			}
			// Reset buffer regardless of length
			serialPos = 0
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		// Only accept '0' or '1', one digit per command
		if data == '0' || data == '1' {
			if serialPos < 1 {
				serialBuffer[serialPos] = data
				serialPos++
			}
			// Extra digits before the newline are ignored
		} else {
			// Invalid character - reset buffer
			serialPos = 0
		}
	}
}

func updateHeaterState(on bool) {
	stateChanged := heaterOn != on
	heaterOn = on

	if heaterOn {
		PIN_HEATER.High()
	} else {
		PIN_HEATER.Low()
	}

	// A heater switch injects electrical noise into the dividers; drop the
	// next few samples and restart the running average.
	if stateChanged {
		ignoreCountdown = IGNORE_SAMPLES_AFTER_CHANGE
		for i := range thermSums {
			thermSums[i] = 0
		}
		sampleCount = 0
	}
}
