package probe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the standard baud rate for the probe MCU.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100

	// numTherm is the number of thermistor channels streamed per line.
	numTherm = 4
)

// RawSample represents one raw four-channel measurement from the probe MCU.
// The four counts come from a single sampling pass, so they are
// simultaneous enough to be treated as one atomic reading.
type RawSample struct {
	Timestamp time.Time
	Therm     [numTherm]int16 // Raw ADC counts, channel order N, E, S, W
	Heater    bool            // Heater state at sampling time
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the probe MCU.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial device instance with the specified port, baud
// rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:      port,
		baudRate:  baudRate,
		bufSize:   bufSize,
		samples:   make(chan RawSample, bufSize),
		ctx:       ctx,
		cancel:    cancel,
		connected: false,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		// Try to open the port to confirm it is usable
		port, err := serial.Open(name, &serial.Mode{
			BaudRate: DefaultBaudRate,
		})
		if err == nil {
			port.Close()
		}
		// Add the port either way; the open check is best-effort
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect connects to the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	// Start reading samples in a goroutine
	go d.readSamples()

	return nil
}

// Close closes the connection and stops reading samples.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	// Cancel context to stop reading goroutine
	d.cancel()

	// Close serial port; this unblocks the reader, which closes the
	// samples channel on its way out
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false

	return nil
}

// Samples returns the channel for reading samples.
func (d *Serial) Samples() <-chan RawSample {
	return d.samples
}

// SetHeater sets the heater state and sends the command to the MCU.
// The command is a single digit terminated by newline: "1\n" or "0\n".
func (d *Serial) SetHeater(on bool) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}

	cmd := "0\n"
	if on {
		cmd = "1\n"
	}

	_, err := d.conn.Write([]byte(cmd))
	if err != nil {
		return fmt.Errorf("failed to send heater command: %w", err)
	}

	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readSamples reads lines from the serial port and parses them into RawSample.
// It owns the samples channel: the channel is closed here on exit, never by
// Close, so a send can never race the closure.
func (d *Serial) readSamples() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readSamples: %v", r)
		}
	}()
	defer close(d.samples)

	scanner := bufio.NewScanner(d.conn)
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
			if !scanner.Scan() {
				// Scanner stopped (EOF or error)
				if err := scanner.Err(); err != nil {
					if err != io.EOF {
						log.Printf("Error reading from serial port: %v", err)
					}
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			sample, err := parseLine(line)
			if err != nil {
				log.Printf("Failed to parse line '%s': %v", line, err)
				continue
			}

			// Send sample to channel (non-blocking)
			select {
			case d.samples <- sample:
			case <-d.ctx.Done():
				return
			default:
				// Channel full, log and skip
				log.Printf("Samples channel full, dropping sample")
			}
		}
	}
}

// parseLine parses a line from the MCU into a RawSample.
// Format: unix_micros,n,e,s,w,heater
// Example: 1234567890123,13250,13180,13407,13199,1
func parseLine(line string) (RawSample, error) {
	parts := strings.Split(line, ",")
	if len(parts) != numTherm+2 {
		return RawSample{}, fmt.Errorf("invalid line format: expected %d comma-separated values, got %d", numTherm+2, len(parts))
	}

	// Parse timestamp (unix microseconds)
	timestampMicros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	timestamp := time.Unix(0, timestampMicros*1000) // Convert microseconds to nanoseconds

	// Parse the four thermistor counts (signed 16-bit, one per channel)
	var therm [numTherm]int16
	for j := 0; j < numTherm; j++ {
		count, err := strconv.ParseInt(parts[j+1], 10, 16)
		if err != nil {
			return RawSample{}, fmt.Errorf("invalid thermistor count %d: %w", j, err)
		}
		therm[j] = int16(count)
	}

	// Parse heater state (single digit)
	heaterStr := parts[numTherm+1]
	if heaterStr != "0" && heaterStr != "1" {
		return RawSample{}, fmt.Errorf("invalid heater state: %q", heaterStr)
	}

	return RawSample{
		Timestamp: timestamp,
		Therm:     therm,
		Heater:    heaterStr == "1",
	}, nil
}
