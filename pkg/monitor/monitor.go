// Package monitor buffers a live stream of thermistor readings for display:
// a rolling time window of samples plus per-channel peak rises against a
// caller-supplied baseline.
package monitor

import (
	"sync"
	"time"

	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/flow"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

// Monitor processes readings, maintains the display buffer, and tracks peaks.
// Internally the buffer is a FIFO ordered oldest first; removal is based on
// timestamp (time window), not sample count.
type Monitor struct {
	// Buffer (protected by mu)
	readings   []therm.Reading
	peaks      [therm.NumChannels]flow.Peak
	baseline   therm.Baseline
	baselined  bool
	baselineAt time.Time

	mu sync.RWMutex

	// Update callbacks receive copies of the current buffer and peaks
	callbacks []func(readings []therm.Reading, peaks [therm.NumChannels]flow.Peak)
	cbMu      sync.RWMutex

	windowDuration time.Duration

	// Set when the input channel closes; prevents further callbacks
	shutdown bool
}

// New creates a Monitor with the configured display window.
func New(cfg *config.Config) *Monitor {
	return &Monitor{
		readings:       make([]therm.Reading, 0),
		callbacks:      make([]func(readings []therm.Reading, peaks [therm.NumChannels]flow.Peak), 0),
		windowDuration: time.Duration(cfg.Monitor.WindowSeconds * float64(time.Second)),
	}
}

// ProcessReadings consumes readings from the input channel until it closes.
// When the input channel closes, it sets the shutdown flag to prevent
// further callbacks.
func (m *Monitor) ProcessReadings(input <-chan therm.Reading) {
	for r := range input {
		m.processReading(r)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// SetBaseline installs the reference against which peak rises are measured
// and resets the tracked peaks. Peak times are reported relative to the
// moment the baseline was set.
func (m *Monitor) SetBaseline(b therm.Baseline) {
	m.mu.Lock()
	m.baseline = b
	m.baselined = true
	m.baselineAt = time.Now()
	m.peaks = [therm.NumChannels]flow.Peak{}
	m.mu.Unlock()
}

// ClearBaseline stops peak tracking and clears the tracked peaks.
func (m *Monitor) ClearBaseline() {
	m.mu.Lock()
	m.baselined = false
	m.peaks = [therm.NumChannels]flow.Peak{}
	m.mu.Unlock()
}

// processReading adds a reading to the buffer, trims the window, and updates peaks.
func (m *Monitor) processReading(r therm.Reading) {
	m.mu.Lock()

	m.readings = append(m.readings, r)

	// Remove readings outside the time window (based on timestamp, not count)
	cutoffTime := r.Timestamp.Add(-m.windowDuration)
	cutoffIndex := 0
	for i, reading := range m.readings {
		if reading.Timestamp.After(cutoffTime) {
			cutoffIndex = i
			break
		}
	}
	if cutoffIndex > 0 {
		m.readings = m.readings[cutoffIndex:]
	}

	// Track peaks relative to the installed baseline
	if m.baselined {
		elapsed := r.Timestamp.Sub(m.baselineAt).Seconds()
		rise := m.baseline.Rise(r)
		for j := range rise {
			if rise[j] > m.peaks[j].DeltaT {
				m.peaks[j].DeltaT = rise[j]
				m.peaks[j].Time = elapsed
			}
		}
	}

	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

// Readings returns a copy of the current readings buffer, oldest first.
func (m *Monitor) Readings() []therm.Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]therm.Reading, len(m.readings))
	copy(result, m.readings)
	return result
}

// Peaks returns the peaks tracked since the baseline was set.
func (m *Monitor) Peaks() [therm.NumChannels]flow.Peak {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peaks
}

// OnUpdate registers a callback invoked after each processed reading.
// The callback should copy data quickly and return as fast as possible.
func (m *Monitor) OnUpdate(callback func(readings []therm.Reading, peaks [therm.NumChannels]flow.Peak)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown resets the shutdown flag, allowing callbacks to be sent
// again. Call before starting a new measurement chain.
func (m *Monitor) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes all registered callbacks with copies of the data.
func (m *Monitor) notifyCallbacks() {
	m.mu.RLock()
	readingsCopy := make([]therm.Reading, len(m.readings))
	copy(readingsCopy, m.readings)
	peaksCopy := m.peaks
	m.mu.RUnlock()

	m.cbMu.RLock()
	callbacks := make([]func(readings []therm.Reading, peaks [therm.NumChannels]flow.Peak), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	// Invoke callbacks without holding any locks
	for _, cb := range callbacks {
		if cb != nil {
			cb(readingsCopy, peaksCopy)
		}
	}
}
