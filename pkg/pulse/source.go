package pulse

import (
	"fmt"
	"sync"
	"time"

	"github.com/waterxchange/gowxflow/pkg/probe"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

// ADC is the sampling capability the sequencer needs: one simultaneous
// four-channel pass of raw counts.
type ADC interface {
	ReadAll() ([therm.NumChannels]int16, error)
}

// Heater is the heater control capability: a single digital output.
type Heater interface {
	Set(on bool) error
}

// DeviceSource adapts a streaming probe.Device into the ADC and Heater
// capabilities. It caches the most recent sample from the device stream so
// ReadAll never blocks on the serial link.
type DeviceSource struct {
	dev probe.Device

	mu   sync.RWMutex
	last probe.RawSample
	seen bool
}

// Ensure DeviceSource provides both capabilities.
var (
	_ ADC    = (*DeviceSource)(nil)
	_ Heater = (*DeviceSource)(nil)
)

// NewDeviceSource creates a DeviceSource over a connected device and starts
// caching the given sample stream. Callers that share the device stream with
// other consumers pass their own tee branch; headless callers pass
// dev.Samples() directly. The caching goroutine exits when the channel closes.
func NewDeviceSource(dev probe.Device, samples <-chan probe.RawSample) *DeviceSource {
	s := &DeviceSource{dev: dev}

	go func() {
		for sample := range samples {
			s.mu.Lock()
			s.last = sample
			s.seen = true
			s.mu.Unlock()
		}
	}()

	return s
}

// ReadAll returns the four raw counts of the most recent sample. It fails
// only when no sample has arrived yet.
func (s *DeviceSource) ReadAll() ([therm.NumChannels]int16, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.seen {
		return [therm.NumChannels]int16{}, fmt.Errorf("no sample received from probe yet")
	}
	return s.last.Therm, nil
}

// Set forwards the heater command to the device.
func (s *DeviceSource) Set(on bool) error {
	return s.dev.SetHeater(on)
}

// probeSample wraps raw counts in a probe.RawSample for conversion.
func probeSample(counts [therm.NumChannels]int16, ts time.Time) probe.RawSample {
	return probe.RawSample{Timestamp: ts, Therm: counts}
}
