package probe

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/waterxchange/gowxflow/pkg/config"
)

// Mock simulates a flow probe for testing and development. It models the
// advection of the heat pulse past the four thermistors: the channel whose
// bearing matches the configured flow direction sees the largest and
// earliest rise, the upstream channel sees almost none.
type Mock struct {
	cfg *config.Config

	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	// Heater state
	heater      bool
	heaterOnAt  time.Time
	heaterOffAt time.Time
	everFired   bool

	startTime time.Time
}

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)

// Bearings of the four channels in sample order (N, E, S, W).
var mockBearings = [numTherm]float64{0, 90, 180, 270}

// NewMock creates a new mocked probe instance. The full configuration is
// needed because the simulation runs the thermistor model in reverse to
// produce believable ADC counts.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:       cfg,
		samples:   make(chan RawSample, DefaultBufferSize),
		ctx:       ctx,
		cancel:    cancel,
		connected: false,
	}
}

// Connect simulates connecting to the device.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = time.Now()
	m.heater = false
	m.everFired = false

	// Start generating samples
	go m.generateSamples()

	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	// The generator goroutine closes the samples channel when it exits
	m.cancel()
	m.connected = false

	return nil
}

// Samples returns the channel for reading samples.
func (m *Mock) Samples() <-chan RawSample {
	return m.samples
}

// SetHeater sets the heater state (simulated).
func (m *Mock) SetHeater(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	now := time.Now()
	if on && !m.heater {
		m.heaterOnAt = now
		m.everFired = true
	}
	if !on && m.heater {
		m.heaterOffAt = now
	}
	m.heater = on

	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// generateSamples generates simulated samples. It owns the samples channel
// and closes it on exit, so Close never races a send with the closure.
func (m *Mock) generateSamples() {
	defer close(m.samples)

	ticker := time.NewTicker(m.cfg.Mock.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			sample := m.generateSample()
			select {
			case m.samples <- sample:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateSample generates a single simulated sample.
func (m *Mock) generateSample() RawSample {
	m.mu.RLock()
	now := time.Now()
	heater := m.heater
	heaterOnAt := m.heaterOnAt
	heaterOffAt := m.heaterOffAt
	everFired := m.everFired
	m.mu.RUnlock()

	mc := m.cfg.Mock

	var sample RawSample
	sample.Timestamp = now
	sample.Heater = heater

	for j := range sample.Therm {
		temp := mc.BaselineTempC

		switch {
		case heater:
			// Conduction warms all channels slowly while the heater is on
			onFor := now.Sub(heaterOnAt).Seconds()
			temp += mc.ConductionRiseC * math.Min(onFor/4.0, 1.0)
		case everFired && now.After(heaterOffAt):
			temp += m.pulseRise(j, now.Sub(heaterOffAt).Seconds())
		}

		// Deterministic pseudo-noise from incommensurate sinusoids
		elapsed := now.Sub(m.startTime)
		noise := (math.Sin(float64(elapsed.Nanoseconds())*0.001) +
			math.Cos(float64(elapsed.Nanoseconds())*0.0013)) *
			mc.NoiseLevel * 0.5
		temp += noise

		sample.Therm[j] = m.countsFor(temp)
	}

	return sample
}

// pulseRise models the advected heat pulse seen by channel j at t seconds
// after heater off. The rise follows a skewed pulse shape peaking at the
// advection delay; the amplitude is weighted by how well the channel's
// bearing aligns with the flow direction.
func (m *Mock) pulseRise(j int, t float64) float64 {
	mc := m.cfg.Mock

	if mc.FlowVelocityCmDay <= 0 {
		// Stagnant water: slow symmetric diffusion only
		const diffusionPeakS = 30.0
		shape := (t / diffusionPeakS) * math.Exp(1.0-t/diffusionPeakS)
		return mc.ConductionRiseC * shape
	}

	// Advection delay from the same empirical relation the estimator inverts
	tPeak := m.cfg.Flow.CalK / mc.FlowVelocityCmDay
	if tPeak < 0.6 {
		tPeak = 0.6
	}

	// Alignment weight: 1 downstream, 0 upstream
	delta := (mockBearings[j] - mc.FlowDirectionDeg) * math.Pi / 180.0
	weight := 0.5 * (1.0 + math.Cos(delta))

	amplitude := mc.ConductionRiseC + mc.MaxRiseC*weight
	shape := (t / tPeak) * math.Exp(1.0-t/tPeak)
	return amplitude * shape
}

// countsFor runs the thermistor model in reverse: temperature to NTC
// resistance, resistance to divider voltage, voltage to ADC counts.
func (m *Mock) countsFor(tempC float64) int16 {
	th := m.cfg.Thermistor
	dv := m.cfg.Divider

	tK := tempC + 273.15
	t0K := th.NominalT + 273.15
	r := th.NominalR * math.Exp(th.BCoeff*(1.0/tK-1.0/t0K))

	voltage := dv.VRef * r / (dv.SeriesR + r)

	counts := voltage / dv.VoltsPerCount
	if counts < 0 {
		counts = 0
	} else if counts > 32767 {
		counts = 32767
	}
	return int16(counts)
}
