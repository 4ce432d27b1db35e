package probe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterxchange/gowxflow/pkg/config"
)

func TestMock_ConnectClose(t *testing.T) {
	m := NewMock(nil)

	assert.False(t, m.IsConnected())

	require.NoError(t, m.Connect())
	assert.True(t, m.IsConnected())
	assert.Error(t, m.Connect(), "double connect must fail")

	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())
	require.NoError(t, m.Close(), "double close is a no-op")
}

func TestMock_SetHeaterRequiresConnection(t *testing.T) {
	m := NewMock(nil)

	assert.Error(t, m.SetHeater(true))

	require.NoError(t, m.Connect())
	defer m.Close()

	assert.NoError(t, m.SetHeater(true))
	assert.NoError(t, m.SetHeater(false))
}

func TestMock_ProducesSamples(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.SampleRate = time.Millisecond

	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	select {
	case sample := <-m.Samples():
		assert.False(t, sample.Heater)
		for j, counts := range sample.Therm {
			assert.Greater(t, counts, int16(0), "channel %d", j)
		}
	case <-time.After(time.Second):
		t.Fatal("no sample produced within a second")
	}
}

func TestMock_HeaterFlagFollowsState(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.SampleRate = time.Millisecond

	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	require.NoError(t, m.SetHeater(true))

	deadline := time.After(time.Second)
	for {
		select {
		case sample := <-m.Samples():
			if sample.Heater {
				return
			}
		case <-deadline:
			t.Fatal("heater flag never appeared in the sample stream")
		}
	}
}

func TestMock_CountsForNominalTemperature(t *testing.T) {
	cfg := config.Default()
	m := NewMock(cfg)

	// At the NTC nominal temperature the divider sits at VRef/2:
	// 1.65V / 0.000125 V per count = 13200
	counts := m.countsFor(cfg.Thermistor.NominalT)
	assert.InDelta(t, 13200, float64(counts), 1)

	// Warmer water means lower NTC resistance means lower counts
	warmer := m.countsFor(cfg.Thermistor.NominalT + 5)
	assert.Less(t, warmer, counts)
	colder := m.countsFor(cfg.Thermistor.NominalT - 5)
	assert.Greater(t, colder, counts)
}

func TestMock_PulseRiseDownstreamDominates(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.FlowVelocityCmDay = 100.0
	cfg.Mock.FlowDirectionDeg = 90.0 // Flow toward east
	m := NewMock(cfg)

	// Sample each channel at the expected advection delay
	tPeak := cfg.Flow.CalK / cfg.Mock.FlowVelocityCmDay
	riseN := m.pulseRise(0, tPeak)
	riseE := m.pulseRise(1, tPeak)
	riseS := m.pulseRise(2, tPeak)
	riseW := m.pulseRise(3, tPeak)

	assert.Greater(t, riseE, riseN, "downstream channel must dominate")
	assert.Greater(t, riseE, riseS)
	assert.Greater(t, riseE, riseW)

	// Upstream sees conduction only, scaled by the pulse shape
	assert.InDelta(t, cfg.Mock.ConductionRiseC, riseW, cfg.Mock.ConductionRiseC)
}

func TestMock_PulseRiseStagnant(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.FlowVelocityCmDay = 0
	m := NewMock(cfg)

	// Stagnant water: slow symmetric diffusion, identical on all channels
	for j := 1; j < numTherm; j++ {
		assert.Equal(t, m.pulseRise(0, 10.0), m.pulseRise(j, 10.0), "channel %d", j)
	}

	// And it never exceeds the conduction ceiling
	for _, ts := range []float64{1, 10, 30, 60} {
		assert.LessOrEqual(t, m.pulseRise(0, ts), cfg.Mock.ConductionRiseC+1e-9)
	}
}

func TestMock_CloseDuringActiveGeneration(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.SampleRate = 100 * time.Microsecond

	// Close underneath a busy generator with an undrained buffer; the
	// generator owns the channel closure, so its sends never panic.
	for i := 0; i < 20; i++ {
		m := NewMock(cfg)
		require.NoError(t, m.Connect())

		time.Sleep(2 * time.Millisecond)
		require.NoError(t, m.Close())

		for range m.Samples() {
		}
	}
}

func TestMock_GracefulShutdownWhileGenerating(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.SampleRate = time.Millisecond

	m := NewMock(cfg)
	require.NoError(t, m.Connect())

	// Let the generator run, then close underneath it
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Close())

	// The samples channel must be closed (possibly after buffered samples)
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-m.Samples():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("samples channel never closed")
		}
	}
}
