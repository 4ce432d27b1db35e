package pulse

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterxchange/gowxflow/pkg/probe"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

// fakeDevice is a minimal probe.Device for exercising DeviceSource.
type fakeDevice struct {
	samples     chan probe.RawSample
	heaterCalls []bool
	heaterErr   error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{samples: make(chan probe.RawSample, 10)}
}

func (d *fakeDevice) Connect() error                    { return nil }
func (d *fakeDevice) Close() error                      { close(d.samples); return nil }
func (d *fakeDevice) Samples() <-chan probe.RawSample   { return d.samples }
func (d *fakeDevice) IsConnected() bool                 { return true }

func (d *fakeDevice) SetHeater(on bool) error {
	if d.heaterErr != nil {
		return d.heaterErr
	}
	d.heaterCalls = append(d.heaterCalls, on)
	return nil
}

func TestDeviceSource_ReadAllBeforeFirstSample(t *testing.T) {
	dev := newFakeDevice()
	source := NewDeviceSource(dev, dev.Samples())

	_, err := source.ReadAll()
	assert.Error(t, err)
}

func TestDeviceSource_CachesLatestSample(t *testing.T) {
	dev := newFakeDevice()
	source := NewDeviceSource(dev, dev.Samples())

	dev.samples <- probe.RawSample{
		Timestamp: time.Now(),
		Therm:     [therm.NumChannels]int16{100, 200, 300, 400},
	}

	require.Eventually(t, func() bool {
		_, err := source.ReadAll()
		return err == nil
	}, time.Second, time.Millisecond, "sample should reach the cache")

	counts, err := source.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [therm.NumChannels]int16{100, 200, 300, 400}, counts)

	// A newer sample replaces the cached one
	dev.samples <- probe.RawSample{
		Timestamp: time.Now(),
		Therm:     [therm.NumChannels]int16{101, 201, 301, 401},
	}

	require.Eventually(t, func() bool {
		counts, err := source.ReadAll()
		return err == nil && counts[0] == 101
	}, time.Second, time.Millisecond, "newer sample should replace the cached one")
}

func TestDeviceSource_ForwardsHeaterCommands(t *testing.T) {
	dev := newFakeDevice()
	source := NewDeviceSource(dev, dev.Samples())

	require.NoError(t, source.Set(true))
	require.NoError(t, source.Set(false))
	assert.Equal(t, []bool{true, false}, dev.heaterCalls)

	dev.heaterErr = fmt.Errorf("not connected")
	assert.Error(t, source.Set(true))
}
