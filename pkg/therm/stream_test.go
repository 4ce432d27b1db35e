package therm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/probe"
)

func TestStream_ConvertsAndCloses(t *testing.T) {
	stream := NewStream(config.Default(), 10)

	in := make(chan probe.RawSample, 10)
	out := stream(in)

	now := time.Now()
	in <- probe.RawSample{
		Timestamp: now,
		Therm:     [NumChannels]int16{nominalCounts, nominalCounts, nominalCounts, nominalCounts},
	}
	close(in)

	var got []Reading
	for r := range out {
		got = append(got, r)
	}

	require.Len(t, got, 1)
	assert.Equal(t, now, got[0].Timestamp)
	for j := range got[0].Temp {
		assert.InDelta(t, 25.0, got[0].Temp[j], 0.001, "channel %d", j)
	}
}

func TestStream_PreservesOrder(t *testing.T) {
	stream := NewStream(config.Default(), 100)

	in := make(chan probe.RawSample, 100)
	out := stream(in)

	base := time.Now()
	for i := 0; i < 50; i++ {
		in <- probe.RawSample{
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
			Therm:     [NumChannels]int16{nominalCounts, nominalCounts, nominalCounts, nominalCounts},
		}
	}
	close(in)

	var got []Reading
	for r := range out {
		got = append(got, r)
	}

	require.Len(t, got, 50)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
}

func TestDownsampleReadings(t *testing.T) {
	readings := make([]Reading, 100)
	base := time.Now()
	for i := range readings {
		readings[i] = Reading{Timestamp: base.Add(time.Duration(i) * time.Second)}
	}

	t.Run("no downsampling needed", func(t *testing.T) {
		got := DownsampleReadings(nil, readings, 200)
		assert.Len(t, got, 100)
		assert.Equal(t, readings, got)
	})

	t.Run("decimates to max points", func(t *testing.T) {
		got := DownsampleReadings(nil, readings, 10)
		assert.Len(t, got, 10)
		// First point survives, order preserved
		assert.Equal(t, readings[0], got[0])
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
		}
	})

	t.Run("reuses destination capacity", func(t *testing.T) {
		dst := make([]Reading, 0, 100)
		got := DownsampleReadings(dst, readings, 10)
		assert.Len(t, got, 10)
		// Same backing array
		assert.Equal(t, cap(dst), cap(got))
	})

	t.Run("empty input", func(t *testing.T) {
		got := DownsampleReadings(nil, nil, 10)
		assert.Empty(t, got)
	})
}
