package therm

import (
	"log"
	"time"

	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/probe"
)

// Stream is a function type that converts a RawSample channel to a Reading channel.
type Stream func(in <-chan probe.RawSample) <-chan Reading

// NewStream creates a stream function that converts raw probe samples to
// temperature readings. The output channel closes when the input closes.
func NewStream(cfg *config.Config, bufSize int) Stream {
	if bufSize <= 0 {
		bufSize = 100
	}
	conv := NewConverter(cfg)

	return func(in <-chan probe.RawSample) <-chan Reading {
		out := make(chan Reading, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				select {
				case out <- conv.Reading(raw):
				case <-time.After(time.Second):
					log.Printf("Reading stream output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}
