// Package pulse orchestrates one heat-pulse measurement cycle: baseline,
// heater firing, settle, timed monitoring, and flow estimation.
package pulse

import (
	"fmt"
	"log"

	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/flow"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

// Sequencer runs measurement cycles against explicit hardware capabilities.
// It owns the heater output and the ADC exclusively for the duration of a
// cycle; phases execute strictly in sequence with blocking waits.
type Sequencer struct {
	adc    ADC
	heater Heater
	clock  Clock
	conv   *therm.Converter
	est    *flow.Estimator
	cfg    config.PulseConfig
}

// NewSequencer creates a Sequencer. A nil clock defaults to the wall clock.
func NewSequencer(adc ADC, heater Heater, clock Clock, cfg *config.Config) *Sequencer {
	if clock == nil {
		clock = WallClock{}
	}
	return &Sequencer{
		adc:    adc,
		heater: heater,
		clock:  clock,
		conv:   therm.NewConverter(cfg),
		est:    flow.NewEstimator(cfg.Flow),
		cfg:    cfg.Pulse,
	}
}

// Run executes one full measurement cycle:
//  1. Acquire the pre-pulse baseline.
//  2. Fire the heater for HeaterDuration, then deassert it.
//  3. Wait SettleDuration for switch-off transients to pass.
//  4. Monitor all four channels for MonitorDuration at SampleInterval,
//     tracking each channel's peak rise and its time since heater off.
//  5. Estimate flow from the tracked peaks.
//
// A transient ADC failure degrades that sample; the cycle never retries.
// Only a cycle that cannot reach the estimator (heater control failure, or
// a baseline with zero successful readings) returns Valid=false along with
// the error.
func (s *Sequencer) Run() (flow.Result, error) {
	baseline, err := s.acquireBaseline()
	if err != nil {
		return flow.Result{}, fmt.Errorf("baseline acquisition failed: %w", err)
	}

	// Fire heater
	if err := s.heater.Set(true); err != nil {
		return flow.Result{}, fmt.Errorf("failed to assert heater: %w", err)
	}
	s.clock.Sleep(s.cfg.HeaterDuration)
	if err := s.heater.Set(false); err != nil {
		return flow.Result{}, fmt.Errorf("failed to deassert heater: %w", err)
	}
	heaterOff := s.clock.Now()

	s.clock.Sleep(s.cfg.SettleDuration)

	// Monitor: wall-clock deadline, not sample count, so cadence jitter
	// cannot stretch the window semantics.
	var tracker Tracker
	deadline := s.clock.Now().Add(s.cfg.MonitorDuration)
	for s.clock.Now().Before(deadline) {
		raw, err := s.adc.ReadAll()
		if err != nil {
			// Degraded sample; keep going
			log.Printf("Dropped monitor sample: %v", err)
			s.clock.Sleep(s.cfg.SampleInterval)
			continue
		}

		reading := s.conv.Reading(probeSample(raw, s.clock.Now()))
		elapsed := s.clock.Now().Sub(heaterOff).Seconds()
		tracker.Observe(baseline.Rise(reading), elapsed)

		s.clock.Sleep(s.cfg.SampleInterval)
	}

	return s.est.Estimate(tracker.Peaks()), nil
}

// acquireBaseline averages BaselineSamples four-channel readings taken
// BaselineInterval apart. Individual failed reads degrade the average;
// a baseline with no successful readings aborts the cycle.
func (s *Sequencer) acquireBaseline() (therm.Baseline, error) {
	readings := make([]therm.Reading, 0, s.cfg.BaselineSamples)
	for i := 0; i < s.cfg.BaselineSamples; i++ {
		raw, err := s.adc.ReadAll()
		if err != nil {
			log.Printf("Dropped baseline sample %d: %v", i, err)
		} else {
			readings = append(readings, s.conv.Reading(probeSample(raw, s.clock.Now())))
		}
		s.clock.Sleep(s.cfg.BaselineInterval)
	}

	if len(readings) == 0 {
		return therm.Baseline{}, fmt.Errorf("no successful baseline readings out of %d attempts", s.cfg.BaselineSamples)
	}
	return therm.Average(readings), nil
}
