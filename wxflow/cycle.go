package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"github.com/waterxchange/gowxflow/pkg/flow"
	"github.com/waterxchange/gowxflow/pkg/pulse"
	"github.com/waterxchange/gowxflow/pkg/therm"
	"github.com/waterxchange/gowxflow/pkg/uplink"
)

// handleRunCycle runs one full measurement cycle in the background. The
// sequencer blocks for the whole baseline + pulse + monitor window, so it
// must never run on the UI thread.
func handleRunCycle(state *appState) {
	if state.chain == nil || state.device == nil || !state.device.IsConnected() {
		dialog.ShowError(fmt.Errorf("not connected to a probe"), state.window)
		return
	}

	state.cycleMu.Lock()
	if state.cycleRunning {
		state.cycleMu.Unlock()
		return
	}
	state.cycleRunning = true
	state.cycleMu.Unlock()

	state.cycleBtn.Disable()
	state.heaterBtn.Disable()

	source := state.chain.source

	go func() {
		// Baseline the live display from the most recent readings so the
		// scope's peak labels track this cycle. The sequencer acquires its
		// own baseline independently.
		readings := state.monitor.Readings()
		if n := len(readings); n > 0 {
			tail := readings
			if n > state.cfg.Pulse.BaselineSamples {
				tail = readings[n-state.cfg.Pulse.BaselineSamples:]
			}
			state.monitor.SetBaseline(therm.Average(tail))
		}

		seq := pulse.NewSequencer(source, source, nil, state.cfg)
		result, err := seq.Run()

		state.cycleMu.Lock()
		state.cycleRunning = false
		state.cycleMu.Unlock()

		fyne.Do(func() {
			if state.device != nil && state.device.IsConnected() {
				state.cycleBtn.Enable()
				state.heaterBtn.Enable()
			}
			if err != nil {
				dialog.ShowError(fmt.Errorf("measurement cycle failed: %w", err), state.window)
				return
			}
			dialog.ShowInformation("Measurement Result", formatResult(result), state.window)
		})

		if err == nil && state.cfg.Uplink.URL != "" {
			sendResult(state, result)
		}
	}()
}

// formatResult renders a cycle result for the result dialog.
func formatResult(result flow.Result) string {
	var b strings.Builder

	if result.DirectionDeg == flow.DirectionUndefined {
		b.WriteString("Flow: stagnant (below measurement threshold)\n")
	} else {
		fmt.Fprintf(&b, "Velocity:  %.1f cm/day\n", result.VelocityCmDay)
		fmt.Fprintf(&b, "Direction: %.0f°\n", result.DirectionDeg)
	}

	b.WriteString("\nPer-channel peaks:\n")
	for _, ch := range therm.Channels() {
		fmt.Fprintf(&b, "  %s  +%.3f°C @ %.1fs\n",
			ch.String(), result.PeakTemps[ch], result.PeakTimes[ch])
	}

	return b.String()
}

// sendResult posts the cycle result to the backend. Failures are logged and
// the reading dropped; the next cycle produces a fresh one.
func sendResult(state *appState, result flow.Result) {
	client := uplink.NewClient(state.cfg.Uplink)

	ctx, cancel := context.WithTimeout(context.Background(), state.cfg.Uplink.Timeout)
	defer cancel()

	if err := client.SendFlow(ctx, result); err != nil {
		log.Printf("Failed to upload reading: %v", err)
		return
	}
	log.Printf("Uploaded reading to %s", state.cfg.Uplink.URL)
}
