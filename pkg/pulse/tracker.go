package pulse

import (
	"github.com/waterxchange/gowxflow/pkg/flow"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

// Tracker records the running peak rise per channel during the monitoring
// phase. Peaks are seeded at zero and only ever raised, so every recorded
// peak is non-negative; a sentinel temperature produces a deeply negative
// rise that never wins a comparison.
type Tracker struct {
	peaks [therm.NumChannels]flow.Peak
}

// Observe updates the per-channel peaks with the rises of one sample taken
// elapsed seconds after heater off. A peak moves only when the new rise
// strictly exceeds the previous one.
func (t *Tracker) Observe(rise [therm.NumChannels]float64, elapsed float64) {
	for j := range rise {
		if rise[j] > t.peaks[j].DeltaT {
			t.peaks[j].DeltaT = rise[j]
			t.peaks[j].Time = elapsed
		}
	}
}

// Peaks returns the tracked peaks.
func (t *Tracker) Peaks() [therm.NumChannels]flow.Peak {
	return t.peaks
}
