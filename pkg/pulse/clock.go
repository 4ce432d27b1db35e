package pulse

import "time"

// Clock abstracts the monotonic clock and blocking-wait primitive the
// sequencer runs on, so cycle timing is testable without real
// multi-second waits.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// WallClock is the production clock.
type WallClock struct{}

// Ensure WallClock implements Clock.
var _ Clock = WallClock{}

func (WallClock) Now() time.Time        { return time.Now() }
func (WallClock) Sleep(d time.Duration) { time.Sleep(d) }
