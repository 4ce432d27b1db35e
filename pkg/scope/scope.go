package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/flow"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

// ScopeWidget is a custom Fyne widget that displays the four thermistor
// temperature traces oscilloscope-style, with per-channel peak markers.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu       sync.RWMutex
	readings []therm.Reading
	peaks    [therm.NumChannels]flow.Peak
	heaterOn bool

	// Display buffer (reused for downsampling)
	displayReadings []therm.Reading

	// Auto-scaling
	yMin, yMax float64
	xMin, xMax time.Time

	// Display settings
	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		readings:         make([]therm.Reading, 0),
		displayReadings:  make([]therm.Reading, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	s.ExtendBaseWidget(s)
	// Trigger initial refresh to display empty scope
	s.Refresh()
	return s
}

// UpdateData updates the widget with new measurement data.
// This should be called from the monitor callback using fyne.Do().
func (s *ScopeWidget) UpdateData(readings []therm.Reading, peaks [therm.NumChannels]flow.Peak, heaterOn bool) {
	s.mu.Lock()

	// Downsample for display (reuse buffer)
	s.displayReadings = therm.DownsampleReadings(s.displayReadings, readings, s.maxDisplayPoints)

	// Store full data
	s.readings = readings
	s.peaks = peaks
	s.heaterOn = heaterOn

	// Calculate auto-scaling
	s.updateAutoScale()

	s.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	s.Refresh()
}

// updateAutoScale calculates the axis ranges from current data. Sentinel
// temperatures are excluded so one bad sample doesn't flatten the plot.
func (s *ScopeWidget) updateAutoScale() {
	if len(s.displayReadings) == 0 {
		s.yMin = 0.0
		s.yMax = 1.0
		s.xMin = time.Now()
		s.xMax = time.Now().Add(10 * time.Second)
		return
	}

	first := true
	for _, r := range s.displayReadings {
		for _, t := range r.Temp {
			if t == therm.Invalid {
				continue
			}
			if first {
				s.yMin, s.yMax = t, t
				first = false
				continue
			}
			if t < s.yMin {
				s.yMin = t
			}
			if t > s.yMax {
				s.yMax = t
			}
		}
	}
	if first {
		// Every sample was the sentinel
		s.yMin = 0.0
		s.yMax = 1.0
	}

	// Add 10% margin
	range_ := s.yMax - s.yMin
	if range_ == 0 {
		range_ = 1.0
	}
	margin := range_ * 0.1
	s.yMin -= margin
	s.yMax += margin

	// Time range
	s.xMin = s.displayReadings[0].Timestamp
	s.xMax = s.displayReadings[len(s.displayReadings)-1].Timestamp
	// Ensure minimum window
	minWindow := time.Duration(s.cfg.Monitor.WindowSeconds * float64(time.Second))
	if s.xMax.Sub(s.xMin) < minWindow {
		s.xMax = s.xMin.Add(minWindow)
	}
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:    s,
		grid:     grid,
		objects:  []fyne.CanvasObject{grid},
		lastSize: fyne.Size{Width: 0, Height: 0},
	}
}
