package scope

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"
	"github.com/waterxchange/gowxflow/pkg/flow"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

// Trace colors per channel, chosen for contrast on the dark background.
var channelColors = [therm.NumChannels]color.RGBA{
	{R: 255, G: 165, B: 0, A: 255},   // N orange
	{R: 100, G: 220, B: 100, A: 255}, // E green
	{R: 100, G: 200, B: 255, A: 255}, // S light blue
	{R: 230, G: 120, B: 230, A: 255}, // W magenta
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Peak labels per channel
	peakLabels []*canvas.Text

	// Heater state label
	heaterLabel *canvas.Text

	// Grid lines
	gridLines []*canvas.Line
	gridTexts []*canvas.Text

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	// Background fills entire widget
	r.grid.Resize(size)

	// Check if size changed
	if r.lastSize.Width != size.Width || r.lastSize.Height != size.Height {
		r.lastSize = size
		// Size changed, trigger widget refresh to redraw with new dimensions
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh updates the widget display.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	readings := r.scope.displayReadings
	peaks := r.scope.peaks
	heaterOn := r.scope.heaterOn
	yMin := r.scope.yMin
	yMax := r.scope.yMax
	xMin := r.scope.xMin
	xMax := r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	// Clear old objects (but keep grid)
	r.objects = []fyne.CanvasObject{r.grid}
	r.gridLines = r.gridLines[:0]
	r.gridTexts = r.gridTexts[:0]
	r.peakLabels = r.peakLabels[:0]
	r.heaterLabel = nil

	// Calculate margins
	marginLeft := float32(60.0)
	marginRight := float32(20.0)
	marginTop := float32(20.0)
	marginBottom := float32(40.0)

	plotWidth := size.Width - marginLeft - marginRight
	plotHeight := size.Height - marginTop - marginBottom
	plotX := marginLeft
	plotY := marginTop

	// Draw grid
	r.drawGrid(plotX, plotY, plotWidth, plotHeight, yMin, yMax, xMin, xMax)

	// Draw one trace per thermistor channel
	if len(readings) > 1 {
		for _, ch := range therm.Channels() {
			r.drawChannelLine(plotX, plotY, plotWidth, plotHeight, ch, readings, yMin, yMax, xMin, xMax)
		}
	}

	// Draw per-channel peak labels in the top-right corner
	r.drawPeakLabels(plotX, plotY, plotWidth, peaks)

	// Draw heater state indicator
	r.drawHeaterState(plotX, plotY, heaterOn)
}

// drawGrid draws the oscilloscope-style grid.
func (r *scopeRenderer) drawGrid(plotX, plotY, plotWidth, plotHeight float32, yMin, yMax float64, xMin, xMax time.Time) {
	// Horizontal grid lines (temperature)
	numHLines := 8
	for i := 0; i <= numHLines; i++ {
		y := plotY + float32(i)*plotHeight/float32(numHLines)
		line := canvas.NewLine(color.RGBA{R: 40, G: 40, B: 40, A: 255})
		line.Position1 = fyne.NewPos(plotX, y)
		line.Position2 = fyne.NewPos(plotX+plotWidth, y)
		line.StrokeWidth = 1
		r.gridLines = append(r.gridLines, line)
		r.objects = append(r.objects, line)

		// Y-axis label
		value := yMax - float64(i)*(yMax-yMin)/float64(numHLines)
		text := canvas.NewText(formatTemp(float32(value)), color.RGBA{R: 150, G: 150, B: 150, A: 255})
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(plotX-5, y-6))
		r.gridTexts = append(r.gridTexts, text)
		r.objects = append(r.objects, text)
	}

	// Vertical grid lines (time)
	numVLines := 10
	for i := 0; i <= numVLines; i++ {
		x := plotX + float32(i)*plotWidth/float32(numVLines)
		line := canvas.NewLine(color.RGBA{R: 40, G: 40, B: 40, A: 255})
		line.Position1 = fyne.NewPos(x, plotY)
		line.Position2 = fyne.NewPos(x, plotY+plotHeight)
		line.StrokeWidth = 1
		r.gridLines = append(r.gridLines, line)
		r.objects = append(r.objects, line)

		// X-axis label
		timeOffset := float64(i) * xMax.Sub(xMin).Seconds() / float64(numVLines)
		text := canvas.NewText(formatSeconds(float32(timeOffset)), color.RGBA{R: 150, G: 150, B: 150, A: 255})
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, plotY+plotHeight+5))
		r.gridTexts = append(r.gridTexts, text)
		r.objects = append(r.objects, text)
	}
}

// drawChannelLine draws one channel's temperature curve. Sentinel readings
// break the line instead of plotting.
func (r *scopeRenderer) drawChannelLine(plotX, plotY, plotWidth, plotHeight float32, ch therm.Channel, readings []therm.Reading, yMin, yMax float64, xMin, xMax time.Time) {
	span := float32(xMax.Sub(xMin).Seconds())
	if span <= 0 {
		return
	}
	yRange := float32(yMax - yMin)
	if yRange <= 0 {
		return
	}

	var prev fyne.Position
	havePrev := false
	for _, reading := range readings {
		t := reading.Temp[ch]
		if t == therm.Invalid {
			havePrev = false
			continue
		}
		x := plotX + float32(reading.Timestamp.Sub(xMin).Seconds())/span*plotWidth
		y := plotY + plotHeight - (float32(t)-float32(yMin))/yRange*plotHeight
		x = math32.Max(plotX, math32.Min(plotX+plotWidth, x))
		y = math32.Max(plotY, math32.Min(plotY+plotHeight, y))
		pos := fyne.NewPos(x, y)

		if havePrev {
			line := canvas.NewLine(channelColors[ch])
			line.Position1 = prev
			line.Position2 = pos
			line.StrokeWidth = 1.5
			r.objects = append(r.objects, line)
		}
		prev = pos
		havePrev = true
	}
}

// drawPeakLabels draws one "N +0.42C @ 12.3s" label per channel with a
// nonzero tracked peak.
func (r *scopeRenderer) drawPeakLabels(plotX, plotY, plotWidth float32, peaks [therm.NumChannels]flow.Peak) {
	row := float32(0)
	for _, ch := range therm.Channels() {
		p := peaks[ch]
		if p.DeltaT <= 0 {
			continue
		}
		label := ch.String() + " +" + formatTemp(float32(p.DeltaT)) + " @ " + formatSeconds(float32(p.Time))
		text := canvas.NewText(label, channelColors[ch])
		text.TextSize = 11
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(plotX+plotWidth-10, plotY+10+row*14))
		r.peakLabels = append(r.peakLabels, text)
		r.objects = append(r.objects, text)
		row++
	}
}

// drawHeaterState draws the heater indicator in the top-left corner.
func (r *scopeRenderer) drawHeaterState(plotX, plotY float32, heaterOn bool) {
	label := "heater off"
	col := color.RGBA{R: 150, G: 150, B: 150, A: 255}
	if heaterOn {
		label = "HEATER ON"
		col = color.RGBA{R: 255, G: 80, B: 80, A: 255}
	}
	text := canvas.NewText(label, col)
	text.TextSize = 11
	text.Alignment = fyne.TextAlignLeading
	text.Move(fyne.NewPos(plotX+10, plotY+10))
	r.heaterLabel = text
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {
	// Cleanup handled by Fyne
}

// Helper functions for formatting

func formatTemp(v float32) string {
	return formatFloat(v, 2) + "C"
}

func formatSeconds(s float32) string {
	if s < 1 {
		return formatFloat(s, 2) + "s"
	}
	return formatFloat(s, 1) + "s"
}

func formatFloat(v float32, decimals int) string {
	str := ""
	if v < 0 {
		str = "-"
		v = -v
	}
	intPart := int64(v)
	str += formatInt(intPart)
	if decimals > 0 {
		frac := v - math32.Trunc(v)
		fracStr := formatInt(int64(math32.Round(frac * math32.Pow(10, float32(decimals)))))
		// Pad with zeros
		for len(fracStr) < decimals {
			fracStr = "0" + fracStr
		}
		str += "." + fracStr
	}
	return str
}

func formatInt(v int64) string {
	if v == 0 {
		return "0"
	}
	str := ""
	neg := v < 0
	if neg {
		v = -v
	}
	for v > 0 {
		str = string(rune('0'+v%10)) + str
		v /= 10
	}
	if neg {
		str = "-" + str
	}
	return str
}
