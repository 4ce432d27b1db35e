// Package calibrate fits the empirical velocity relation v = K / t_peak
// from lab data: the probe is run in a controlled flow column at known
// velocities and the peak delay times are recorded.
package calibrate

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Point is one lab calibration measurement.
type Point struct {
	VelocityCmDay float64 // Known column velocity (cm/day)
	PeakDelayS    float64 // Measured peak delay time (s)
}

// Fit is the result of a calibration fit.
type Fit struct {
	K         float64   // Velocity calibration constant (cm·s/day)
	RSquared  float64   // Goodness of fit
	Predicted []float64 // Predicted velocity per input point
}

// MinPoints is the minimum number of calibration points for a meaningful fit.
const MinPoints = 3

// FitK performs a least-squares fit of v = K / t_peak. The relation is
// linear in 1/t with a forced zero intercept, so it reduces to a
// regression through the origin.
func FitK(points []Point) (Fit, error) {
	if len(points) < MinPoints {
		return Fit{}, fmt.Errorf("need at least %d calibration points, got %d", MinPoints, len(points))
	}

	invT := make([]float64, len(points))
	v := make([]float64, len(points))
	for i, p := range points {
		if p.PeakDelayS <= 0 {
			return Fit{}, fmt.Errorf("calibration point %d has non-positive peak delay %g", i, p.PeakDelayS)
		}
		if p.VelocityCmDay <= 0 {
			return Fit{}, fmt.Errorf("calibration point %d has non-positive velocity %g", i, p.VelocityCmDay)
		}
		invT[i] = 1.0 / p.PeakDelayS
		v[i] = p.VelocityCmDay
	}

	_, k := stat.LinearRegression(invT, v, nil, true)

	predicted := make([]float64, len(points))
	for i := range points {
		predicted[i] = k * invT[i]
	}

	return Fit{
		K:         k,
		RSquared:  stat.RSquaredFrom(predicted, v, nil),
		Predicted: predicted,
	}, nil
}

// LoadPoints reads calibration points from a CSV file with rows of
// "known_velocity_cm_day, peak_delay_seconds". Blank lines and lines
// starting with '#' are skipped, as are rows that fail to parse.
func LoadPoints(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open calibration data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration data: %w", err)
	}

	points := make([]Point, 0, len(records))
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			continue
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			continue
		}
		if v > 0 && t > 0 {
			points = append(points, Point{VelocityCmDay: v, PeakDelayS: t})
		}
	}

	return points, nil
}
