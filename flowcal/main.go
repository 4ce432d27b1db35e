// flowcal fits the velocity calibration constant K from lab column data and
// optionally writes it into a configuration file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/waterxchange/gowxflow/pkg/calibrate"
	"github.com/waterxchange/gowxflow/pkg/config"
)

func main() {
	var (
		dataFlag   = flag.String("data", "", "CSV file of calibration points: known_velocity_cm_day,peak_delay_seconds")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		saveFlag   = flag.Bool("save", false, "Write the fitted K into the configuration file")
	)
	flag.Parse()

	if *dataFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: flowcal -data points.csv [-config config.yaml] [-save]")
		os.Exit(2)
	}

	points, err := calibrate.LoadPoints(*dataFlag)
	if err != nil {
		log.Fatalf("Failed to load calibration points: %v", err)
	}

	fit, err := calibrate.FitK(points)
	if err != nil {
		log.Fatalf("Calibration fit failed: %v", err)
	}

	fmt.Printf("Fitted K:  %.1f cm·s/day\n", fit.K)
	fmt.Printf("R-squared: %.4f\n", fit.RSquared)
	fmt.Println()
	fmt.Println("  known v (cm/day)   peak delay (s)   predicted v (cm/day)")
	for i, p := range points {
		fmt.Printf("  %16.1f   %14.2f   %20.1f\n", p.VelocityCmDay, p.PeakDelayS, fit.Predicted[i])
	}

	if fit.RSquared < 0.9 {
		fmt.Println()
		fmt.Println("Warning: poor fit (R² < 0.9), check the calibration data")
	}

	if !*saveFlag {
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Flow.CalK = fit.K
	if err := cfg.Save(*configFlag); err != nil {
		log.Fatalf("Failed to save configuration: %v", err)
	}
	fmt.Printf("\nWrote K=%.1f to %s\n", fit.K, *configFlag)
}
