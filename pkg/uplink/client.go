// Package uplink transmits measurement results to the backend ingest API.
// One reading is POSTed per cycle; callers treat a failed send as a dropped
// reading rather than retrying the multi-second measurement.
package uplink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/flow"
)

// FlowData is the nested flow block of the wx-flow ingest payload.
type FlowData struct {
	VelocityCmDay float64   `json:"velocity_cm_day"`
	DirectionDeg  float64   `json:"direction_deg"`
	Valid         bool      `json:"valid"`
	PeakTemps     []float64 `json:"peak_temps"`
	PeakTimes     []float64 `json:"peak_times"`
}

// Reading is the wx-flow ingest payload. Fields outside the flow block
// belong to collaborating subsystems and default to zero when unknown.
type Reading struct {
	DeviceID       string   `json:"device_id"`
	DeviceType     string   `json:"device_type"`
	FWVersion      string   `json:"fw_version"`
	BootCount      int      `json:"boot_count"`
	Flow           FlowData `json:"flow"`
	ConductivityUS float64  `json:"conductivity_us"`
	TDSPPM         float64  `json:"tds_ppm"`
	WaterTempC     float64  `json:"water_temp_c"`
	WaterLevelFt   float64  `json:"water_level_ft"`
	PressurePSI    float64  `json:"pressure_psi"`
	BatteryV       float64  `json:"battery_v"`
	SolarV         float64  `json:"solar_v"`
}

// Client posts readings to the ingest endpoint.
type Client struct {
	url        string
	deviceID   string
	deviceType string
	fwVersion  string
	httpClient *http.Client
}

// NewClient creates a Client from the uplink configuration.
func NewClient(cfg config.UplinkConfig) *Client {
	return &Client{
		url:        cfg.URL,
		deviceID:   cfg.DeviceID,
		deviceType: cfg.DeviceType,
		fwVersion:  cfg.FWVersion,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// SendFlow posts one flow result.
func (c *Client) SendFlow(ctx context.Context, result flow.Result) error {
	reading := Reading{
		DeviceID:   c.deviceID,
		DeviceType: c.deviceType,
		FWVersion:  c.fwVersion,
		Flow: FlowData{
			VelocityCmDay: result.VelocityCmDay,
			DirectionDeg:  result.DirectionDeg,
			Valid:         result.Valid,
			PeakTemps:     result.PeakTemps[:],
			PeakTimes:     result.PeakTimes[:],
		},
	}
	return c.send(ctx, reading)
}

// send encodes and posts one reading.
func (c *Client) send(ctx context.Context, reading Reading) error {
	body, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post reading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("ingest endpoint returned %s: %s", resp.Status, snippet)
	}

	return nil
}
