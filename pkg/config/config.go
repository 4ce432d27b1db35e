package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial     SerialConfig     `yaml:"serial"`
	Divider    DividerConfig    `yaml:"divider"`
	Thermistor ThermistorConfig `yaml:"thermistor"`
	Pulse      PulseConfig      `yaml:"pulse"`
	Flow       FlowConfig       `yaml:"flow"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Uplink     UplinkConfig     `yaml:"uplink"`
	Mock       MockConfig       `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
}

// DividerConfig describes the thermistor voltage dividers and the ADC scale.
type DividerConfig struct {
	VRef          float64 `yaml:"vref"`            // Divider supply voltage (V)
	SeriesR       float64 `yaml:"series_r"`        // Fixed series resistor (Ω)
	VoltsPerCount float64 `yaml:"volts_per_count"` // ADC LSB size (V)
}

// ThermistorConfig contains the NTC Steinhart-Hart B parameters.
type ThermistorConfig struct {
	NominalR float64 `yaml:"nominal_r"` // Resistance at the nominal temperature (Ω)
	NominalT float64 `yaml:"nominal_t"` // Nominal temperature (°C)
	BCoeff   float64 `yaml:"b_coeff"`   // B coefficient (K)
}

// PulseConfig contains the measurement cycle timing parameters.
type PulseConfig struct {
	BaselineSamples  int           `yaml:"baseline_samples"`  // Readings averaged into the baseline
	BaselineInterval time.Duration `yaml:"baseline_interval"` // Spacing between baseline readings
	HeaterDuration   time.Duration `yaml:"heater_duration"`   // How long the heater fires
	SettleDuration   time.Duration `yaml:"settle_duration"`   // Wait after heater off before monitoring
	SampleInterval   time.Duration `yaml:"sample_interval"`   // Monitoring sample cadence
	MonitorDuration  time.Duration `yaml:"monitor_duration"`  // Total monitoring window
}

// FlowConfig contains the flow estimation calibration.
type FlowConfig struct {
	StagnationThreshold float64 `yaml:"stagnation_threshold"` // Minimum dominant rise for measurable flow (°C)
	CalK                float64 `yaml:"cal_k"`                // Empirical velocity constant (cm·s/day)
	MinPeakTimeS        float64 `yaml:"min_peak_time_s"`      // Peak time floor before dividing (s)
}

// MonitorConfig contains live display parameters.
type MonitorConfig struct {
	WindowSeconds float64 `yaml:"window_seconds"`
}

// UplinkConfig contains the backend ingest endpoint parameters.
type UplinkConfig struct {
	URL        string        `yaml:"url"`
	DeviceID   string        `yaml:"device_id"`
	DeviceType string        `yaml:"device_type"`
	FWVersion  string        `yaml:"fw_version"`
	Timeout    time.Duration `yaml:"timeout"`
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	BaselineTempC     float64       `yaml:"baseline_temp_c"`      // Undisturbed water temperature (°C)
	NoiseLevel        float64       `yaml:"noise_level"`          // Noise amplitude (°C)
	FlowVelocityCmDay float64       `yaml:"flow_velocity_cm_day"` // Simulated flow velocity (0 = stagnant)
	FlowDirectionDeg  float64       `yaml:"flow_direction_deg"`   // Simulated flow direction
	MaxRiseC          float64       `yaml:"max_rise_c"`           // Peak rise on the downstream channel (°C)
	ConductionRiseC   float64       `yaml:"conduction_rise_c"`    // Rise seen by all channels from conduction (°C)
	SampleRate        time.Duration `yaml:"sample_rate"`          // Sample rate
}

// Default returns a default configuration with the lab calibration values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "/dev/ttyACM0",
		},
		Divider: DividerConfig{
			VRef:          3.3,
			SeriesR:       10000,
			VoltsPerCount: 0.000125,
		},
		Thermistor: ThermistorConfig{
			NominalR: 10000,
			NominalT: 25.0,
			BCoeff:   3950,
		},
		Pulse: PulseConfig{
			BaselineSamples:  10,
			BaselineInterval: 50 * time.Millisecond,
			HeaterDuration:   4 * time.Second,
			SettleDuration:   500 * time.Millisecond,
			SampleInterval:   100 * time.Millisecond,
			MonitorDuration:  60 * time.Second,
		},
		Flow: FlowConfig{
			StagnationThreshold: 0.05,
			CalK:                900.0,
			MinPeakTimeS:        0.5,
		},
		Monitor: MonitorConfig{
			WindowSeconds: 90,
		},
		Uplink: UplinkConfig{
			URL:        "https://api.waterxchange.io/hardware/data",
			DeviceID:   "WXF-001",
			DeviceType: "wx-flow",
			FWVersion:  "1.0.0",
			Timeout:    10 * time.Second,
		},
		Mock: MockConfig{
			BaselineTempC:     14.0,
			NoiseLevel:        0.005,
			FlowVelocityCmDay: 50.0,
			FlowDirectionDeg:  45.0,
			MaxRiseC:          1.2,
			ConductionRiseC:   0.02,
			SampleRate:        100 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}

	if c.Divider.VRef == 0 {
		c.Divider.VRef = def.Divider.VRef
	}
	if c.Divider.SeriesR == 0 {
		c.Divider.SeriesR = def.Divider.SeriesR
	}
	if c.Divider.VoltsPerCount == 0 {
		c.Divider.VoltsPerCount = def.Divider.VoltsPerCount
	}

	if c.Thermistor.NominalR == 0 {
		c.Thermistor.NominalR = def.Thermistor.NominalR
	}
	if c.Thermistor.NominalT == 0 {
		c.Thermistor.NominalT = def.Thermistor.NominalT
	}
	if c.Thermistor.BCoeff == 0 {
		c.Thermistor.BCoeff = def.Thermistor.BCoeff
	}

	if c.Pulse.BaselineSamples == 0 {
		c.Pulse.BaselineSamples = def.Pulse.BaselineSamples
	}
	if c.Pulse.BaselineInterval == 0 {
		c.Pulse.BaselineInterval = def.Pulse.BaselineInterval
	}
	if c.Pulse.HeaterDuration == 0 {
		c.Pulse.HeaterDuration = def.Pulse.HeaterDuration
	}
	if c.Pulse.SettleDuration == 0 {
		c.Pulse.SettleDuration = def.Pulse.SettleDuration
	}
	if c.Pulse.SampleInterval == 0 {
		c.Pulse.SampleInterval = def.Pulse.SampleInterval
	}
	if c.Pulse.MonitorDuration == 0 {
		c.Pulse.MonitorDuration = def.Pulse.MonitorDuration
	}

	if c.Flow.StagnationThreshold == 0 {
		c.Flow.StagnationThreshold = def.Flow.StagnationThreshold
	}
	if c.Flow.CalK == 0 {
		c.Flow.CalK = def.Flow.CalK
	}
	if c.Flow.MinPeakTimeS == 0 {
		c.Flow.MinPeakTimeS = def.Flow.MinPeakTimeS
	}

	if c.Monitor.WindowSeconds == 0 {
		c.Monitor.WindowSeconds = def.Monitor.WindowSeconds
	}

	if c.Uplink.URL == "" {
		c.Uplink.URL = def.Uplink.URL
	}
	if c.Uplink.DeviceID == "" {
		c.Uplink.DeviceID = def.Uplink.DeviceID
	}
	if c.Uplink.DeviceType == "" {
		c.Uplink.DeviceType = def.Uplink.DeviceType
	}
	if c.Uplink.FWVersion == "" {
		c.Uplink.FWVersion = def.Uplink.FWVersion
	}
	if c.Uplink.Timeout == 0 {
		c.Uplink.Timeout = def.Uplink.Timeout
	}

	if c.Mock.BaselineTempC == 0 {
		c.Mock.BaselineTempC = def.Mock.BaselineTempC
	}
	if c.Mock.MaxRiseC == 0 {
		c.Mock.MaxRiseC = def.Mock.MaxRiseC
	}
	if c.Mock.ConductionRiseC == 0 {
		c.Mock.ConductionRiseC = def.Mock.ConductionRiseC
	}
	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
}
