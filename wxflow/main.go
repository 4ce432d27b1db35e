package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/flow"
	"github.com/waterxchange/gowxflow/pkg/monitor"
	"github.com/waterxchange/gowxflow/pkg/probe"
	"github.com/waterxchange/gowxflow/pkg/pulse"
	"github.com/waterxchange/gowxflow/pkg/scope"
	"github.com/waterxchange/gowxflow/pkg/therm"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked probe instead of serial port")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	// Create Fyne application
	application := app.NewWithID("io.waterxchange.wxflow")

	// Create main window
	window := application.NewWindow("WX-Flow Probe Console")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	// Create reading monitor
	mon := monitor.New(cfg)

	// Create application state
	appState := &appState{
		cfg:     cfg,
		device:  nil,
		monitor: mon,
		window:  window,
		useMock: *mockFlag,
	}

	// Create toolbar
	toolbar := createToolbar(appState)

	// Create scope widget for graph display
	scopeWidget := scope.New(cfg)
	appState.scopeWidget = scopeWidget

	// Create border layout with toolbar at top and scope widget as content
	container := container.NewBorder(
		toolbar,
		nil,
		nil,
		nil,
		scopeWidget,
	)

	window.SetContent(container)
	window.ShowAndRun()
}

// measurementChain tracks the components of the measurement chain for graceful shutdown.
type measurementChain struct {
	device               probe.Device
	source               *pulse.DeviceSource
	heaterStateGoroutine chan struct{} // Closed when heater state goroutine exits
	monitorGoroutine     chan struct{} // Closed when monitor goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	device      probe.Device
	monitor     *monitor.Monitor
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	heaterBtn   *widget.Button
	cycleBtn    *widget.Button
	useMock     bool
	chain       *measurementChain // Current measurement chain (nil if not connected)

	// Heater state reported by the probe
	heaterMu sync.RWMutex
	heaterOn bool

	// One measurement cycle at a time
	cycleMu      sync.Mutex
	cycleRunning bool

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

func (s *appState) setHeaterOn(on bool) {
	s.heaterMu.Lock()
	s.heaterOn = on
	s.heaterMu.Unlock()
}

func (s *appState) heaterState() bool {
	s.heaterMu.RLock()
	defer s.heaterMu.RUnlock()
	return s.heaterOn
}

// createToolbar creates the application toolbar with Connect, Settings,
// Heater, and Run Cycle buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	// Connect button with icon
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	// Settings button with icon
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	// Manual heater toggle
	heaterBtn := widget.NewButton("Heater", func() {
		handleHeaterToggle(state)
	})
	heaterBtn.Disable()
	state.heaterBtn = heaterBtn

	// Run one full measurement cycle
	cycleBtn := widget.NewButtonWithIcon("Measure", theme.MediaPlayIcon(), func() {
		handleRunCycle(state)
	})
	cycleBtn.Disable()
	state.cycleBtn = cycleBtn

	// Create toolbar with buttons on left and action buttons aligned to the right
	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn), // left
		container.NewHBox(heaterBtn, cycleBtn),     // right
		nil, // center (spacer)
	)
}

// closeMeasurementChain gracefully closes the measurement chain.
// Waits for all goroutines to finish and channels to drain.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	// Close device - this will close the samples channel
	if chain.device != nil {
		chain.device.Close()
	}

	// Wait for heater state goroutine to finish
	if chain.heaterStateGoroutine != nil {
		<-chain.heaterStateGoroutine
	}

	// Wait for monitor goroutine to finish. It exits when the reading
	// stream closes, which happens when the tee branches drain.
	if chain.monitorGoroutine != nil {
		<-chain.monitorGoroutine
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		// Disconnect - gracefully close measurement chain
		closeMeasurementChain(state.chain)
		state.chain = nil
		state.device = nil
		state.heaterBtn.Disable()
		state.cycleBtn.Disable()
		state.setHeaterOn(false)
		if state.useMock {
			fmt.Println("Disconnected from mocked probe")
		} else {
			fmt.Println("Disconnected from serial port")
		}
		return
	}

	// Connect
	var device probe.Device
	if state.useMock {
		device = probe.NewMock(state.cfg)
		fmt.Println("Using mocked probe")
	} else {
		device = probe.New(state.cfg.Serial.Port, probe.DefaultBaudRate, probe.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to connect to mocked probe: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		return
	}
	state.device = device
	if state.useMock {
		fmt.Printf("Connected to mocked probe\n")
	} else {
		fmt.Printf("Connected to serial port: %s\n", state.cfg.Serial.Port)
	}

	state.heaterBtn.Enable()
	state.cycleBtn.Enable()

	// Reset monitor shutdown flag for new chain
	state.monitor.ResetShutdown()

	// Register callback with the monitor to update the scope widget.
	// This must be done before starting the measurement chain.
	// Throttle updates to ~60 FPS (16.67ms between updates) to ensure smooth UI.
	const updateInterval = 16 * time.Millisecond // ~60 FPS
	state.monitor.OnUpdate(func(readings []therm.Reading, peaks [therm.NumChannels]flow.Peak) {
		// Throttle updates to prevent UI from being overwhelmed
		state.updateMu.Lock()
		now := time.Now()
		timeSinceLastUpdate := now.Sub(state.lastUpdateTime)
		state.updateMu.Unlock()

		// Skip update if too soon since last update
		if timeSinceLastUpdate < updateInterval {
			return
		}

		heaterOn := state.heaterState()

		// Update timestamp
		state.updateMu.Lock()
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		// Update scope widget on main thread.
		// Scope widget handles downsampling internally, so pass full data.
		fyne.Do(func() {
			state.scopeWidget.UpdateData(readings, peaks, heaterOn)
		})
	})

	// Tee raw samples three ways: heater state tracking, the temperature
	// conversion chain, and the measurement cycle sample cache.
	branches := teeChannel(device.Samples(), 3)

	// Track goroutines for graceful shutdown
	heaterStateDone := make(chan struct{})
	monitorDone := make(chan struct{})

	// Update heater state from raw samples
	go func() {
		defer close(heaterStateDone)
		for rawSample := range branches[0] {
			state.setHeaterOn(rawSample.Heater)
		}
	}()

	// Convert raw samples to temperature readings and feed the monitor
	readings := therm.NewStream(state.cfg, 500)(branches[1])
	go func() {
		defer close(monitorDone)
		state.monitor.ProcessReadings(readings)
	}()

	// Cache the latest sample for measurement cycles
	source := pulse.NewDeviceSource(device, branches[2])

	// Store chain for graceful shutdown
	state.chain = &measurementChain{
		device:               device,
		source:               source,
		heaterStateGoroutine: heaterStateDone,
		monitorGoroutine:     monitorDone,
	}
}

// handleHeaterToggle manually toggles the heater output. The displayed state
// follows the probe's own heater flag in the sample stream, so a failed
// command never shows a phantom heater.
func handleHeaterToggle(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}

	target := !state.heaterState()
	if err := state.device.SetHeater(target); err != nil {
		dialog.ShowError(fmt.Errorf("failed to switch heater: %w", err), state.window)
	}
}

// teeChannel fans the input channel out to n new channels. Every value is
// delivered to every branch; a stalled branch stalls the fan-out, so all
// branches must be drained continuously.
func teeChannel(in <-chan probe.RawSample, n int) []<-chan probe.RawSample {
	outs := make([]chan probe.RawSample, n)
	for i := range outs {
		outs[i] = make(chan probe.RawSample, 100)
	}

	go func() {
		defer func() {
			for _, out := range outs {
				close(out)
			}
		}()
		for sample := range in {
			for _, out := range outs {
				out <- sample
			}
		}
	}()

	result := make([]<-chan probe.RawSample, n)
	for i, out := range outs {
		result[i] = out
	}
	return result
}
