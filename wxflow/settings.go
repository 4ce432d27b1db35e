package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/waterxchange/gowxflow/pkg/probe"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	// Create tabs
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createProbeTab(state),
		createPulseTab(state),
		createFlowTab(state),
		createUplinkTab(state),
		createMockTab(state),
	)

	// Create dialog with tabs as content
	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	// Get available serial ports
	ports, err := probe.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
		currentDisplay = currentPort
	}

	portSelect := widget.NewSelect(portOptions, func(selected string) {
		// Selection handler - will be called on submit
	})
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected // Fallback to selected text
				}

				// Check if port changed and device is connected
				portChanged := state.cfg.Serial.Port != selectedPort
				wasConnected := state.device != nil && state.device.IsConnected()

				state.cfg.Serial.Port = selectedPort
				if err := state.cfg.Save("config.yaml"); err != nil {
					dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
					return
				}

				// If port changed and device was connected, restart the measurement chain
				if portChanged && wasConnected {
					// Gracefully close old chain
					closeMeasurementChain(state.chain)
					state.chain = nil

					// Close old device
					if state.device != nil {
						state.device.Close()
						state.device = nil
					}

					// Reconnect with new port
					handleConnect(state)
				}
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createProbeTab creates the probe electrical configuration tab.
func createProbeTab(state *appState) *container.TabItem {
	vrefEntry := widget.NewEntry()
	vrefEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Divider.VRef))

	seriesREntry := widget.NewEntry()
	seriesREntry.SetText(fmt.Sprintf("%.0f", state.cfg.Divider.SeriesR))

	voltsPerCountEntry := widget.NewEntry()
	voltsPerCountEntry.SetText(fmt.Sprintf("%.6f", state.cfg.Divider.VoltsPerCount))

	nominalREntry := widget.NewEntry()
	nominalREntry.SetText(fmt.Sprintf("%.0f", state.cfg.Thermistor.NominalR))

	nominalTEntry := widget.NewEntry()
	nominalTEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Thermistor.NominalT))

	bCoeffEntry := widget.NewEntry()
	bCoeffEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Thermistor.BCoeff))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "VRef (V)", Widget: vrefEntry},
			{Text: "Series R (Ω)", Widget: seriesREntry},
			{Text: "Volts per Count", Widget: voltsPerCountEntry},
			{Text: "NTC Nominal R (Ω)", Widget: nominalREntry},
			{Text: "NTC Nominal T (°C)", Widget: nominalTEntry},
			{Text: "NTC B Coefficient (K)", Widget: bCoeffEntry},
		},
		OnSubmit: func() {
			if vref, err := strconv.ParseFloat(vrefEntry.Text, 64); err == nil {
				state.cfg.Divider.VRef = vref
			}
			if sr, err := strconv.ParseFloat(seriesREntry.Text, 64); err == nil {
				state.cfg.Divider.SeriesR = sr
			}
			if vpc, err := strconv.ParseFloat(voltsPerCountEntry.Text, 64); err == nil {
				state.cfg.Divider.VoltsPerCount = vpc
			}
			if nr, err := strconv.ParseFloat(nominalREntry.Text, 64); err == nil {
				state.cfg.Thermistor.NominalR = nr
			}
			if nt, err := strconv.ParseFloat(nominalTEntry.Text, 64); err == nil {
				state.cfg.Thermistor.NominalT = nt
			}
			if b, err := strconv.ParseFloat(bCoeffEntry.Text, 64); err == nil {
				state.cfg.Thermistor.BCoeff = b
			}
			if err := state.cfg.Save("config.yaml"); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
		},
	}

	return container.NewTabItem("Probe", form)
}

// createPulseTab creates the measurement cycle timing tab.
func createPulseTab(state *appState) *container.TabItem {
	baselineSamplesEntry := widget.NewEntry()
	baselineSamplesEntry.SetText(fmt.Sprintf("%d", state.cfg.Pulse.BaselineSamples))

	baselineIntervalEntry := widget.NewEntry()
	baselineIntervalEntry.SetText(state.cfg.Pulse.BaselineInterval.String())

	heaterDurationEntry := widget.NewEntry()
	heaterDurationEntry.SetText(state.cfg.Pulse.HeaterDuration.String())

	settleDurationEntry := widget.NewEntry()
	settleDurationEntry.SetText(state.cfg.Pulse.SettleDuration.String())

	sampleIntervalEntry := widget.NewEntry()
	sampleIntervalEntry.SetText(state.cfg.Pulse.SampleInterval.String())

	monitorDurationEntry := widget.NewEntry()
	monitorDurationEntry.SetText(state.cfg.Pulse.MonitorDuration.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Baseline Samples", Widget: baselineSamplesEntry},
			{Text: "Baseline Interval", Widget: baselineIntervalEntry},
			{Text: "Heater Duration", Widget: heaterDurationEntry},
			{Text: "Settle Duration", Widget: settleDurationEntry},
			{Text: "Sample Interval", Widget: sampleIntervalEntry},
			{Text: "Monitor Duration", Widget: monitorDurationEntry},
		},
		OnSubmit: func() {
			if bs, err := strconv.Atoi(baselineSamplesEntry.Text); err == nil {
				state.cfg.Pulse.BaselineSamples = bs
			}
			if bi, err := time.ParseDuration(baselineIntervalEntry.Text); err == nil {
				state.cfg.Pulse.BaselineInterval = bi
			}
			if hd, err := time.ParseDuration(heaterDurationEntry.Text); err == nil {
				state.cfg.Pulse.HeaterDuration = hd
			}
			if sd, err := time.ParseDuration(settleDurationEntry.Text); err == nil {
				state.cfg.Pulse.SettleDuration = sd
			}
			if si, err := time.ParseDuration(sampleIntervalEntry.Text); err == nil {
				state.cfg.Pulse.SampleInterval = si
			}
			if md, err := time.ParseDuration(monitorDurationEntry.Text); err == nil {
				state.cfg.Pulse.MonitorDuration = md
			}
			if err := state.cfg.Save("config.yaml"); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
		},
	}

	return container.NewTabItem("Pulse", form)
}

// createFlowTab creates the flow estimation calibration tab.
func createFlowTab(state *appState) *container.TabItem {
	thresholdEntry := widget.NewEntry()
	thresholdEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Flow.StagnationThreshold))

	calKEntry := widget.NewEntry()
	calKEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Flow.CalK))

	minPeakTimeEntry := widget.NewEntry()
	minPeakTimeEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Flow.MinPeakTimeS))

	windowSecondsEntry := widget.NewEntry()
	windowSecondsEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Monitor.WindowSeconds))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Stagnation Threshold (°C)", Widget: thresholdEntry},
			{Text: "Velocity Constant K (cm·s/day)", Widget: calKEntry},
			{Text: "Min Peak Time (s)", Widget: minPeakTimeEntry},
			{Text: "Display Window (s)", Widget: windowSecondsEntry},
		},
		OnSubmit: func() {
			if th, err := strconv.ParseFloat(thresholdEntry.Text, 64); err == nil {
				state.cfg.Flow.StagnationThreshold = th
			}
			if k, err := strconv.ParseFloat(calKEntry.Text, 64); err == nil {
				state.cfg.Flow.CalK = k
			}
			if mpt, err := strconv.ParseFloat(minPeakTimeEntry.Text, 64); err == nil {
				state.cfg.Flow.MinPeakTimeS = mpt
			}
			if ws, err := strconv.ParseFloat(windowSecondsEntry.Text, 64); err == nil {
				state.cfg.Monitor.WindowSeconds = ws
			}
			if err := state.cfg.Save("config.yaml"); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
		},
	}

	return container.NewTabItem("Flow", form)
}

// createUplinkTab creates the backend uplink configuration tab.
func createUplinkTab(state *appState) *container.TabItem {
	urlEntry := widget.NewEntry()
	urlEntry.SetText(state.cfg.Uplink.URL)

	deviceIDEntry := widget.NewEntry()
	deviceIDEntry.SetText(state.cfg.Uplink.DeviceID)

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Uplink.Timeout.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Ingest URL (empty = disabled)", Widget: urlEntry},
			{Text: "Device ID", Widget: deviceIDEntry},
			{Text: "Timeout", Widget: timeoutEntry},
		},
		OnSubmit: func() {
			state.cfg.Uplink.URL = urlEntry.Text
			if deviceIDEntry.Text != "" {
				state.cfg.Uplink.DeviceID = deviceIDEntry.Text
			}
			if to, err := time.ParseDuration(timeoutEntry.Text); err == nil {
				state.cfg.Uplink.Timeout = to
			}
			if err := state.cfg.Save("config.yaml"); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
		},
	}

	return container.NewTabItem("Uplink", form)
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	baselineTempEntry := widget.NewEntry()
	baselineTempEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.BaselineTempC))

	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(fmt.Sprintf("%.4f", state.cfg.Mock.NoiseLevel))

	velocityEntry := widget.NewEntry()
	velocityEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.FlowVelocityCmDay))

	directionEntry := widget.NewEntry()
	directionEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.FlowDirectionDeg))

	maxRiseEntry := widget.NewEntry()
	maxRiseEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.MaxRiseC))

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(state.cfg.Mock.SampleRate.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Baseline Temp (°C)", Widget: baselineTempEntry},
			{Text: "Noise Level (°C)", Widget: noiseLevelEntry},
			{Text: "Flow Velocity (cm/day, 0=stagnant)", Widget: velocityEntry},
			{Text: "Flow Direction (°)", Widget: directionEntry},
			{Text: "Max Rise (°C)", Widget: maxRiseEntry},
			{Text: "Sample Rate", Widget: sampleRateEntry},
		},
		OnSubmit: func() {
			if bt, err := strconv.ParseFloat(baselineTempEntry.Text, 64); err == nil {
				state.cfg.Mock.BaselineTempC = bt
			}
			if nl, err := strconv.ParseFloat(noiseLevelEntry.Text, 64); err == nil {
				state.cfg.Mock.NoiseLevel = nl
			}
			if v, err := strconv.ParseFloat(velocityEntry.Text, 64); err == nil {
				state.cfg.Mock.FlowVelocityCmDay = v
			}
			if d, err := strconv.ParseFloat(directionEntry.Text, 64); err == nil {
				state.cfg.Mock.FlowDirectionDeg = d
			}
			if mr, err := strconv.ParseFloat(maxRiseEntry.Text, 64); err == nil {
				state.cfg.Mock.MaxRiseC = mr
			}
			if sr, err := time.ParseDuration(sampleRateEntry.Text); err == nil {
				state.cfg.Mock.SampleRate = sr
			}
			if err := state.cfg.Save("config.yaml"); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}
