package uplink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterxchange/gowxflow/pkg/config"
	"github.com/waterxchange/gowxflow/pkg/flow"
)

func testUplinkConfig(url string) config.UplinkConfig {
	return config.UplinkConfig{
		URL:        url,
		DeviceID:   "WXF-042",
		DeviceType: "wx-flow",
		FWVersion:  "1.0.0",
		Timeout:    time.Second,
	}
}

func TestSendFlow_PayloadShape(t *testing.T) {
	var got map[string]any
	var contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testUplinkConfig(server.URL))

	result := flow.Result{
		VelocityCmDay: 112.5,
		DirectionDeg:  45.0,
		PeakTemps:     [4]float64{0.3, 0.5, 0.1, 0.2},
		PeakTimes:     [4]float64{9.0, 8.0, 12.0, 10.0},
		Valid:         true,
	}

	require.NoError(t, client.SendFlow(context.Background(), result))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "WXF-042", got["device_id"])
	assert.Equal(t, "wx-flow", got["device_type"])
	assert.Equal(t, "1.0.0", got["fw_version"])

	flowBlock, ok := got["flow"].(map[string]any)
	require.True(t, ok, "payload must carry a nested flow block")
	assert.Equal(t, 112.5, flowBlock["velocity_cm_day"])
	assert.Equal(t, 45.0, flowBlock["direction_deg"])
	assert.Equal(t, true, flowBlock["valid"])
	assert.Len(t, flowBlock["peak_temps"], 4)
	assert.Len(t, flowBlock["peak_times"], 4)
}

func TestSendFlow_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "device not registered", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testUplinkConfig(server.URL))

	err := client.SendFlow(context.Background(), flow.Result{Valid: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "device not registered")
}

func TestSendFlow_ConnectionRefused(t *testing.T) {
	client := NewClient(testUplinkConfig("http://127.0.0.1:1/ingest"))

	err := client.SendFlow(context.Background(), flow.Result{Valid: true})
	assert.Error(t, err)
}

func TestSendFlow_ContextCancelled(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	client := NewClient(testUplinkConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.SendFlow(ctx, flow.Result{Valid: true})
	assert.Error(t, err)
}
