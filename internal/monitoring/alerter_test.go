package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aid/internal/config"
)

func testMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		DegradedRateThreshold: 0.25,
		TimeoutRateThreshold:  0.10,
		MinSamples:            10,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		Passed:          15,
		Failed:          5,
		DegradedResults: 2,
		DegradedRate:    0.1,
		Timeouts:        1,
		TimeoutRate:     1.0 / 21,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_DegradedRate(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		Passed:          6,
		Failed:          14,
		DegradedResults: 8,
		DegradedRate:    0.4,
		DegradedBy:      map[string]int{"irreducibility": 8},
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDegradedRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Equal(t, map[string]int{"irreducibility": 8}, alerts[0].Details["by_dimension"])
}

func TestAlerter_Evaluate_TimeoutRate(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		Passed:      8,
		Timeouts:    4,
		TimeoutRate: 4.0 / 12,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTimeoutRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "33.3%")
	assert.Contains(t, alerts[0].Message, "4 of 12")
}

func TestAlerter_Evaluate_BelowMinSamples(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		Failed:          3,
		DegradedResults: 3,
		DegradedRate:    1,
		Timeouts:        3,
		TimeoutRate:     0.5,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_ZeroThresholdDisables(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{MinSamples: 1})

	snap := &MetricsSnapshot{
		Failed:          20,
		DegradedResults: 20,
		DegradedRate:    1,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDegradedRate}})
	assert.Zero(t, sent)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	var last Alert

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := testMonitoringConfig()
	cfg.WebhookURL = srv.URL
	a := NewAlerter(cfg)

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertDegradedRate, Severity: "high", Message: "one"},
		{Type: AlertTimeoutRate, Severity: "high", Message: "two"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
	assert.Equal(t, AlertTimeoutRate, last.Type)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testMonitoringConfig()
	cfg.WebhookURL = srv.URL
	a := NewAlerter(cfg)

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDegradedRate}})
	assert.Zero(t, sent)
}
