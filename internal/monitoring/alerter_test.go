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

	"github.com/sells-group/recon-cli/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		DivergenceRateThreshold: 0.25,
		MinRecords:              5,
		ShortageThreshold:       50,
	})

	snap := &Snapshot{RunID: "r1", Records: 40, Divergent: 4, DivergenceRate: 0.1, ShortageQty: 12}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_DivergenceRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		DivergenceRateThreshold: 0.25,
		MinRecords:              5,
	})

	snap := &Snapshot{RunID: "r1", Records: 20, Divergent: 8, DivergenceRate: 0.4}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDivergenceRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Equal(t, "r1", alerts[0].RunID)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "8 of 20")
}

func TestAlerter_Evaluate_MinimumRecordsRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		DivergenceRateThreshold: 0.25,
		MinRecords:              5,
	})

	// 100% divergence but only 3 records.
	snap := &Snapshot{RunID: "r1", Records: 3, Divergent: 3, DivergenceRate: 1}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_MissingSuppliersAndShortage(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{ShortageThreshold: 5})

	snap := &Snapshot{
		RunID:            "r1",
		Records:          7,
		MissingSuppliers: []string{"Loja_1/COAL", "Loja_3/TAIS"},
		ShortageQty:      7.5,
		Shortages:        1,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertMissingSupplier, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "Loja_1/COAL, Loja_3/TAIS")
	assert.Equal(t, AlertShortage, alerts[1].Type)
	assert.Contains(t, alerts[1].Message, "7.50")
}

func TestAlerter_Evaluate_DisabledThresholds(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	snap := &Snapshot{Records: 100, Divergent: 100, DivergenceRate: 1, ShortageQty: 999}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		assert.Equal(t, "r1", alert.RunID)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertDivergenceRate, Severity: "high", RunID: "r1", Message: "test alert 1"},
		{Type: AlertMissingSupplier, Severity: "medium", RunID: "r1", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDivergenceRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertShortage, Message: "test"}})
	assert.Equal(t, 0, sent)
}
