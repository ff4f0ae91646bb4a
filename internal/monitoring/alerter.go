package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDivergenceRate  AlertType = "divergence_rate"
	AlertMissingSupplier AlertType = "missing_supplier"
	AlertShortage        AlertType = "shortage"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	RunID     string         `json:"run_id"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Divergence rate, only once the run is large enough to mean something.
	if a.cfg.DivergenceRateThreshold > 0 && snap.Records >= a.cfg.MinRecords &&
		snap.DivergenceRate > a.cfg.DivergenceRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDivergenceRate,
			Severity: "high",
			RunID:    snap.RunID,
			Message: fmt.Sprintf(
				"Run %s: %.1f%% of records diverge, threshold %.1f%% (%d of %d)",
				snap.RunID, snap.DivergenceRate*100, a.cfg.DivergenceRateThreshold*100,
				snap.Divergent, snap.Records,
			),
			Details: map[string]any{
				"divergence_rate": snap.DivergenceRate,
				"threshold":       a.cfg.DivergenceRateThreshold,
				"divergent":       snap.Divergent,
				"records":         snap.Records,
			},
			Timestamp: now,
		})
	}

	if len(snap.MissingSuppliers) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertMissingSupplier,
			Severity: "medium",
			RunID:    snap.RunID,
			Message: fmt.Sprintf(
				"Run %s: no invoice from %d supplier(s): %s",
				snap.RunID, len(snap.MissingSuppliers), strings.Join(snap.MissingSuppliers, ", "),
			),
			Details: map[string]any{
				"suppliers": snap.MissingSuppliers,
			},
			Timestamp: now,
		})
	}

	if a.cfg.ShortageThreshold > 0 && snap.ShortageQty > a.cfg.ShortageThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertShortage,
			Severity: "high",
			RunID:    snap.RunID,
			Message: fmt.Sprintf(
				"Run %s: %.2f units ordered but not invoiced, threshold %.2f",
				snap.RunID, snap.ShortageQty, a.cfg.ShortageThreshold,
			),
			Details: map[string]any{
				"shortage_qty": snap.ShortageQty,
				"threshold":    a.cfg.ShortageThreshold,
				"shortages":    snap.Shortages,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.String("run_id", alert.RunID),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
