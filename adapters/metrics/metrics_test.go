package metrics_test

import (
	"testing"

	"github.com/caregate/caregate/adapters/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func TestNewWithRegistry(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}

	// Verify all metrics are initialized
	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration is nil")
	}
	if m.RequestsInFlight == nil {
		t.Error("RequestsInFlight is nil")
	}
	if m.AuthFailures == nil {
		t.Error("AuthFailures is nil")
	}
	if m.QuotaChecks == nil {
		t.Error("QuotaChecks is nil")
	}
	if m.QuotaDenials == nil {
		t.Error("QuotaDenials is nil")
	}
	if m.AssistantDuration == nil {
		t.Error("AssistantDuration is nil")
	}
	if m.WebhookEvents == nil {
		t.Error("WebhookEvents is nil")
	}
	if m.ConfigReloads == nil {
		t.Error("ConfigReloads is nil")
	}
}

func TestQuotaCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.QuotaChecks.WithLabelValues("free").Inc()
	m.QuotaChecks.WithLabelValues("pro").Add(3)
	m.QuotaDenials.WithLabelValues("free").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	var foundChecks, foundDenials bool
	for _, f := range families {
		switch f.GetName() {
		case "caregate_quota_checks_total":
			foundChecks = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 quota check series, got %d", len(f.GetMetric()))
			}
		case "caregate_quota_denials_total":
			foundDenials = true
		}
	}
	if !foundChecks {
		t.Error("caregate_quota_checks_total metric not found")
	}
	if !foundDenials {
		t.Error("caregate_quota_denials_total metric not found")
	}
}

func TestAssistantDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.AssistantDuration.Observe(0.8)
	m.AssistantDuration.Observe(2.4)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "caregate_assistant_duration_seconds" {
			found = true
			if f.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
				t.Errorf("expected 2 samples, got %d", f.GetMetric()[0].GetHistogram().GetSampleCount())
			}
		}
	}
	if !found {
		t.Error("caregate_assistant_duration_seconds metric not found")
	}
}
