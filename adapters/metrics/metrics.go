// Package metrics provides Prometheus metrics collection for CareGate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for CareGate.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Auth metrics
	AuthFailures *prometheus.CounterVec

	// Quota metrics
	QuotaChecks    *prometheus.CounterVec
	QuotaDenials   *prometheus.CounterVec
	QuotaReleases  prometheus.Counter
	QuotaResets    prometheus.Counter
	QuotaRemaining *prometheus.GaugeVec

	// Assistant metrics
	AssistantDuration prometheus.Histogram
	AssistantErrors   *prometheus.CounterVec

	// Payment metrics
	WebhookEvents *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newWith(promauto.With(reg))
}

func newWith(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "requests_total",
				Help:      "Total number of API requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "caregate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "caregate",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "auth_failures_total",
				Help:      "Total number of authentication failures",
			},
			[]string{"reason"},
		),
		QuotaChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "quota_checks_total",
				Help:      "Total number of quota checks",
			},
			[]string{"tier"},
		),
		QuotaDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "quota_denials_total",
				Help:      "Total number of queries rejected over quota",
			},
			[]string{"tier"},
		),
		QuotaReleases: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "quota_releases_total",
				Help:      "Reserved slots released after failed assistant calls",
			},
		),
		QuotaResets: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "quota_resets_total",
				Help:      "Usage counter resets (tier changes)",
			},
		),
		QuotaRemaining: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "caregate",
				Name:      "quota_remaining",
				Help:      "Remaining queries in the current billing period",
			},
			[]string{"tier"},
		),
		AssistantDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "caregate",
				Name:      "assistant_duration_seconds",
				Help:      "Assistant service call duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		AssistantErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "assistant_errors_total",
				Help:      "Total number of assistant service errors",
			},
			[]string{"type"},
		),
		WebhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "payment_webhook_events_total",
				Help:      "Payment provider webhook events by type and outcome",
			},
			[]string{"event", "outcome"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "caregate",
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
	}
}
