package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	CarrierErrors      *prometheus.CounterVec
	QuotaDenials       *prometheus.CounterVec
	QuotaRemaining     *prometheus.GaugeVec
	AddressResolutions *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipmux_requests_total",
				Help: "Total number of requests by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipmux_request_duration_seconds",
				Help:    "Request duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipmux_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error type",
			},
			[]string{"carrier", "error_type"},
		),
		QuotaDenials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipmux_quota_denials_total",
				Help: "Calls rejected locally by the per-provider quota",
			},
			[]string{"carrier", "operation"},
		),
		QuotaRemaining: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shipmux_quota_remaining",
				Help: "Admissions left in the current quota window per carrier",
			},
			[]string{"carrier"},
		),
		AddressResolutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipmux_address_resolutions_total",
				Help: "Address-book resolutions by carrier and outcome (hit, registered, error)",
			},
			[]string{"carrier", "outcome"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, carrier, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, carrier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, carrier).Observe(duration)
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, errorType string) {
	m.CarrierErrors.WithLabelValues(carrier, errorType).Inc()
}

// RecordQuotaDenial records a locally rejected carrier call.
func (m *Metrics) RecordQuotaDenial(carrier, operation string) {
	m.QuotaDenials.WithLabelValues(carrier, operation).Inc()
}

// SetQuotaRemaining records how many admissions are left in the
// carrier's current window.
func (m *Metrics) SetQuotaRemaining(carrier string, remaining int) {
	m.QuotaRemaining.WithLabelValues(carrier).Set(float64(remaining))
}

// RecordAddressResolution records an address-book lookup outcome.
func (m *Metrics) RecordAddressResolution(carrier, outcome string) {
	m.AddressResolutions.WithLabelValues(carrier, outcome).Inc()
}
