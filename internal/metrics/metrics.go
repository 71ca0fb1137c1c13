// Package metrics holds Prometheus instruments that are used across the
// resolver.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_resolve_total",
			Help: "Resolutions by payload kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	ScanEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_scan_events_total",
			Help: "Scan events accepted by the telemetry sink.",
		})

	ConversionEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_conversion_events_total",
			Help: "Conversion events accepted by the telemetry sink.",
		})

	TelemetryDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_telemetry_dropped_total",
			Help: "Events discarded because the sink queue was full.",
		})

	TelemetryErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_telemetry_errors_total",
			Help: "Event inserts that failed and were discarded.",
		})

	SuppressedScansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_suppressed_scans_total",
			Help: "Hits excluded from analytics by the suppression heuristic.",
		})
)

func init() {
	prometheus.MustRegister(
		ResolveTotal,
		ScanEventsTotal,
		ConversionEventsTotal,
		TelemetryDroppedTotal,
		TelemetryErrorsTotal,
		SuppressedScansTotal,
	)
}
