// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

// Package metrics provides Prometheus instrumentation for the passkey
// server: ceremony counters, performance histograms, and resource gauges.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all passkey metrics
	Namespace = "passkey"

	// Label names
	LabelCeremony   = "ceremony"
	LabelResult     = "result"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Ceremony names
	CeremonyRegistration     = "registration"
	CeremonyLogin            = "login"
	CeremonyReauthentication = "reauthentication"

	// Result values. Success is deliberately the only fine-grained
	// outcome; failures are bucketed by error class, not by the check
	// that rejected them.
	ResultSuccess      = "success"
	ResultRejected     = "rejected"
	ResultMalformed    = "malformed"
	ResultPrecondition = "precondition"
)

var (
	// CeremoniesTotal tracks finished ceremonies by kind and result.
	CeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_total",
			Help:      "Total number of finished ceremonies by kind and result",
		},
		[]string{LabelCeremony, LabelResult},
	)

	// CeremonyDuration tracks the server-side duration of finish calls in
	// seconds. Buckets are sized for parse-and-verify latencies.
	CeremonyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ceremony_duration_seconds",
			Help:      "Duration of ceremony finish processing in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{LabelCeremony},
	)

	// CloneDetectionsTotal counts assertions rejected because the
	// signature counter did not advance.
	CloneDetectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "clone_detections_total",
			Help:      "Total number of assertions rejected by clone detection",
		},
	)

	// RegisteredCredentials tracks the number of credentials currently
	// held by the repository.
	RegisteredCredentials = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "registered_credentials",
			Help:      "Number of credentials currently registered",
		},
	)

	// ActiveSessions tracks the number of live sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_sessions",
			Help:      "Number of live sessions",
		},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// Goroutines tracks the current number of goroutines in the server.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	// Updated periodically by the resource collector.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// MemorySysBytes tracks the total bytes of memory obtained from the OS.
	// Updated periodically by the resource collector.
	MemorySysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_sys_bytes",
			Help:      "Total bytes of memory obtained from the OS",
		},
	)

	// GCPauseTotalSeconds tracks the cumulative time spent in GC stop-the-world pauses.
	// Updated periodically by the resource collector.
	GCPauseTotalSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "gc_pause_total_seconds",
			Help:      "Cumulative time spent in GC stop-the-world pauses",
		},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordCeremony records a finished ceremony with its duration.
//
// Parameters:
//   - ceremony: The ceremony kind (use Ceremony* constants)
//   - result: The outcome class (use Result* constants)
//   - duration: The finish call duration in seconds
func RecordCeremony(ceremony, result string, duration float64) {
	if !enabled.Load() {
		return
	}
	CeremoniesTotal.WithLabelValues(ceremony, result).Inc()
	CeremonyDuration.WithLabelValues(ceremony).Observe(duration)
}

// RecordCloneDetection records an assertion rejected by clone detection.
func RecordCloneDetection() {
	if !enabled.Load() {
		return
	}
	CloneDetectionsTotal.Inc()
}

// SetRegisteredCredentials sets the registered credential gauge.
func SetRegisteredCredentials(count float64) {
	if !enabled.Load() {
		return
	}
	RegisteredCredentials.Set(count)
}

// SetActiveSessions sets the live session gauge.
func SetActiveSessions(count float64) {
	if !enabled.Load() {
		return
	}
	ActiveSessions.Set(count)
}

// RecordHTTPRequest records an HTTP request with its duration and status.
//
// Parameters:
//   - method: The HTTP method (GET, POST, etc.)
//   - statusCode: The HTTP status code as a string
//   - duration: The request duration in seconds
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
