// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned" // target session deleted mid-stream
)

const namespace = "llmchat"

// =============================================================================
// METRICS
// =============================================================================

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	frames           *prometheus.CounterVec
	requests         *prometheus.CounterVec
	persistErrors    prometheus.Counter
	modelListErrors  prometheus.Counter
	timeToFirstDelta prometheus.Histogram
	streamDuration   prometheus.Histogram
	inFlight         prometheus.Gauge

	// Running totals for the in-app stats view.
	completed atomic.Int64
	failed    atomic.Int64
	deltas    atomic.Int64
	bytes     atomic.Int64
}

// New creates Metrics registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frames_total",
			Help:      "Decoded stream frames by kind",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completion requests by outcome",
		}, []string{"outcome"}),
		persistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Failed chat history saves",
		}),
		modelListErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_list_errors_total",
			Help:      "Failed model list requests",
		}),
		timeToFirstDelta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "time_to_first_delta_seconds",
			Help:      "Delay between request start and the first content delta",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		streamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_duration_seconds",
			Help:      "Total time from request start to stream end",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Completion requests currently streaming",
		}),
	}

	m.registry.MustRegister(
		m.frames,
		m.requests,
		m.persistErrors,
		m.modelListErrors,
		m.timeToFirstDelta,
		m.streamDuration,
		m.inFlight,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// =============================================================================
// RECORDING
// =============================================================================

// ObserveFrame counts one decoded frame of the given kind.
func (m *Metrics) ObserveFrame(kind string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(kind).Inc()
}

// ObserveDelta records one non-empty content delta of n bytes.
func (m *Metrics) ObserveDelta(n int) {
	if m == nil {
		return
	}
	m.deltas.Add(1)
	m.bytes.Add(int64(n))
}

// RequestStarted marks a request as in flight.
func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// ObserveRequest records a finished request. ttfd is zero when no content
// arrived and is then not observed.
func (m *Metrics) ObserveRequest(outcome string, elapsed, ttfd time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.requests.WithLabelValues(outcome).Inc()
	m.streamDuration.Observe(elapsed.Seconds())
	if ttfd > 0 {
		m.timeToFirstDelta.Observe(ttfd.Seconds())
	}
	switch outcome {
	case OutcomeCompleted:
		m.completed.Add(1)
	case OutcomeFailed:
		m.failed.Add(1)
	}
}

// ObserveSave records the result of a history save.
func (m *Metrics) ObserveSave(err error) {
	if m == nil || err == nil {
		return
	}
	m.persistErrors.Inc()
}

// ObserveModelList records the result of a model list request.
func (m *Metrics) ObserveModelList(err error) {
	if m == nil || err == nil {
		return
	}
	m.modelListErrors.Inc()
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is a point-in-time view of the running totals.
type Summary struct {
	Completed int64
	Failed    int64
	Deltas    int64
	Bytes     int64
}

// Summary returns the running totals since New.
func (m *Metrics) Summary() Summary {
	if m == nil {
		return Summary{}
	}
	return Summary{
		Completed: m.completed.Load(),
		Failed:    m.failed.Load(),
		Deltas:    m.deltas.Load(),
		Bytes:     m.bytes.Load(),
	}
}
