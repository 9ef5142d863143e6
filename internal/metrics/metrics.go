// Package metrics exposes Prometheus instrumentation for the recognition
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesProcessed counts inbound frames handled by /recognize.
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_frames_processed_total",
		Help: "Number of frames processed by the recognition endpoint.",
	})

	// Detections counts classified candidates by outcome: new, repeat, unknown.
	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facetrack_detections_total",
		Help: "Number of detection candidates classified, by outcome.",
	}, []string{"outcome"})

	// RecognizerFailures counts detector calls that were degraded to an
	// empty result.
	RecognizerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_recognizer_failures_total",
		Help: "Number of recognizer calls that failed and were degraded to empty results.",
	})

	// EventAppendFailures counts recognition events that could not be persisted.
	EventAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_event_append_failures_total",
		Help: "Number of recognition events that failed to persist.",
	})

	// ActiveSessions tracks the number of live dedup sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "facetrack_active_sessions",
		Help: "Number of recognition sessions currently held in memory.",
	})
)

// Outcome label values for Detections.
const (
	OutcomeNew     = "new"
	OutcomeRepeat  = "repeat"
	OutcomeUnknown = "unknown"
)
