// Package metrics exposes the Prometheus instruments for the workflow engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts resolved workflow transitions by entity type,
	// requested action and result (submitted/approved/reverted/noop/error).
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wf_transitions_total",
			Help: "Workflow transitions processed, by entity type, action and result.",
		},
		[]string{"entity_type", "action", "result"},
	)

	// TransitionDuration observes end-to-end transition latency including
	// collaborator calls.
	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wf_transition_duration_seconds",
			Help:    "End-to-end workflow transition duration.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity_type"},
	)

	// TerminalPushesTotal counts one-time completion pushes to the core
	// banking host.
	TerminalPushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wf_terminal_pushes_total",
			Help: "Terminal completion pushes to the system of record.",
		},
		[]string{"entity_type"},
	)
)
