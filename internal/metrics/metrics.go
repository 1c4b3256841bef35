// Package metrics exposes the Prometheus collectors the routing core
// updates during search, preprocessing, and re-planning. A single
// registry-backed set of collectors is created at package init and
// reused across the process; handlers.go in internal/api serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchDuration records wall-clock time spent in a single A*
	// search, labeled by preset so fastest/greenest/etc can be
	// compared.
	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecoroute",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Time spent in a single route search.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"preset"})

	// NodesExplored records how many nodes a search expanded before
	// terminating, labeled by outcome (found or unreachable).
	NodesExplored = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecoroute",
		Subsystem: "search",
		Name:      "nodes_explored",
		Help:      "Nodes expanded by a single route search.",
		Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 20000},
	}, []string{"outcome"})

	// ReplanTotal counts replan decisions, labeled by whether the
	// candidate was committed and the triggering reason.
	ReplanTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoroute",
		Subsystem: "mpc",
		Name:      "replan_total",
		Help:      "Replan decisions evaluated, labeled by commit outcome and trigger reason.",
	}, []string{"committed", "reason"})

	// PreprocessDuration records how long contraction hierarchy
	// preprocessing took for a given graph.
	PreprocessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ecoroute",
		Subsystem: "ch",
		Name:      "preprocess_seconds",
		Help:      "Wall-clock time spent contracting the road graph.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	// ShortcutsInserted records how many shortcut edges a contraction
	// run inserted.
	ShortcutsInserted = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecoroute",
		Subsystem: "ch",
		Name:      "shortcuts_inserted",
		Help:      "Shortcut edges inserted by the most recent contraction run.",
	})

	// CacheHits and CacheMisses count route-cache lookups.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ecoroute",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Route cache lookups that returned a cached result.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ecoroute",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Route cache lookups that found nothing cached.",
	})
)
