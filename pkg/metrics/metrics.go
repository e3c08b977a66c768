// Package metrics provides Prometheus instrumentation for strata's build and
// query paths.
//
// # Overview
//
// The package provides:
//   - Pre-defined counters and histograms for queries, fallbacks and pruning
//   - A private registry exposed through Handler
//   - Timing and latency percentile helpers for the benchmark harness
//
// # Basic Usage
//
//	metrics.QueriesTotal.WithLabelValues("zone_pruned").Inc()
//	metrics.QueryFallbacks.WithLabelValues("zone_pruned", "missing_artifact").Inc()
//
//	timer := metrics.NewTimer("query")
//	rows := engine.Select(ctx, pred)
//	metrics.QueryDuration.WithLabelValues("zone_pruned").Observe(timer.Stop().Seconds())
//
//	http.Handle("/metrics", metrics.Handler())
package metrics

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every strata metric. It is separate from the default
// registry so tests and embedding programs do not collide.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

var (
	// QueriesTotal counts answered selections by the path that produced them.
	// Labels: path (zone_pruned, compressed_scan, full_scan)
	QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_queries_total",
			Help: "Total number of selections answered, by execution path",
		},
		[]string{"path"},
	)

	// QueryFallbacks counts degradations from a faster path to the next one.
	// Labels: from (path that gave up), reason (error type or precondition)
	QueryFallbacks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_query_fallbacks_total",
			Help: "Total number of query path fallbacks",
		},
		[]string{"from", "reason"},
	)

	// ZonesTotal counts zones considered by the zone-pruned path.
	ZonesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_zones_total",
			Help: "Total number of zones considered for pruning",
		},
	)

	// ZonesPruned counts zones skipped without reading any bytes.
	ZonesPruned = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_zones_pruned_total",
			Help: "Total number of zones pruned",
		},
	)

	// BytesRead counts column bytes read from disk.
	// Labels: column
	BytesRead = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_bytes_read_total",
			Help: "Total number of column bytes read",
		},
		[]string{"column"},
	)

	// MalformedRows counts input rows skipped by the table loader.
	MalformedRows = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_malformed_rows_total",
			Help: "Total number of malformed input rows skipped",
		},
	)

	// QueryDuration tracks selection latency in seconds.
	// Labels: path
	QueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "strata_query_duration_seconds",
			Help: "Selection latency in seconds",
			Buckets: []float64{
				0.0001, // 100µs
				0.001,  // 1ms
				0.005,
				0.01, // 10ms
				0.05,
				0.1, // 100ms
				0.5,
				1,
				5,
			},
		},
		[]string{"path"},
	)
)

// Handler serves the strata registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It may be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// LatencyTracker keeps the most recent durations and reports percentiles.
type LatencyTracker struct {
	mu      sync.Mutex
	values  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker holding at most maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LatencyTracker{
		values:  make([]time.Duration, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record adds a sample, evicting the oldest when full.
func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) >= l.maxSize {
		l.values = l.values[1:]
	}
	l.values = append(l.values, d)
}

// Count returns the number of samples held.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.values)
}

// GetPercentile returns the nearest-rank percentile p in [0, 100].
func (l *LatencyTracker) GetPercentile(p float64) time.Duration {
	l.mu.Lock()
	sorted := append([]time.Duration(nil), l.values...)
	l.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := int(float64(len(sorted)) * p / 100)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	if index < 0 {
		index = 0
	}
	return sorted[index]
}
