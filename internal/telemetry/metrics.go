package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/skelly-dev/typenav/internal/hierarchy"
)

// Metrics is a per-process Prometheus registry that records navigation
// counters. It implements hierarchy.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	navigations *prometheus.CounterVec
	queries     *prometheus.CounterVec
	closureSize *prometheus.HistogramVec
}

var _ hierarchy.Recorder = (*Metrics)(nil)

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "typenav",
			Name:      "navigations_total",
			Help:      "Navigations by direction and outcome",
		}, []string{"direction", "outcome"}),
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "typenav",
			Name:      "index_queries_total",
			Help:      "Derived-type index queries by query kind",
		}, []string{"query"}),
		closureSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "typenav",
			Name:      "closure_size",
			Help:      "Number of types in a computed closure",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"direction"}),
	}
}

func (m *Metrics) IndexQuery(query string) {
	m.queries.WithLabelValues(query).Inc()
}

func (m *Metrics) ClosureComputed(direction hierarchy.Direction, size int) {
	m.closureSize.WithLabelValues(direction.String()).Observe(float64(size))
}

func (m *Metrics) NavigationFinished(direction hierarchy.Direction, status hierarchy.Status) {
	m.navigations.WithLabelValues(direction.String(), status.String()).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
