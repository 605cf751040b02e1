package blobs

import "github.com/prometheus/client_golang/prometheus"

// poolMetrics holds the pool's Prometheus instruments. All fields are nil
// until RegisterMetrics is called; increments are no-ops before that.
type poolMetrics struct {
	writes      prometheus.Counter
	writeErrors prometheus.Counter
	bytesRouted prometheus.Counter
	shards      prometheus.Counter
}

// RegisterMetrics registers the pool's metrics with registry. It should
// be called once during initialization and returns the pool for chaining.
func (p *Pool) RegisterMetrics(registry *prometheus.Registry) *Pool {
	p.metrics.writes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stablekit",
		Subsystem: "blobs",
		Name:      "writes_total",
		Help:      "Blob writes successfully routed to a shard.",
	})
	p.metrics.writeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stablekit",
		Subsystem: "blobs",
		Name:      "write_errors_total",
		Help:      "Blob writes that failed at any remote step.",
	})
	p.metrics.bytesRouted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stablekit",
		Subsystem: "blobs",
		Name:      "bytes_routed_total",
		Help:      "Total blob bytes routed to shards.",
	})
	p.metrics.shards = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stablekit",
		Subsystem: "blobs",
		Name:      "shards_provisioned_total",
		Help:      "Shards provisioned by the pool.",
	})

	registry.MustRegister(
		p.metrics.writes,
		p.metrics.writeErrors,
		p.metrics.bytesRouted,
		p.metrics.shards,
	)
	return p
}

func (m *poolMetrics) addWrite(n int) {
	if m.writes != nil {
		m.writes.Inc()
		m.bytesRouted.Add(float64(n))
	}
}

func (m *poolMetrics) incErrors() {
	if m.writeErrors != nil {
		m.writeErrors.Inc()
	}
}

func (m *poolMetrics) incShards() {
	if m.shards != nil {
		m.shards.Inc()
	}
}
