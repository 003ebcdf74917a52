package fetcher

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks account fetch latency and failures, labelled by the kind of
// account being loaded.
type Metrics struct {
	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	watchEmitted  prometheus.Counter
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "solstate",
			Subsystem: "invariant_fetcher",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching and decoding one account.",
		}, []string{"kind"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solstate",
			Subsystem: "invariant_fetcher",
			Name:      "fetch_errors_total",
			Help:      "Account fetches that failed, by account kind.",
		}, []string{"kind"}),
		watchEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solstate",
			Subsystem: "invariant_fetcher",
			Name:      "watch_snapshots_emitted_total",
			Help:      "Snapshots the watcher emitted because the pool changed.",
		}),
	}
	registry.MustRegister(m.fetchDuration, m.fetchErrors, m.watchEmitted)
	return m
}
