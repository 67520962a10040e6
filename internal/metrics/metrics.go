package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"corePools/internal/model"
)

const (
	ResultOK      = "ok"
	ResultNoData  = "no_data"
	ResultFailure = "error"
)

// Metrics holds the Prometheus metrics for a run.
type Metrics struct {
	pools         *prometheus.GaugeVec
	fetchDuration *prometheus.HistogramVec
	fetchTotal    *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
}

// NewMetrics creates and registers the run metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pools: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corepools_pools",
			Help: "Number of core pools per chain, labeled by source.",
		}, []string{"chain", "source"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corepools_fetch_duration_seconds",
			Help:    "Time taken by a subgraph pools query.",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain"}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corepools_fetch_total",
			Help: "Subgraph pools queries, labeled by chain and result.",
		}, []string{"chain", "result"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corepools_last_success_timestamp_seconds",
			Help: "Unix time of the last run that wrote its output.",
		}),
	}
	reg.MustRegister(m.pools, m.fetchDuration, m.fetchTotal, m.lastSuccess)
	return m
}

// ObserveFetch records a single chain query.
func (m *Metrics) ObserveFetch(chain, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(chain).Observe(elapsed.Seconds())
	m.fetchTotal.WithLabelValues(chain, result).Inc()
}

// ObserveSnapshot records pool counts per chain and source.
func (m *Metrics) ObserveSnapshot(snapshot model.Snapshot) {
	if m == nil {
		return
	}
	for _, chain := range snapshot.Pools.Chains() {
		query, whitelist := snapshot.CountBySource(chain)
		m.pools.WithLabelValues(chain, string(model.SourceQuery)).Set(float64(query))
		m.pools.WithLabelValues(chain, string(model.SourceWhitelist)).Set(float64(whitelist))
	}
	m.lastSuccess.Set(float64(snapshot.CreatedAt.Unix()))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
