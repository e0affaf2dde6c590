package bcsnet

import (
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the counters and gauges recorded while a network is built and deployed
type Metrics struct {
	HostsTotal      prometheus.Gauge
	RoutersTotal    prometheus.Gauge
	LinksTotal      *prometheus.CounterVec
	AddrsAssigned   prometheus.Counter
	NeighborSetSize prometheus.Histogram
	InstallsTotal   *prometheus.CounterVec
	UnreachablePeer prometheus.Counter

	registry *prometheus.Registry
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// DefaultMetrics returns the process-wide metrics
func DefaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a set of metrics bound to a registry of their own
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.HostsTotal = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "bcsnet_hosts_total",
			Help: "Number of hosts in the topology",
		},
	)
	m.RoutersTotal = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "bcsnet_routers_total",
			Help: "Number of routers in the topology",
		},
	)
	m.LinksTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcsnet_links_total",
			Help: "Number of edges built, by graph",
		},
		[]string{"graph"},
	)
	m.AddrsAssigned = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "bcsnet_addresses_assigned_total",
			Help: "Number of link endpoint addresses assigned",
		},
	)
	m.NeighborSetSize = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bcsnet_neighbor_set_size",
			Help:    "Number of peers each host gossips to",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
		},
	)
	m.InstallsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcsnet_installs_total",
			Help: "Number of peer agent installs, by status",
		},
		[]string{"status"},
	)
	m.UnreachablePeer = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "bcsnet_unreachable_peer_connections_total",
			Help: "Number of peer connections whose hosts are not joined by physical links",
		},
	)
	return m
}

// RecordTopology notes the size of a built DualGraph
func (m *Metrics) RecordTopology(dg *DualGraph) {
	m.HostsTotal.Set(float64(dg.NumHosts))
	m.RoutersTotal.Set(float64(dg.NumRouters))
	m.LinksTotal.WithLabelValues("physical").Add(float64(len(dg.Physical)))
	m.LinksTotal.WithLabelValues("overlay").Add(float64(len(dg.Overlay)))
}

// RecordNeighbors notes the address count and the size of every neighbor set
func (m *Metrics) RecordNeighbors(w *Wiring, nbrs NeighborSets) {
	m.AddrsAssigned.Add(float64(w.NumAddrs()))
	for _, nbrSet := range nbrs {
		m.NeighborSetSize.Observe(float64(len(nbrSet)))
	}
}

// RecordInstall counts one install attempt
func (m *Metrics) RecordInstall(err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.InstallsTotal.WithLabelValues(status).Inc()
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (m *Metrics) GetPrometheusRegistry() *prometheus.Registry {
	return m.registry
}

// WriteText writes every gathered metric in the Prometheus text format
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
