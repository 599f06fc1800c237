package mesh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics provides Prometheus-compatible metrics collection
// for fleet monitoring.
//
// Metrics exposed (all namespaced with "exprmesh_"):
//
//  1. computes_total (counter): completed computations.
//     Labels: site.
//
//  2. messages_sent_total (counter): replication messages enqueued.
//     Labels: site, kind (copy/compute/did_to_eid).
//
//  3. messages_received_total (counter): replication messages applied.
//     Labels: site, kind.
//
//  4. blobs_stored_total (counter): blobs admitted into a site's store.
//     Labels: site.
//
//  5. policy_denials_total (counter): reasoner denials.
//     Labels: site, predicate (access/compute).
//
//  6. idle_sleeps_total (counter): quiet ticks that slept.
//     Labels: site.
//
//  7. known_exprs (gauge): inner expressions known at a site.
//     Labels: site.
//
//  8. resolved_exprs (gauge): expressions with a recorded resolution.
//     Labels: site.
//
// One PrometheusMetrics may be shared by every site of a fleet; the site
// label separates their series.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := mesh.NewPrometheusMetrics(registry)
//	site, err := mesh.NewSite(..., mesh.WithMetrics(metrics))
//
//	// Expose via HTTP for Prometheus scraping:
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	computes         *prometheus.CounterVec
	messagesSent     *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	blobsStored      *prometheus.CounterVec
	policyDenials    *prometheus.CounterVec
	idleSleeps       *prometheus.CounterVec
	knownExprs       *prometheus.GaugeVec
	resolvedExprs    *prometheus.GaugeVec
}

// NewPrometheusMetrics creates metrics registered against the provided
// registry. Pass prometheus.DefaultRegisterer to use the global
// registry, or a private prometheus.NewRegistry() in tests.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		computes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exprmesh",
			Name:      "computes_total",
			Help:      "Completed computations per site.",
		}, []string{"site"}),
		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exprmesh",
			Name:      "messages_sent_total",
			Help:      "Replication messages enqueued, by message kind.",
		}, []string{"site", "kind"}),
		messagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exprmesh",
			Name:      "messages_received_total",
			Help:      "Replication messages applied, by message kind.",
		}, []string{"site", "kind"}),
		blobsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exprmesh",
			Name:      "blobs_stored_total",
			Help:      "Blobs admitted into the local store.",
		}, []string{"site"}),
		policyDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exprmesh",
			Name:      "policy_denials_total",
			Help:      "Reasoner denials, by predicate.",
		}, []string{"site", "predicate"}),
		idleSleeps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exprmesh",
			Name:      "idle_sleeps_total",
			Help:      "Progress ticks that found no work and slept.",
		}, []string{"site"}),
		knownExprs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "exprmesh",
			Name:      "known_exprs",
			Help:      "Inner expressions known at the site.",
		}, []string{"site"}),
		resolvedExprs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "exprmesh",
			Name:      "resolved_exprs",
			Help:      "Expressions with a recorded resolution at the site.",
		}, []string{"site"}),
	}
}

// RecordCompute increments the completed-computation counter.
func (m *PrometheusMetrics) RecordCompute(site string) {
	m.computes.WithLabelValues(site).Inc()
}

// RecordSend increments the sent-message counter for one enqueued copy.
func (m *PrometheusMetrics) RecordSend(site, kind string) {
	m.messagesSent.WithLabelValues(site, kind).Inc()
}

// RecordRecv increments the received-message counter.
func (m *PrometheusMetrics) RecordRecv(site, kind string) {
	m.messagesReceived.WithLabelValues(site, kind).Inc()
}

// RecordBlobStored increments the admitted-blob counter.
func (m *PrometheusMetrics) RecordBlobStored(site string) {
	m.blobsStored.WithLabelValues(site).Inc()
}

// RecordDenial increments the policy-denial counter. predicate is
// "access" or "compute".
func (m *PrometheusMetrics) RecordDenial(site, predicate string) {
	m.policyDenials.WithLabelValues(site, predicate).Inc()
}

// RecordSleep increments the idle-sleep counter.
func (m *PrometheusMetrics) RecordSleep(site string) {
	m.idleSleeps.WithLabelValues(site).Inc()
}

// SetKnownExprs updates the known-expression gauge.
func (m *PrometheusMetrics) SetKnownExprs(site string, n int) {
	m.knownExprs.WithLabelValues(site).Set(float64(n))
}

// SetResolvedExprs updates the resolved-expression gauge.
func (m *PrometheusMetrics) SetResolvedExprs(site string, n int) {
	m.resolvedExprs.WithLabelValues(site).Set(float64(n))
}
