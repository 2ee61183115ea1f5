// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private registry plus the bot's collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	incidents        prometheus.Counter
	deliveries       *prometheus.CounterVec
	mirrorDeliveries *prometheus.CounterVec
	inbound          *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		incidents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incidentbot_incidents_total",
			Help: "Incident records persisted.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incidentbot_deliveries_total",
			Help: "Broadcast delivery attempts to subscribers.",
		}, []string{"result"}),
		mirrorDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incidentbot_mirror_deliveries_total",
			Help: "Broadcast delivery attempts to mirror channels.",
		}, []string{"target", "result"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incidentbot_inbound_messages_total",
			Help: "Inbound chat messages by classification.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.incidents,
		m.deliveries,
		m.mirrorDeliveries,
		m.inbound,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncidentStored() {
	if m == nil {
		return
	}
	m.incidents.Inc()
}

func (m *Metrics) Delivery(ok bool) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) MirrorDelivery(target string, ok bool) {
	if m == nil {
		return
	}
	m.mirrorDeliveries.WithLabelValues(target, result(ok)).Inc()
}

func (m *Metrics) Inbound(kind string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(kind).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
