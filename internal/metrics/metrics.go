// Package metrics holds the Prometheus collectors for the realtime layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes recorded by the presence registry.
const (
	ResultDelivered = "delivered"
	ResultOffline   = "offline"
	ResultFailed    = "failed"
)

type Metrics struct {
	Connections      prometheus.Gauge
	StatusChanges    *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	InboundEvents    *prometheus.CounterVec
	MessagesPosted   *prometheus.CounterVec
	RateLimitedDrops prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves them
// unregistered, which tests rely on to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "guildchat",
			Name:      "connections",
			Help:      "Live realtime connections tracked by the presence registry.",
		}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guildchat",
			Name:      "status_changes_total",
			Help:      "Presence status transitions by new status.",
		}, []string{"status"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guildchat",
			Name:      "deliveries_total",
			Help:      "Outbound event delivery attempts by result.",
		}, []string{"result"}),
		InboundEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guildchat",
			Name:      "inbound_events_total",
			Help:      "Realtime events received from clients by type.",
		}, []string{"type"}),
		MessagesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guildchat",
			Name:      "messages_posted_total",
			Help:      "Persisted messages by container kind.",
		}, []string{"kind"}),
		RateLimitedDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guildchat",
			Name:      "rate_limited_events_total",
			Help:      "Inbound realtime events dropped by the per-connection limiter.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Connections,
			m.StatusChanges,
			m.Deliveries,
			m.InboundEvents,
			m.MessagesPosted,
			m.RateLimitedDrops,
		)
	}
	return m
}
