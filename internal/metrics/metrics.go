// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics registers Prometheus instrumentation for the engine's
// background processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	RecordsPurged prometheus.Counter

	RelayDelivered prometheus.Counter
	RelayRetries   prometheus.Counter
	OutboxDepth    prometheus.Gauge
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "litvault_records_purged_total",
			Help: "Literature records purged after retention expiry",
		}),
		RelayDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "litvault_relay_delivered_total",
			Help: "Outbox changes delivered to the search index",
		}),
		RelayRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "litvault_relay_retries_total",
			Help: "Outbox deliveries requeued after failure",
		}),
		OutboxDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "litvault_outbox_depth",
			Help: "Changes waiting in the outbox",
		}),
	}
}
