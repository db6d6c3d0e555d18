// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MutationsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchsync_mutations_applied_total",
		Help: "Accepted match mutations by operation type.",
	}, []string{"op"})

	DeltasPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchsync_deltas_published_total",
		Help: "Deltas fanned out by the broadcast hub (one per publish, not per subscriber).",
	})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchsync_subscriptions",
		Help: "Currently held match subscriptions across all connections.",
	})

	SubscribersDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchsync_subscribers_dropped_total",
		Help: "Connections dropped by the hub because their outbox was full.",
	})
)
