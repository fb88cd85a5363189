package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/event"
)

var (
	poolConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mongo_pool_connections_open",
			Help: "Connections currently open in the MongoDB pool",
		},
		[]string{"service"},
	)

	poolConnectionsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mongo_pool_connections_in_use",
			Help: "Connections currently checked out of the MongoDB pool",
		},
		[]string{"service"},
	)

	poolCheckoutFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongo_pool_checkout_failures_total",
			Help: "Failed attempts to check a connection out of the MongoDB pool",
		},
		[]string{"service", "reason"},
	)

	poolCleared = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongo_pool_cleared_total",
			Help: "Times the MongoDB pool was cleared after a server error",
		},
		[]string{"service"},
	)
)

// NewPoolMonitor returns a driver pool monitor that mirrors pool events into
// Prometheus metrics labelled with service.
func NewPoolMonitor(service string) *event.PoolMonitor {
	open := poolConnectionsOpen.WithLabelValues(service)
	inUse := poolConnectionsInUse.WithLabelValues(service)
	cleared := poolCleared.WithLabelValues(service)

	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			switch e.Type {
			case event.ConnectionCreated:
				open.Inc()
			case event.ConnectionClosed:
				open.Dec()
			case event.GetSucceeded:
				inUse.Inc()
			case event.ConnectionReturned:
				inUse.Dec()
			case event.GetFailed:
				poolCheckoutFailures.WithLabelValues(service, e.Reason).Inc()
			case event.PoolCleared:
				cleared.Inc()
			}
		},
	}
}
