package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_conflicts_total",
			Help: "Seat or zone reservation attempts rejected because the inventory was held or sold",
		},
		[]string{"kind"},
	)

	ReservationsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reservations_active",
			Help: "Reserved bookings created minus promoted/released, per kind",
		},
		[]string{"kind"},
	)

	TicketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets issued by paid orders",
		},
		[]string{"booking_type"},
	)

	IssuanceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issuance_failures_total",
			Help: "Issuance transactions aborted, by reason",
		},
		[]string{"reason"},
	)

	IssuanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "issuance_duration_seconds",
			Help:    "Duration of the order-to-tickets transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	SweeperReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_reclaimed_total",
			Help: "Expired holds and stale orders reclaimed by the sweeper",
		},
		[]string{"kind"},
	)
)
