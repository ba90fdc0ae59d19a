package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

var (
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts partitioned by result kind.",
	}, []string{"result"})

	StockReservationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_reservation_failures_total",
		Help:      "Reservations aborted because a product could not cover the demand.",
	})

	PaymentEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_events_total",
		Help:      "Payment provider events partitioned by type and reconciliation outcome.",
	}, []string{"type", "outcome"})

	OutboxPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox rows handed to the broker partitioned by topic and result.",
	}, []string{"topic", "result"})

	ProductCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "product_cache_total",
		Help:      "Product cache lookups partitioned by result.",
	}, []string{"result"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification emails partitioned by topic and result.",
	}, []string{"topic", "result"})
)
