package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clearlot",
		Name:      "orders_placed_total",
		Help:      "Orders created at checkout.",
	})
	WireConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clearlot",
		Name:      "wire_confirmations_total",
		Help:      "Wire payments confirmed by admins.",
	})
	OffersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clearlot",
		Name:      "offers_accepted_total",
		Help:      "Offers reaching ACCEPTED.",
	})
	LabelsPurchased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clearlot",
		Name:      "shipping_labels_total",
		Help:      "Shipping labels purchased.",
	})
	PayoutsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clearlot",
		Name:      "payouts_released_total",
		Help:      "Seller payouts marked paid.",
	})
)
