package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surplus_claims_created_total",
		Help: "Total number of claims created, by claimant role.",
	},
		[]string{"role"},
	)

	PickupsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surplus_pickups_confirmed_total",
		Help: "Total number of pickups confirmed with a valid OTP.",
	})

	PickupsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surplus_pickups_cancelled_total",
		Help: "Total number of pending pickups cancelled.",
	})

	RedemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surplus_cashback_redemptions_total",
		Help: "Total number of successful cashback redemptions.",
	})

	SideEffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surplus_side_effect_failures_total",
		Help: "Post-commit side effects that failed and were swallowed.",
	},
		[]string{"hook"},
	)

	PushDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surplus_push_deliveries_total",
		Help: "Push delivery attempts by result.",
	},
		[]string{"result"},
	)

	ListingsSweptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surplus_listings_swept_total",
		Help: "Listings touched by the housekeeping sweep, by action.",
	},
		[]string{"action"},
	)
)
