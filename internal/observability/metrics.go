package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsCreated  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rota_parceira", Name: "ride_requests_created_total", Help: "Total ride requests created"})
	OffersGenerated  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rota_parceira", Name: "offers_generated_total", Help: "Total driver offers delivered to a live request"})
	OffersSuppressed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rota_parceira", Name: "offers_suppressed_total", Help: "Total offers suppressed because their request was superseded or cancelled"})
	OffersAccepted   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rota_parceira", Name: "offers_accepted_total", Help: "Total offers accepted by passengers"})
	RidesCompleted   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rota_parceira", Name: "rides_completed_total", Help: "Total rides reaching COMPLETED"})
	RidesCancelled   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rota_parceira", Name: "rides_cancelled_total", Help: "Total rides cancelled by either party"})
	DriversOnline    = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "rota_parceira", Name: "drivers_online", Help: "Number of drivers currently online"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rota_parceira", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rota_parceira",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
