package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the marketplace collectors. Each instance owns its registry
// so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	OrdersPlaced  prometheus.Counter
	OrdersFailed  *prometheus.CounterVec
	PlaceDuration prometheus.Histogram
	EventsDropped prometheus.Counter
	CacheRequests *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		OrdersPlaced: f.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "orders_placed_total",
			Help:      "Orders committed.",
		}),
		OrdersFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "orders_failed_total",
			Help:      "Order placements that failed, by error kind.",
		}, []string{"kind"}),
		PlaceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "market",
			Name:      "order_place_duration_seconds",
			Help:      "Time spent placing one order, retries included.",
			Buckets:   prometheus.DefBuckets,
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "order_events_dropped_total",
			Help:      "OrderPlaced events that could not be queued for Kafka.",
		}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "order_list_cache_requests_total",
			Help:      "Order listing cache lookups, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
