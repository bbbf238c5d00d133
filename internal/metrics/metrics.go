// Package metrics exposes Prometheus instrumentation for the trading loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fxtrader"

// Metrics holds the collectors updated by the engine and portfolio.
type Metrics struct {
	Ticks           *prometheus.CounterVec
	Signals         *prometheus.CounterVec
	SignalsDropped  *prometheus.CounterVec
	Orders          *prometheus.CounterVec
	ExecutionErrors *prometheus.CounterVec
	FeedErrors      prometheus.Counter

	Balance    prometheus.Gauge
	QueueDepth prometheus.Gauge
}

// New registers every collector with reg. Pass prometheus.NewRegistry()
// in tests to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_total",
			Help:      "Ticks dispatched to the strategy and portfolio",
		}, []string{"pair"}),
		Signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "signals_total",
			Help:      "Signals emitted by the strategy",
		}, []string{"pair", "side"}),
		SignalsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "signals_dropped_total",
			Help:      "Signals dropped because prices were incomplete",
		}, []string{"pair"}),
		Orders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "orders_total",
			Help:      "Orders emitted by the portfolio",
		}, []string{"pair", "side"}),
		ExecutionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "errors_total",
			Help:      "Orders the execution handler failed to place",
		}, []string{"pair"}),
		FeedErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Price feed failures, including malformed stream messages",
		}),
		Balance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "balance",
			Help:      "Realized account balance in the home currency",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "queue_depth",
			Help:      "Events waiting in the dispatch queue",
		}),
	}
}

// Nop returns collectors bound to a throwaway registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Serve exposes /metrics for the given gatherer on addr. The caller owns
// shutdown of the returned server.
func Serve(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
