package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "balanced_bowl"

// Collectors are the Prometheus metrics exported by the service.
type Collectors struct {
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	Dispatches     *prometheus.CounterVec
	Sessions       prometheus.Gauge
	AssistantCalls *prometheus.CounterVec
	AssistantToken *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewCollectors registers the service metrics with reg.
// A nil reg uses a fresh registry, which keeps tests independent.
func NewCollectors(reg *prometheus.Registry) *Collectors {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Collectors{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "dispatches_total",
				Help:      "Total number of planner actions dispatched",
			},
			[]string{"action"},
		),
		Sessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "sessions_open",
				Help:      "Number of planner sessions held in memory",
			},
		),
		AssistantCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assistant",
				Name:      "calls_total",
				Help:      "Total number of assistant calls",
			},
			[]string{"agent", "outcome"},
		),
		AssistantToken: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assistant",
				Name:      "tokens_total",
				Help:      "Total number of tokens used by the assistant",
			},
			[]string{"agent", "kind"},
		),
		gatherer: reg,
	}
}

// ObserveHTTP records one served request.
func (c *Collectors) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registered metrics in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
