// Package metrics exposes Prometheus collectors for the soundboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider is the full set of instrumentation hooks. The hub, the
// scheduler and the HTTP middleware each depend only on the slice they
// need; one Provider value satisfies them all.
type Provider interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	SubscribersChanged(active int)
	ClickEvent()
	PlayEvent()
	RollupSaved(duration time.Duration, err error)
}

// NewProvider returns live Prometheus collectors, or a no-op provider
// when metrics are disabled.
func NewProvider(enabled bool) Provider {
	if !enabled {
		return noopProvider{}
	}
	return newPrometheusProvider(prometheus.DefaultRegisterer)
}

type prometheusProvider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	subscribers     prometheus.Gauge
	clicksTotal     prometheus.Counter
	playsTotal      prometheus.Counter
	rollupDuration  prometheus.Histogram
	rollupFailures  prometheus.Counter
}

func newPrometheusProvider(reg prometheus.Registerer) *prometheusProvider {
	factory := promauto.With(reg)

	return &prometheusProvider{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "megumin_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "megumin_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "megumin_ws_subscribers",
			Help: "Currently connected WebSocket subscribers",
		}),

		clicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "megumin_clicks_total",
			Help: "Total number of click events received",
		}),

		playsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "megumin_plays_total",
			Help: "Total number of sound play events received",
		}),

		rollupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "megumin_rollup_duration_seconds",
			Help:    "Duration of rollup persistence in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		rollupFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "megumin_rollup_failures_total",
			Help: "Total number of failed rollup saves",
		}),
	}
}

func (p *prometheusProvider) IncRequestsTotal(endpoint string, status int) {
	p.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (p *prometheusProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	p.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (p *prometheusProvider) SubscribersChanged(active int) {
	p.subscribers.Set(float64(active))
}

func (p *prometheusProvider) ClickEvent() {
	p.clicksTotal.Inc()
}

func (p *prometheusProvider) PlayEvent() {
	p.playsTotal.Inc()
}

func (p *prometheusProvider) RollupSaved(duration time.Duration, err error) {
	p.rollupDuration.Observe(duration.Seconds())
	if err != nil {
		p.rollupFailures.Inc()
	}
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// noopProvider is used when metrics are disabled.
type noopProvider struct{}

func (noopProvider) IncRequestsTotal(string, int)                 {}
func (noopProvider) ObserveRequestDuration(string, time.Duration) {}
func (noopProvider) SubscribersChanged(int)                       {}
func (noopProvider) ClickEvent()                                  {}
func (noopProvider) PlayEvent()                                   {}
func (noopProvider) RollupSaved(time.Duration, error)             {}
