package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RefreshTotal       *prometheus.CounterVec
	RefreshDuration    prometheus.Histogram
	LastRefreshSuccess prometheus.Gauge
	Currencies         prometheus.Gauge

	ConversionsTotal *prometheus.CounterVec
}

// NewMetrics registers the service collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rates_refresh_total",
				Help: "Upstream refresh attempts by result",
			},
			[]string{"result"},
		),

		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rates_refresh_duration_seconds",
				Help:    "Duration of upstream refresh attempts",
				Buckets: prometheus.DefBuckets,
			},
		),

		LastRefreshSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rates_last_refresh_timestamp_seconds",
				Help: "Unix time of the last successful refresh",
			},
		),

		Currencies: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rates_currencies",
				Help: "Number of currencies in the current rate table",
			},
		),

		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversion_requests_total",
				Help: "Total number of currency conversion requests by outcome",
			},
			[]string{"outcome"},
		),
	}
}
