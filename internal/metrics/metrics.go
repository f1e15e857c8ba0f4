// Package metrics exposes Prometheus instruments for the refresh pipeline and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

type Metrics struct {
	registry *prometheus.Registry

	EnrichPasses     prometheus.Counter
	MalformedRecords prometheus.Counter
	BirthdaysToday   prometheus.Gauge
	StoreOps         *prometheus.CounterVec
	RefreshDuration  prometheus.Histogram
	EndpointLatency  *prometheus.HistogramVec
}

// New builds the instruments on a private registry, so several instances can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EnrichPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.MetricsNamespace,
			Name:      "enrich_passes_total",
			Help:      "Total number of enrich-and-sort passes",
		}),
		MalformedRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.MetricsNamespace,
			Name:      "malformed_records_total",
			Help:      "Records skipped because their date of birth could not be parsed",
		}),
		BirthdaysToday: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.MetricsNamespace,
			Name:      "birthdays_today",
			Help:      "Number of birthdays falling on the last computed day",
		}),
		StoreOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.MetricsNamespace,
			Name:      "store_operations_total",
			Help:      "Store operations by kind and outcome",
		}, []string{config.MetricLabelOp, config.MetricLabelRes}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.MetricsNamespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a full import, enrich and publish cycle",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.MetricsNamespace,
			Name:      "endpoint_latency_seconds",
			Help:      "Latency of HTTP endpoints in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{config.MetricLabelRoute}),
	}
}

// ObserveBatch records the outcome of one enrichment pass.
func (m *Metrics) ObserveBatch(b engine.Batch) {
	m.EnrichPasses.Inc()
	m.MalformedRecords.Add(float64(len(b.Failures)))
	m.BirthdaysToday.Set(float64(b.TodayCount()))
}

func (m *Metrics) ObserveStoreOp(op string, err error) {
	res := config.MetricResultOK
	if err != nil {
		res = config.MetricResultErr
	}
	m.StoreOps.WithLabelValues(op, res).Inc()
}

func (m *Metrics) ObserveRefresh(start time.Time) {
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveEndpointLatency(route string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(route).Observe(durationSeconds)
}

// Registry exposes the underlying registry for custom collectors and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
