package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bodega/internal"
)

// HTTPBuckets are latency buckets in seconds. Catalog queries scan every item
// so the upper buckets matter more than usual.
var HTTPBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	LoadsTotal   *prometheus.CounterVec
	LoadDuration prometheus.Histogram
	CatalogItems *prometheus.GaugeVec
	ItemsFailed  prometheus.Counter

	UploadsTotal *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(namespace, reg)
}

func NewWithRegistry(namespace string, reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route template, method and status code",
			},
			[]string{"route", "method", "status_code"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route template",
				Buckets:   HTTPBuckets,
			},
			[]string{"route"},
		),

		LoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_loads_total",
				Help:      "Catalog loads by result",
			},
			[]string{"result"},
		),
		LoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "catalog_load_duration_seconds",
				Help:      "Wall time of a full catalog load",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		CatalogItems: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_items",
				Help:      "Items in the current catalog by subset",
			},
			[]string{"subset"},
		),
		ItemsFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_items_failed_total",
				Help:      "Raw item records dropped during normalization",
			},
		),

		UploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_uploads_total",
				Help:      "Upload relay requests by payload kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordRequest(route, method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RecordLoad(run internal.LoadRun, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.LoadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.LoadsTotal.WithLabelValues("ok").Inc()
	m.LoadDuration.Observe(run.TotalMs / 1000)
	m.CatalogItems.WithLabelValues("live").Set(float64(run.Items))
	m.CatalogItems.WithLabelValues("added").Set(float64(run.Added))
	m.CatalogItems.WithLabelValues("removed").Set(float64(run.Removed))
	m.ItemsFailed.Add(float64(run.Failed))
}

func (m *Metrics) RecordUpload(kind, result string) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(kind, result).Inc()
}
