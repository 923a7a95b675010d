package rerankd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the reranking service.
//
// Metrics:
//   - rerankd_requests_total{code} - rerank requests by HTTP status
//   - rerankd_curations_total{source} - responses by grouping source
//   - rerankd_request_duration_seconds - rerank handler latency
//   - rerankd_cache_entries - entries in the throttle cache
type Metrics struct {
	Requests     *prometheus.CounterVec
	Curations    *prometheus.CounterVec
	Duration     prometheus.Histogram
	CacheEntries prometheus.Gauge
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rerankd_requests_total",
				Help: "Total number of rerank requests by HTTP status code",
			},
			[]string{"code"},
		),
		Curations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rerankd_curations_total",
				Help: "Total number of rerank responses by grouping source",
			},
			[]string{"source"}, // model, fallback, throttle, store, shared
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rerankd_request_duration_seconds",
				Help:    "Duration of rerank requests in seconds",
				Buckets: []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60},
			},
		),
		CacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rerankd_cache_entries",
				Help: "Current number of entries in the throttle cache",
			},
		),
	}
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
