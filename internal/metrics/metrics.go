package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	GenerationRequestsTotal *prometheus.CounterVec
	GenerationStartDuration *prometheus.HistogramVec

	EmbeddingsTotal *prometheus.CounterVec

	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration *prometheus.HistogramVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	IntentsTotal       *prometheus.CounterVec
	DirectMatchesTotal prometheus.Counter

	RateLimitHitsTotal *prometheus.CounterVec
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbe_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orbe_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"route"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "orbe_requests_in_flight",
				Help: "Number of requests currently being processed",
			},
		),

		GenerationRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbe_generation_requests_total",
				Help: "Total number of generation backend requests",
			},
			[]string{"status"},
		),
		GenerationStartDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orbe_generation_start_duration_seconds",
				Help:    "Time until the generation backend starts streaming",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),

		EmbeddingsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbe_embeddings_total",
				Help: "Total number of embedding calls",
			},
			[]string{"status"},
		),

		SearchRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbe_search_requests_total",
				Help: "Total number of source API requests",
			},
			[]string{"source", "result"},
		),
		SearchRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orbe_search_request_duration_seconds",
				Help:    "Source API request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		),

		CacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbe_cache_hits_total",
				Help: "Total number of result cache hits",
			},
			[]string{"source"},
		),
		CacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbe_cache_misses_total",
				Help: "Total number of result cache misses",
			},
			[]string{"source"},
		),

		IntentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbe_intents_total",
				Help: "Classified intents",
			},
			[]string{"intent"},
		),
		DirectMatchesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "orbe_direct_matches_total",
				Help: "Requests answered with a direct file link",
			},
		),

		RateLimitHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbe_rate_limit_hits_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"frontend"},
		),
	}
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(route, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RecordGeneration(status string, duration time.Duration) {
	m.GenerationRequestsTotal.WithLabelValues(status).Inc()
	m.GenerationStartDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) RecordEmbedding(status string) {
	m.EmbeddingsTotal.WithLabelValues(status).Inc()
}

// result is one of items, message, failure.
func (m *Metrics) RecordSearch(source, result string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(source, result).Inc()
	m.SearchRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit(source string) {
	m.CacheHitsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordCacheMiss(source string) {
	m.CacheMissesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordIntent(intent string) {
	m.IntentsTotal.WithLabelValues(intent).Inc()
}

func (m *Metrics) RecordDirectMatch() {
	m.DirectMatchesTotal.Inc()
}

func (m *Metrics) RecordRateLimitHit(frontend string) {
	m.RateLimitHitsTotal.WithLabelValues(frontend).Inc()
}
