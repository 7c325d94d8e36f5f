// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeMatch   = "match"
	OutcomeNoMatch = "nomatch"
	OutcomeInvalid = "invalid"
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
)

var (
	ResolveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "county_resolve_total",
		Help: "Point resolutions by outcome",
	}, []string{"outcome"})
	MalformedCandidatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "county_malformed_candidates_total",
		Help: "Candidates skipped because their boundary could not be tested",
	})
	ResolveCandidates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "county_resolve_candidates",
		Help:    "Grid candidates examined per resolution",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "county_cache_hits_total",
		Help: "Result cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "county_cache_misses_total",
		Help: "Result cache misses",
	})
	RouteCountiesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "county_route_counties_total",
		Help: "Counties returned by route resolution",
	})
	ImagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "county_images_total",
		Help: "Image conversions by outcome",
	}, []string{"outcome"})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "county_http_requests_total",
		Help: "HTTP requests by method and status",
	}, []string{"method", "status"})
	HTTPRequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "county_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
)

func init() {
	prometheus.MustRegister(ResolveTotal)
	prometheus.MustRegister(MalformedCandidatesTotal)
	prometheus.MustRegister(ResolveCandidates)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RouteCountiesTotal)
	prometheus.MustRegister(ImagesTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDurationMs)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
