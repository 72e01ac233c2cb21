package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aqw_provider_requests_total",
		Help: "Total outbound provider requests",
	}, []string{"provider", "operation"})
	ProviderFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aqw_provider_fail_total",
		Help: "Total outbound provider failures",
	}, []string{"provider", "operation"})
	ProviderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aqw_provider_duration_ms",
		Help:    "Provider call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"provider", "operation"})
	WeatherReadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aqw_weather_reads_total",
		Help: "Weather variable reads by outcome (cached, fetched, failed)",
	}, []string{"outcome"})
	NodesCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aqw_nodes_created_total",
		Help: "Address space nodes created by class",
	}, []string{"class"})
	EngineTasksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aqw_engine_tasks_total",
		Help: "Tasks executed on the address space loop",
	})
)

func init() {
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderFailTotal)
	prometheus.MustRegister(ProviderDurationMs)
	prometheus.MustRegister(WeatherReadsTotal)
	prometheus.MustRegister(NodesCreatedTotal)
	prometheus.MustRegister(EngineTasksTotal)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
