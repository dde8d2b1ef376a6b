package search

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSuccess       = "success"
	outcomeProviderError = "provider_error"
	outcomeTransport     = "transport_error"
)

type metrics struct {
	requests *prometheus.CounterVec
	results  prometheus.Histogram
	latency  *prometheus.HistogramVec
}

func newMetrics() *metrics {
	return &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_agent_tavily_requests_total",
				Help: "Tavily search requests by outcome",
			},
			[]string{"outcome"},
		),
		results: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_agent_tavily_results_returned",
				Help:    "Number of Tavily results returned per successful search",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
			},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_agent_tavily_latency_seconds",
				Help:    "Tavily search latency",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"outcome"},
		),
	}
}
