package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder handles metrics recording for the pricing service
type Recorder struct {
	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Valuation metrics
	valuationCounter   *prometheus.CounterVec
	valuationLatency   *prometheus.HistogramVec
	simulatedPaths     prometheus.Counter
	proposalsHistogram prometheus.Histogram

	// Publisher metrics
	publishCounter *prometheus.CounterVec
}

// NewRecorder creates a recorder whose metrics are registered with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		// API metrics
		apiRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricer_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricer_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"method", "path"},
		),

		// Valuation metrics
		valuationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricer_valuations_total",
				Help: "The total number of product valuations by outcome",
			},
			[]string{"product", "outcome"},
		),
		valuationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricer_valuation_duration_seconds",
				Help:    "Product valuation latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // From 100us to ~3s
			},
			[]string{"product"},
		),
		simulatedPaths: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pricer_simulated_paths_total",
				Help: "The total number of Monte Carlo paths simulated",
			},
		),
		proposalsHistogram: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricer_builder_proposals",
				Help:    "Number of products proposed per build",
				Buckets: prometheus.LinearBuckets(1, 1, 4),
			},
		),

		// Publisher metrics
		publishCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricer_valuation_events_total",
				Help: "The total number of valuation events published by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordAPIRequest records an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordValuation records one valuation attempt. outcome is "ok" or the error type.
func (r *Recorder) RecordValuation(product, outcome string, latency time.Duration) {
	r.valuationCounter.WithLabelValues(product, outcome).Inc()
	r.valuationLatency.WithLabelValues(product).Observe(latency.Seconds())
}

// RecordSimulatedPaths adds to the Monte Carlo path counter
func (r *Recorder) RecordSimulatedPaths(paths int) {
	r.simulatedPaths.Add(float64(paths))
}

// RecordProposals records the size of a builder recommendation
func (r *Recorder) RecordProposals(count int) {
	r.proposalsHistogram.Observe(float64(count))
}

// RecordPublish records a valuation event publish attempt
func (r *Recorder) RecordPublish(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.publishCounter.WithLabelValues(outcome).Inc()
}
