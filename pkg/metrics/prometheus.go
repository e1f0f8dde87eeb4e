package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	probes         *prometheus.CounterVec
	probeLatency   *prometheus.HistogramVec
	sentimentFetch *prometheus.CounterVec
	sentimentScore prometheus.Gauge
	collectionsRun *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		probes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opinionpointer_health_probes_total",
				Help: "Health probe results by service and status",
			},
			[]string{"service", "status"},
		),
		probeLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opinionpointer_health_probe_seconds",
				Help:    "Health probe duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		sentimentFetch: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opinionpointer_sentiment_fetches_total",
				Help: "Sentiment fetches by source (cache, provider, stream) and result",
			},
			[]string{"source", "result"},
		),
		sentimentScore: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "opinionpointer_sentiment_score",
				Help: "Last observed market sentiment score (0-100)",
			},
		),
		collectionsRun: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opinionpointer_collections_total",
				Help: "Channel collection runs by channel and result",
			},
			[]string{"channel", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opinionpointer_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opinionpointer_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordProbe records one health probe outcome and its latency.
func (r *Recorder) RecordProbe(service, status string, seconds float64) {
	r.probes.WithLabelValues(service, status).Inc()
	r.probeLatency.WithLabelValues(service).Observe(seconds)
}

// RecordSentimentFetch records a sentiment read by source and result.
func (r *Recorder) RecordSentimentFetch(source, result string) {
	r.sentimentFetch.WithLabelValues(source, result).Inc()
}

// RecordSentimentScore records the last observed sentiment score.
func (r *Recorder) RecordSentimentScore(score float64) {
	r.sentimentScore.Set(score)
}

// RecordCollection records a channel collection run.
func (r *Recorder) RecordCollection(channel, result string) {
	r.collectionsRun.WithLabelValues(channel, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
