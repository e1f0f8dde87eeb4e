package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opinionpointer",
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Latency of sentiment provider endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opinionpointer",
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Errors by sentiment provider endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ProviderLatency, ProviderErrors)
	})
}
