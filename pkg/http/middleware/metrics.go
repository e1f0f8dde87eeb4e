package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	metricsOnce      sync.Once
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	responseBytes    *prometheus.HistogramVec
)

func registerRequestMetrics() {
	metricsOnce.Do(func() {
		requestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opinionpointer_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		)
		requestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opinionpointer_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "status"},
		)
		requestsInFlight = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "opinionpointer_http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests",
			},
			[]string{"route", "method"},
		)
		responseBytes = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opinionpointer_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
			},
			[]string{"route", "method", "status"},
		)
	})
}

// Metrics records per-request metrics keyed by the route template, which
// keeps label cardinality bounded regardless of path parameters. Slow
// requests past threshold and 5xx responses are also logged.
func Metrics(slowThreshold time.Duration) echo.MiddlewareFunc {
	registerRequestMetrics()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method

			requestsInFlight.WithLabelValues(route, method).Inc()
			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)
			requestsInFlight.WithLabelValues(route, method).Dec()

			status := c.Response().Status
			code := strconv.Itoa(status)
			requestsTotal.WithLabelValues(route, method, code).Inc()
			requestDuration.WithLabelValues(route, method, code).Observe(elapsed.Seconds())
			responseBytes.WithLabelValues(route, method, code).Observe(float64(c.Response().Size))

			switch {
			case status >= 500:
				log.Error().
					Str("route", route).
					Str("method", method).
					Int("status", status).
					Dur("duration", elapsed).
					Msg("http request failed")
			case slowThreshold > 0 && elapsed >= slowThreshold:
				log.Warn().
					Str("route", route).
					Str("method", method).
					Int("status", status).
					Dur("duration", elapsed).
					Msg("http request slow")
			}
			return err
		}
	}
}
