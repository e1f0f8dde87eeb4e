package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Producer publishes keyed JSON events. The hash balancer keeps all events
// for one key (channel) on one partition, preserving per-channel order.
type Producer struct {
	writer *kafka.Writer
	comp   string
}

// NewProducer creates a Kafka producer.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}

	registerProducerMetrics()
	return &Producer{writer: writer, comp: cfg.Compression}, nil
}

// Publish sends one keyed message to the topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: data,
		Time:  start,
	})
	observePublish(topic, p.comp, int64(len(data)), time.Since(start), err)
	return err
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode event: %w", err)
		}
		return data, nil
	}
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

var (
	producerMetricsOnce sync.Once
	publishTotal        *prometheus.CounterVec
	publishErrors       *prometheus.CounterVec
	publishBytes        *prometheus.CounterVec
	publishSeconds      *prometheus.HistogramVec
)

func registerProducerMetrics() {
	producerMetricsOnce.Do(func() {
		publishTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opinionpointer_kafka_producer_messages_total",
				Help: "Total messages published to Kafka",
			},
			[]string{"topic", "compression", "result"},
		)
		publishErrors = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opinionpointer_kafka_producer_errors_total",
				Help: "Total producer errors",
			},
			[]string{"topic"},
		)
		publishBytes = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opinionpointer_kafka_producer_bytes_total",
				Help: "Total payload bytes published",
			},
			[]string{"topic", "compression"},
		)
		publishSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opinionpointer_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

func observePublish(topic, comp string, bytes int64, dur time.Duration, err error) {
	if publishTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		publishErrors.WithLabelValues(topic).Inc()
	}
	publishTotal.WithLabelValues(topic, comp, result).Inc()
	publishBytes.WithLabelValues(topic, comp).Add(float64(bytes))
	publishSeconds.WithLabelValues(topic).Observe(dur.Seconds())
}
