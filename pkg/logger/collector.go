package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher ships aggregated log batches; in this app it is the work queue.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig tunes error-log aggregation.
type CollectionConfig struct {
	TimeInterval   time.Duration
	CountThreshold int
	Topic          string
	Publisher      Publisher
}

// LogRecord is one deduplicated log line with its occurrence window. Lines
// are collapsed by level, message, and call site; the fields of the first
// occurrence are kept as a sample.
type LogRecord struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector batches repeated error logs and flushes them to the
// publisher on an interval, when the batch fills, and once on Close.
type LogCollector struct {
	cfg *CollectionConfig

	mu      sync.Mutex
	records map[string]*LogRecord

	done chan struct{}
	wg   sync.WaitGroup
}

func NewLogCollector(cfg *CollectionConfig) *LogCollector {
	c := &LogCollector{
		cfg:     cfg,
		records: make(map[string]*LogRecord),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Record folds a log line into the current batch.
func (c *LogCollector) Record(level, message string, fields map[string]interface{}, caller string) {
	key := level + "|" + message + "|" + caller
	now := time.Now()

	c.mu.Lock()
	if rec, ok := c.records[key]; ok {
		rec.Count++
		rec.LastSeen = now
	} else {
		c.records[key] = &LogRecord{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	var batch []LogRecord
	if len(c.records) >= c.cfg.CountThreshold {
		batch = c.drain()
	}
	c.mu.Unlock()

	if batch != nil {
		// off the caller's path; a log call must not wait on the queue
		go c.publish(batch)
	}
}

// drain empties the batch. Caller holds the lock.
func (c *LogCollector) drain() []LogRecord {
	if len(c.records) == 0 {
		return nil
	}
	batch := make([]LogRecord, 0, len(c.records))
	for _, rec := range c.records {
		batch = append(batch, *rec)
	}
	c.records = make(map[string]*LogRecord)
	return batch
}

func (c *LogCollector) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.done:
			c.flush()
			return
		}
	}
}

func (c *LogCollector) flush() {
	c.mu.Lock()
	batch := c.drain()
	c.mu.Unlock()
	if batch != nil {
		c.publish(batch)
	}
}

func (c *LogCollector) publish(batch []LogRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
		// cannot log through the logger from inside its own collector
		fmt.Fprintf(os.Stderr, "log collector publish: %v\n", err)
	}
}

// Close flushes the remaining batch and stops the collector.
func (c *LogCollector) Close() {
	close(c.done)
	c.wg.Wait()
}
