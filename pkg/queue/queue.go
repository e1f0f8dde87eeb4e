package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService is the publishing side of the work queue. The collector
// scheduler and the log collector publish through it.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Job consumes one message type from the queue. Implementations are
// registered before Start and looked up by Type on dispatch.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}

// QueueConfig tunes the worker pool and retry behavior.
type QueueConfig struct {
	Workers    int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is the wire format of a queued task.
type Message struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Attempts  int         `json:"attempts"`
	Timestamp time.Time   `json:"timestamp"`
}

// ParsePayload decodes a message payload into T. Payloads arrive as typed
// values when published in-process and as decoded JSON after a redis round
// trip, so all three shapes are accepted.
func ParsePayload[T any](payload interface{}) (*T, error) {
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case map[string]interface{}:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload map: %w", err)
		}
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &out, nil
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(p, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &out, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}
