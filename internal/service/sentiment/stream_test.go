package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStreamReconnectDefaultsBackoff(t *testing.T) {
	// Zero configured delay must not mean zero backoff.
	s := NewStream("key", "ws://127.0.0.1:1", 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Reconnect(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the backoff wait to outlive the context, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("reconnect returned after %v, did not back off", elapsed)
	}
}

func TestStreamReconnectHonorsConfiguredDelay(t *testing.T) {
	s := NewStream("key", "ws://127.0.0.1:1", 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := s.Reconnect(ctx)
	if err == nil {
		t.Fatalf("expected dial failure against a closed port")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("short delay should dial before the deadline, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("reconnect dialed after %v, before the configured delay", elapsed)
	}
}
