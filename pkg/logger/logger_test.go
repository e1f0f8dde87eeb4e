package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoggerWritesStructuredLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	l.Info("snapshot stored",
		String("sentiment", "greed"),
		Int("score", 72),
		Duration("elapsed", 1500*time.Millisecond),
	)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var line map[string]interface{}
	if err := json.Unmarshal(data, &line); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if line["message"] != "snapshot stored" {
		t.Fatalf("unexpected message: %v", line["message"])
	}
	if line["sentiment"] != "greed" {
		t.Fatalf("unexpected sentiment: %v", line["sentiment"])
	}
	if line["score"] != float64(72) {
		t.Fatalf("unexpected score: %v", line["score"])
	}
	if line["elapsed"] != float64(1500) {
		t.Fatalf("duration should be whole milliseconds: %v", line["elapsed"])
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
