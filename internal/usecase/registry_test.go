package usecase

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryDeclareDeduplicates(t *testing.T) {
	r := NewRegistry()
	r.Declare("a", nil)
	r.Declare("b", nil)
	r.Declare("a", nil)

	got := r.Services()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected services: %v", got)
	}
}

func TestRegistryInitializeRunsEveryCall(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Declare("svc", func(context.Context) error {
		calls++
		return nil
	})

	for i := 0; i < 3; i++ {
		if err := r.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize %d: %v", i, err)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 init calls, got %d", calls)
	}

	stats := r.Stats()
	if !stats.Initialized || stats.Services != 1 || stats.LastError != "" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.InitializedAt.IsZero() {
		t.Fatalf("expected initialization timestamp")
	}
}

func TestRegistryInitializeAbortsOnFirstFailure(t *testing.T) {
	r := NewRegistry()
	ran := []string{}
	r.Declare("first", func(context.Context) error {
		ran = append(ran, "first")
		return nil
	})
	r.Declare("broken", func(context.Context) error {
		return errors.New("dial failed")
	})
	r.Declare("last", func(context.Context) error {
		ran = append(ran, "last")
		return nil
	})

	err := r.Initialize(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(ran) != 1 || ran[0] != "first" {
		t.Fatalf("initializers after the failure must not run, ran: %v", ran)
	}

	stats := r.Stats()
	if stats.Initialized {
		t.Fatalf("registry must not report initialized")
	}
	if stats.LastError == "" {
		t.Fatalf("expected last error recorded")
	}
}

func TestRegistryRecoversAfterFailure(t *testing.T) {
	r := NewRegistry()
	fail := true
	r.Declare("flaky", func(context.Context) error {
		if fail {
			return errors.New("not ready")
		}
		return nil
	})

	if err := r.Initialize(context.Background()); err == nil {
		t.Fatalf("expected first initialize to fail")
	}
	fail = false
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}

	stats := r.Stats()
	if !stats.Initialized || stats.LastError != "" {
		t.Fatalf("unexpected stats after recovery: %+v", stats)
	}
}
