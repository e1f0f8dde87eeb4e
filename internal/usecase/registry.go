package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InitFunc initializes one subsystem. Implementations must be idempotent.
type InitFunc func(ctx context.Context) error

// Registry tracks the declared subsystems and their bootstrap state. It backs
// the admin bootstrap endpoint and the registry health probe.
type Registry struct {
	mu            sync.Mutex
	names         []string
	inits         map[string]InitFunc
	initialized   bool
	initializedAt time.Time
	lastError     string
}

// RegistryStats is a point-in-time view of the bootstrap state.
type RegistryStats struct {
	Initialized   bool
	InitializedAt time.Time
	Services      int
	LastError     string
}

func NewRegistry() *Registry {
	return &Registry{inits: make(map[string]InitFunc)}
}

// Declare registers a named subsystem. A nil init is allowed for subsystems
// that need no bootstrap work but should still be reported.
func (r *Registry) Declare(name string, init InitFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.inits[name]; exists {
		return
	}
	r.names = append(r.names, name)
	r.inits[name] = init
}

// Initialize runs every declared initializer, in declaration order. It runs
// on every call; idempotency is the initializers' responsibility. The first
// failure aborts and is returned.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.names {
		init := r.inits[name]
		if init == nil {
			continue
		}
		if err := init(ctx); err != nil {
			r.lastError = err.Error()
			return fmt.Errorf("initialize %s: %w", name, err)
		}
	}
	r.initialized = true
	r.initializedAt = time.Now().UTC()
	r.lastError = ""
	return nil
}

// Services returns the declared subsystem names in declaration order.
func (r *Registry) Services() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Stats reports the current bootstrap state.
func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegistryStats{
		Initialized:   r.initialized,
		InitializedAt: r.initializedAt,
		Services:      len(r.names),
		LastError:     r.lastError,
	}
}
