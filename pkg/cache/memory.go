package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memEntry struct {
	value    interface{}
	expireAt time.Time
	accessed time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache is the in-process cache layer. Entries past their expiration
// are dropped lazily on read and by a background janitor; when the cache is
// full the least recently read entry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	maxSize int
	stop    chan struct{}
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]memEntry),
		maxSize: cfg.MaxSize,
		stop:    make(chan struct{}),
	}
	go mc.janitor(cfg.CleanupInterval)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = 7 * 24 * time.Hour
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.entries) >= mc.maxSize {
		mc.evictOldest()
	}
	now := time.Now()
	mc.entries[key] = memEntry{value: value, expireAt: now.Add(expiration), accessed: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok || e.expired(time.Now()) {
		delete(mc.entries, key)
		return ErrCacheMiss
	}
	e.accessed = time.Now()
	mc.entries[key] = e

	switch d := dest.(type) {
	case *string:
		if s, ok := e.value.(string); ok {
			*d = s
			return nil
		}
	case *interface{}:
		*d = e.value
		return nil
	}

	// Typed destinations go through a JSON round trip, matching the redis
	// layer's semantics.
	raw, err := json.Marshal(e.value)
	if err != nil {
		return fmt.Errorf("memory cache encode: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("memory cache decode: %w", err)
	}
	return nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	if e, held := mc.entries[key]; held && !e.expired(now) {
		return false, nil
	}
	mc.entries[key] = memEntry{value: "locked", expireAt: now.Add(ttl), accessed: now}
	return true, nil
}

func (mc *MemoryCache) Unlock(_ context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	delete(mc.entries, key)
	return nil
}

// evictOldest drops the least recently read entry. Caller holds the lock.
func (mc *MemoryCache) evictOldest() {
	var victim string
	var oldest time.Time
	for key, e := range mc.entries {
		if victim == "" || e.accessed.Before(oldest) {
			victim = key
			oldest = e.accessed
		}
	}
	if victim != "" {
		delete(mc.entries, victim)
	}
}

func (mc *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-mc.stop:
			return
		case <-ticker.C:
			now := time.Now()
			mc.mu.Lock()
			for key, e := range mc.entries {
				if e.expired(now) {
					delete(mc.entries, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the janitor.
func (mc *MemoryCache) Close() error {
	select {
	case <-mc.stop:
	default:
		close(mc.stop)
	}
	return nil
}
