package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"opinionpointer/internal/domain/models"
	pkgcache "opinionpointer/pkg/cache"
	applogger "opinionpointer/pkg/logger"
)

type fakeProvider struct {
	fetches   int
	healths   int
	failFetch bool
	score     float64
}

func (p *fakeProvider) Fetch(context.Context) (*models.MarketSentimentData, error) {
	p.fetches++
	if p.failFetch {
		return nil, errors.New("provider down")
	}
	return &models.MarketSentimentData{
		Sentiment: models.LevelForScore(p.score),
		Score:     p.score,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (p *fakeProvider) Health(context.Context) (*models.ProviderHealth, error) {
	p.healths++
	return &models.ProviderHealth{Healthy: true, CheckedAt: time.Now().UTC()}, nil
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newSentimentService(t *testing.T, p *fakeProvider, staleAfter time.Duration) (*SentimentService, *fakeMetrics, *pkgcache.MemoryCache) {
	t.Helper()
	m := &fakeMetrics{}
	cache := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = cache.Close() })
	return NewSentimentService(p, cache, nil, m, testLogger(t), staleAfter, 30*time.Minute, 5*time.Minute), m, cache
}

func TestSentimentNoFetchOnConstruction(t *testing.T) {
	p := &fakeProvider{score: 50}
	newSentimentService(t, p, 15*time.Minute)

	if p.fetches != 0 {
		t.Fatalf("constructor must not fetch, got %d fetches", p.fetches)
	}
}

func TestSentimentGetServesCacheWhileFresh(t *testing.T) {
	p := &fakeProvider{score: 72}
	s, _, _ := newSentimentService(t, p, 15*time.Minute)
	ctx := context.Background()

	first, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if first.IsCached {
		t.Fatalf("first read must come from the provider")
	}
	if first.Sentiment != models.SentimentGreed {
		t.Fatalf("expected greed for score 72, got %s", first.Sentiment)
	}

	second, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !second.IsCached {
		t.Fatalf("second read must come from cache")
	}
	if second.LastFetch == nil || second.ExpiresAt == nil {
		t.Fatalf("cached read must carry cache metadata")
	}
	if p.fetches != 1 {
		t.Fatalf("expected 1 provider fetch, got %d", p.fetches)
	}
}

func TestSentimentGetFreshBypassesCache(t *testing.T) {
	p := &fakeProvider{score: 30}
	s, _, _ := newSentimentService(t, p, 15*time.Minute)
	ctx := context.Background()

	if _, err := s.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	fresh, err := s.GetFresh(ctx)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if fresh.IsCached {
		t.Fatalf("fresh read must not be marked cached")
	}
	if p.fetches != 2 {
		t.Fatalf("expected 2 provider fetches, got %d", p.fetches)
	}
}

func TestSentimentStaleServeOnFetchFailure(t *testing.T) {
	p := &fakeProvider{score: 10}
	s, m, _ := newSentimentService(t, p, time.Nanosecond)
	ctx := context.Background()

	if _, err := s.Get(ctx); err != nil {
		t.Fatalf("seed get: %v", err)
	}
	p.failFetch = true
	time.Sleep(time.Millisecond)

	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("stale serve should not error: %v", err)
	}
	if !got.IsCached {
		t.Fatalf("stale serve must be marked cached")
	}
	if got.Score != 10 {
		t.Fatalf("expected stale score 10, got %v", got.Score)
	}
	if m.fetches["cache/stale"] != 1 {
		t.Fatalf("expected stale-serve metric, got %v", m.fetches)
	}
}

func TestSentimentFetchRetriesOnce(t *testing.T) {
	p := &fakeProvider{failFetch: true}
	s, _, _ := newSentimentService(t, p, 15*time.Minute)

	if _, err := s.Get(context.Background()); err == nil {
		t.Fatalf("expected error with no cache and failing provider")
	}
	if p.fetches != 2 {
		t.Fatalf("expected one retry (2 fetches), got %d", p.fetches)
	}
}

func TestSentimentFetchWaitsForLockHolder(t *testing.T) {
	p := &fakeProvider{score: 64}
	s, _, cache := newSentimentService(t, p, 15*time.Minute)
	ctx := context.Background()

	if ok, err := cache.TryLock(ctx, sentimentFetchKey, time.Minute); err != nil || !ok {
		t.Fatalf("pre-lock: ok=%v err=%v", ok, err)
	}
	entry := cachedSnapshot{
		Data: models.MarketSentimentData{
			Sentiment: models.SentimentGreed,
			Score:     64,
			Timestamp: time.Now().UTC(),
		},
		FetchedAt: time.Now().UTC(),
	}
	if err := cache.Set(ctx, sentimentCacheKey, entry, time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	got, err := s.GetFresh(ctx)
	if err != nil {
		t.Fatalf("get fresh under contention: %v", err)
	}
	if p.fetches != 0 {
		t.Fatalf("loser of the fetch lock must not fetch, got %d", p.fetches)
	}
	if !got.IsCached || got.Score != 64 {
		t.Fatalf("expected the lock holder's snapshot, got %+v", got)
	}
}

func TestSentimentHistoryUnconfigured(t *testing.T) {
	p := &fakeProvider{score: 50}
	s, _, _ := newSentimentService(t, p, 15*time.Minute)

	if _, err := s.History(context.Background(), 10); !errors.Is(err, ErrHistoryUnavailable) {
		t.Fatalf("expected ErrHistoryUnavailable, got %v", err)
	}
}

type failingStream struct {
	connects   int
	reconnects int
}

func (s *failingStream) Connect(context.Context) error { s.connects++; return errors.New("refused") }
func (s *failingStream) Reconnect(context.Context) error {
	s.reconnects++
	return errors.New("refused")
}
func (s *failingStream) Read(context.Context) (<-chan *models.MarketSentimentData, <-chan error) {
	return nil, nil
}
func (s *failingStream) Close() error      { return nil }
func (s *failingStream) IsConnected() bool { return false }

func TestRunStreamGivesUpAfterMaxRestarts(t *testing.T) {
	p := &fakeProvider{score: 50}
	s, _, _ := newSentimentService(t, p, 15*time.Minute)

	stream := &failingStream{}
	done := make(chan struct{})
	go func() {
		s.RunStream(context.Background(), stream, 3)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunStream must stop after the restart limit")
	}
	attempts := stream.connects + stream.reconnects
	if attempts != 3 {
		t.Fatalf("expected 3 connect attempts, got %d", attempts)
	}
}
