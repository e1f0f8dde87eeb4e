package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opinionpointer/internal/domain/models"
	domrepo "opinionpointer/internal/domain/repository"
	domsvc "opinionpointer/internal/domain/service"
	pkgcache "opinionpointer/pkg/cache"
	applogger "opinionpointer/pkg/logger"
)

var (
	sentimentCacheKey = pkgcache.GenerateKey("market", "sentiment")
	sentimentFetchKey = pkgcache.GenerateKey("market", "sentiment:fetch")
)

// fetchLockTTL bounds how long a crashed fetch can hold the lock.
const fetchLockTTL = 30 * time.Second

// cachedSnapshot is the cache wire format for a sentiment snapshot.
type cachedSnapshot struct {
	Data      models.MarketSentimentData `json:"data"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// SentimentService serves market sentiment over the external provider with a
// staleness-bounded cache. Nothing here calls GetFresh; only explicit caller
// invocations bypass the cache.
type SentimentService struct {
	provider  domsvc.SentimentProvider
	cache     pkgcache.Service
	snapshots domrepo.SnapshotStore
	metrics   domrepo.Metrics
	logger    *applogger.Logger

	staleAfter   time.Duration
	refetchEvery time.Duration
	healthEvery  time.Duration

	lastHealth *models.ProviderHealth
}

func NewSentimentService(
	provider domsvc.SentimentProvider,
	cache pkgcache.Service,
	snapshots domrepo.SnapshotStore,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	staleAfter, refetchEvery, healthEvery time.Duration,
) *SentimentService {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	if refetchEvery <= 0 {
		refetchEvery = 30 * time.Minute
	}
	if healthEvery <= 0 {
		healthEvery = 5 * time.Minute
	}
	return &SentimentService{
		provider:     provider,
		cache:        cache,
		snapshots:    snapshots,
		metrics:      metrics,
		logger:       logger,
		staleAfter:   staleAfter,
		refetchEvery: refetchEvery,
		healthEvery:  healthEvery,
	}
}

// Get returns the current sentiment, served from cache while the cached copy
// is younger than the stale threshold. On a stale or missing cache entry it
// fetches from the provider with one retry; if that fails but a stale copy
// exists, the stale copy is served.
func (s *SentimentService) Get(ctx context.Context) (*models.MarketSentimentData, error) {
	cached, ok := s.cachedCopy(ctx)
	if ok && time.Since(cached.FetchedAt) <= s.staleAfter {
		s.metrics.RecordSentimentFetch("cache", "hit")
		return s.withCacheMeta(cached), nil
	}

	snap, err := s.fetchAndStore(ctx)
	if err != nil {
		if ok {
			// stale copy beats no copy
			s.metrics.RecordSentimentFetch("cache", "stale")
			s.logger.Warn("serving stale sentiment after fetch failure", applogger.Error(err))
			return s.withCacheMeta(cached), nil
		}
		return nil, err
	}
	return snap, nil
}

// GetFresh always fetches from the provider and updates the cache. It is
// never called by the background pollers; the admin refresh endpoint is its
// only caller.
func (s *SentimentService) GetFresh(ctx context.Context) (*models.MarketSentimentData, error) {
	return s.fetchAndStore(ctx)
}

// Health probes the external provider.
func (s *SentimentService) Health(ctx context.Context) (*models.ProviderHealth, error) {
	h, err := s.provider.Health(ctx)
	if err != nil {
		s.metrics.RecordError("provider_health")
		return nil, fmt.Errorf("provider health: %w", err)
	}
	s.lastHealth = h
	return h, nil
}

// ErrHistoryUnavailable is returned when no snapshot store is configured.
var ErrHistoryUnavailable = errors.New("snapshot history not configured")

// History returns the most recent stored snapshots.
func (s *SentimentService) History(ctx context.Context, n int) ([]models.MarketSentimentData, error) {
	if s.snapshots == nil {
		return nil, ErrHistoryUnavailable
	}
	return s.snapshots.Latest(ctx, n)
}

// StartPollers launches the cached-read refresh loop and the provider health
// loop. Both wait a full interval before their first tick.
func (s *SentimentService) StartPollers(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.refetchEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Get(ctx); err != nil {
					s.logger.Warn("sentiment refresh failed", applogger.Error(err))
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(s.healthEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Health(ctx); err != nil {
					s.logger.Warn("provider health poll failed", applogger.Error(err))
				}
			}
		}
	}()
}

// RunStream consumes the provider's live feed, pushing updates straight into
// the cache. Reconnects with the configured backoff until ctx is cancelled or
// maxRestarts consecutive failures.
func (s *SentimentService) RunStream(ctx context.Context, stream domsvc.SentimentStream, maxRestarts int) {
	if stream == nil {
		return
	}
	failures := 0
	err := stream.Connect(ctx)
	for {
		if ctx.Err() != nil {
			_ = stream.Close()
			return
		}
		if err != nil {
			failures++
			s.logger.Warn("sentiment stream connect failed",
				applogger.Int("failures", failures), applogger.Error(err))
			if maxRestarts > 0 && failures >= maxRestarts {
				s.logger.Error("sentiment stream giving up", applogger.Int("failures", failures))
				return
			}
			err = stream.Reconnect(ctx)
			continue
		}
		failures = 0

		updates, errs := stream.Read(ctx)
	consume:
		for {
			select {
			case <-ctx.Done():
				_ = stream.Close()
				return
			case rerr, ok := <-errs:
				if rerr != nil {
					s.metrics.RecordError("stream")
				}
				if rerr != nil || !ok {
					_ = stream.Close()
					break consume
				}
			case snap, ok := <-updates:
				if !ok {
					_ = stream.Close()
					break consume
				}
				s.storeSnapshot(ctx, snap)
				s.metrics.RecordSentimentFetch("stream", "ok")
			}
		}
		err = stream.Reconnect(ctx)
	}
}

// fetchAndStore fetches from the provider under a cache lock so concurrent
// callers and replicas do not stampede the provider. A caller that loses the
// lock waits for the winner's snapshot instead of fetching.
func (s *SentimentService) fetchAndStore(ctx context.Context) (*models.MarketSentimentData, error) {
	locked, lockErr := s.cache.TryLock(ctx, sentimentFetchKey, fetchLockTTL)
	if lockErr == nil && !locked {
		if snap, ok := s.awaitFetch(ctx); ok {
			return snap, nil
		}
		return nil, fmt.Errorf("sentiment fetch already in progress")
	}
	if locked {
		defer func() { _ = s.cache.Unlock(ctx, sentimentFetchKey) }()
	}

	snap, err := s.provider.Fetch(ctx)
	if err != nil {
		// one retry for transient failures
		snap, err = s.provider.Fetch(ctx)
	}
	if err != nil {
		s.metrics.RecordSentimentFetch("provider", "error")
		return nil, fmt.Errorf("fetch sentiment: %w", err)
	}

	s.metrics.RecordSentimentFetch("provider", "ok")
	s.metrics.RecordSentimentScore(snap.Score)
	s.storeSnapshot(ctx, snap)
	return snap, nil
}

// awaitFetch polls the cache for the snapshot the lock holder is fetching.
func (s *SentimentService) awaitFetch(ctx context.Context) (*models.MarketSentimentData, bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(50 * time.Millisecond):
		}
		if cached, ok := s.cachedCopy(ctx); ok && time.Since(cached.FetchedAt) <= s.staleAfter {
			return s.withCacheMeta(cached), true
		}
	}
	return nil, false
}

func (s *SentimentService) storeSnapshot(ctx context.Context, snap *models.MarketSentimentData) {
	entry := cachedSnapshot{Data: *snap, FetchedAt: time.Now().UTC()}
	// cache TTL covers one full refetch cycle plus slack; staleness is
	// decided by FetchedAt, not by the cache TTL
	if err := s.cache.Set(ctx, sentimentCacheKey, entry, s.refetchEvery*2); err != nil {
		s.logger.Warn("sentiment cache set failed", applogger.Error(err))
	}
	if s.snapshots != nil {
		if err := s.snapshots.Append(ctx, snap); err != nil {
			s.logger.Warn("sentiment snapshot append failed", applogger.Error(err))
		}
	}
}

func (s *SentimentService) cachedCopy(ctx context.Context) (*cachedSnapshot, bool) {
	var entry cachedSnapshot
	if err := s.cache.Get(ctx, sentimentCacheKey, &entry); err != nil {
		return nil, false
	}
	if entry.FetchedAt.IsZero() {
		return nil, false
	}
	return &entry, true
}

func (s *SentimentService) withCacheMeta(entry *cachedSnapshot) *models.MarketSentimentData {
	out := entry.Data
	fetched := entry.FetchedAt
	expires := fetched.Add(s.staleAfter)
	out.IsCached = true
	out.LastFetch = &fetched
	out.ExpiresAt = &expires
	return &out
}
