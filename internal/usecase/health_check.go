package usecase

import (
	"context"
	"fmt"
	"time"

	"opinionpointer/internal/domain/models"
	domrepo "opinionpointer/internal/domain/repository"
)

// HealthAggregator runs the admin health probes. Probes execute sequentially;
// each is independently guarded so one failing probe never aborts the rest.
// Only a failure outside the probe guards (a panic, e.g. a missing store)
// surfaces as an error, carrying whatever partial result was gathered.
type HealthAggregator struct {
	store    domrepo.Store
	registry *Registry
	metrics  domrepo.Metrics
}

func NewHealthAggregator(store domrepo.Store, registry *Registry, metrics domrepo.Metrics) *HealthAggregator {
	return &HealthAggregator{store: store, registry: registry, metrics: metrics}
}

// Check runs all probes and folds their statuses into the overall
// classification. The returned response is valid (partial) even when err is
// non-nil.
func (a *HealthAggregator) Check(ctx context.Context) (resp *models.HealthCheckResponse, err error) {
	resp = &models.HealthCheckResponse{
		Timestamp: time.Now().UTC(),
		Services:  make([]models.ServiceStatus, 0, 4),
	}

	defer func() {
		if r := recover(); r != nil {
			resp.Database.Connected = false
			resp.Status = models.StatusUnhealthy
			resp.Error = fmt.Sprintf("health check aborted: %v", r)
			err = fmt.Errorf("health check aborted: %v", r)
		}
	}()

	a.probeDatabase(ctx, resp)
	a.probeRegistry(resp)
	a.probeJobs(ctx, resp)
	a.probeCollections(ctx, resp)

	resp.Status = models.OverallStatus(resp.Services)
	return resp, nil
}

func (a *HealthAggregator) probeDatabase(ctx context.Context, resp *models.HealthCheckResponse) {
	start := time.Now()
	pingErr := a.store.Ping(ctx)
	latency := time.Since(start)

	resp.Database = models.DatabaseStatus{
		Connected: pingErr == nil,
		LatencyMs: latency.Milliseconds(),
	}

	s := models.ServiceStatus{Service: "Database", CheckedAt: time.Now().UTC()}
	if pingErr != nil {
		s.Status = models.StatusUnhealthy
		s.Details = pingErr.Error()
	} else {
		s.Status = models.StatusHealthy
		s.Details = fmt.Sprintf("connected, latency %dms", latency.Milliseconds())
	}
	a.record(resp, s, latency)
}

func (a *HealthAggregator) probeRegistry(resp *models.HealthCheckResponse) {
	start := time.Now()
	s := models.ServiceStatus{Service: "Services Registry", CheckedAt: time.Now().UTC()}
	stats := a.registry.Stats()
	switch {
	case stats.LastError != "":
		s.Status = models.StatusUnhealthy
		s.Details = stats.LastError
	case !stats.Initialized:
		s.Status = models.StatusUnknown
		s.Details = "registry not initialized"
	default:
		s.Status = models.StatusHealthy
		s.Details = fmt.Sprintf("%d services, initialized %s", stats.Services,
			stats.InitializedAt.Format(time.RFC3339))
	}
	a.record(resp, s, time.Since(start))
}

func (a *HealthAggregator) probeJobs(ctx context.Context, resp *models.HealthCheckResponse) {
	start := time.Now()
	s := models.ServiceStatus{Service: "Job Execution", CheckedAt: time.Now().UTC()}
	n, err := a.store.CountJobsSince(ctx, time.Now().Add(-time.Hour))
	switch {
	case err != nil:
		s.Status = models.StatusUnhealthy
		s.Details = err.Error()
	case n == 0:
		s.Status = models.StatusUnknown
		s.Details = "no jobs in the last hour"
	default:
		s.Status = models.StatusHealthy
		s.Details = fmt.Sprintf("%d jobs in the last hour", n)
	}
	a.record(resp, s, time.Since(start))
}

func (a *HealthAggregator) probeCollections(ctx context.Context, resp *models.HealthCheckResponse) {
	start := time.Now()
	s := models.ServiceStatus{Service: "Channel Collection", CheckedAt: time.Now().UTC()}

	channels, chErr := a.store.CountActiveChannels(ctx)
	if chErr != nil {
		s.Status = models.StatusUnhealthy
		s.Details = chErr.Error()
		a.record(resp, s, time.Since(start))
		return
	}
	collections, colErr := a.store.CountCollectionsSince(ctx, time.Now().Add(-24*time.Hour))
	if colErr != nil {
		s.Status = models.StatusUnhealthy
		s.Details = colErr.Error()
		a.record(resp, s, time.Since(start))
		return
	}

	if channels == 0 && collections == 0 {
		s.Status = models.StatusUnknown
		s.Details = "no active channels and no collections in the last 24h"
	} else {
		s.Status = models.StatusHealthy
		s.Details = fmt.Sprintf("%d active channels, %d collections in the last 24h", channels, collections)
	}
	a.record(resp, s, time.Since(start))
}

func (a *HealthAggregator) record(resp *models.HealthCheckResponse, s models.ServiceStatus, d time.Duration) {
	resp.Services = append(resp.Services, s)
	if a.metrics != nil {
		a.metrics.RecordProbe(s.Service, s.Status, d.Seconds())
	}
}
