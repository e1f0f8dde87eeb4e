package models

import "time"

// Per-service and overall status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusUnknown   = "unknown"
	StatusDegraded  = "degraded"
)

// ServiceStatus is a single probe result.
type ServiceStatus struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"` // healthy, unhealthy, unknown
	Details   string    `json:"details,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// DatabaseStatus reports connectivity and measured latency of the app store.
type DatabaseStatus struct {
	Connected bool  `json:"connected"`
	LatencyMs int64 `json:"latency_ms"`
}

// HealthCheckResponse aggregates probe results for one request.
// Built fresh per request, never persisted.
type HealthCheckResponse struct {
	Status    string          `json:"status"` // healthy, degraded, unhealthy
	Timestamp time.Time       `json:"timestamp"`
	Database  DatabaseStatus  `json:"database"`
	Services  []ServiceStatus `json:"services"`
	Error     string          `json:"error,omitempty"`
}

// OverallStatus folds per-service statuses into the tri-state classification:
// any unhealthy wins, otherwise any unknown degrades, otherwise healthy.
func OverallStatus(services []ServiceStatus) string {
	overall := StatusHealthy
	for _, s := range services {
		switch s.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusUnknown:
			overall = StatusDegraded
		}
	}
	return overall
}
