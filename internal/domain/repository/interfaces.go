package repository

import (
	"context"
	"time"

	"opinionpointer/internal/domain/models"
)

// Store is the relational application store (channels, jobs, collections,
// users, sessions).
type Store interface {
	Ping(ctx context.Context) error

	ListActiveChannels(ctx context.Context) ([]models.Channel, error)
	CountActiveChannels(ctx context.Context) (int64, error)

	CreateJob(ctx context.Context, channelID int64) (int64, error)
	MarkJobRunning(ctx context.Context, jobID int64) error
	MarkJobDone(ctx context.Context, jobID int64) error
	MarkJobFailed(ctx context.Context, jobID int64, reason string) error
	CountJobsSince(ctx context.Context, since time.Time) (int64, error)

	InsertCollection(ctx context.Context, channelID int64, items int, collectedAt time.Time) error
	CountCollectionsSince(ctx context.Context, since time.Time) (int64, error)

	SessionUser(ctx context.Context, token string) (*models.User, *models.Session, error)

	Close() error
}

// SnapshotStore persists sentiment snapshot history for analysis.
type SnapshotStore interface {
	Append(ctx context.Context, s *models.MarketSentimentData) error
	Latest(ctx context.Context, n int) ([]models.MarketSentimentData, error)
	Health(ctx context.Context) error
}

// EventPublisher emits collection events to the event stream.
type EventPublisher interface {
	PublishCollection(ctx context.Context, ev *models.CollectionEvent) error
	Close() error
}

// Metrics is the domain-facing metrics recorder.
type Metrics interface {
	RecordProbe(service, status string, seconds float64)
	RecordSentimentFetch(source, result string)
	RecordSentimentScore(score float64)
	RecordCollection(channel, result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
