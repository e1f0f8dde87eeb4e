package models

import "time"

// Channel is an external data source tracked for periodic collection.
type Channel struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	URL       string    `db:"url" json:"url"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Collection job states.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// CollectionJob records one scheduled collection run against a channel.
type CollectionJob struct {
	ID         int64      `db:"id" json:"id"`
	ChannelID  int64      `db:"channel_id" json:"channel_id"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	StartedAt  *time.Time `db:"started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	Error      string     `db:"error" json:"error,omitempty"`
}

// Collection is the stored result of a successful collection run.
type Collection struct {
	ID          int64     `db:"id" json:"id"`
	ChannelID   int64     `db:"channel_id" json:"channel_id"`
	Items       int       `db:"items" json:"items"`
	CollectedAt time.Time `db:"collected_at" json:"collected_at"`
}

// CollectionEvent is published to the events topic after each run.
type CollectionEvent struct {
	JobID       int64     `json:"job_id"`
	ChannelID   int64     `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Items       int       `json:"items"`
	Status      string    `json:"status"`
	CollectedAt time.Time `json:"collected_at"`
}
