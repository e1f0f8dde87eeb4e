package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"opinionpointer/internal/domain/models"
	applogger "opinionpointer/pkg/logger"
	pkgpg "opinionpointer/pkg/postgres"
)

// ErrSessionNotFound is returned when a session token is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// PostgresStore implements the application Store backed by Postgres.
type PostgresStore struct {
	db *sqlx.DB
	l  *applogger.Logger
}

func NewPostgresStore(pg *pkgpg.Client) *PostgresStore {
	return &PostgresStore{db: pg.DB()}
}

// SetLogger injects a structured logger.
func (s *PostgresStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActiveChannels(ctx context.Context) ([]models.Channel, error) {
	const q = `
        SELECT id, name, url, active, created_at
        FROM channels
        WHERE active = true
        ORDER BY id ASC
    `
	out := make([]models.Channel, 0, 32)
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		if s.l != nil {
			s.l.Error("postgres list_channels query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountActiveChannels(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM channels WHERE active = true"); err != nil {
		return 0, fmt.Errorf("count channels: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, channelID int64) (int64, error) {
	const q = `
        INSERT INTO collection_jobs (channel_id, status, created_at)
        VALUES ($1, $2, $3)
        RETURNING id
    `
	var id int64
	if err := s.db.GetContext(ctx, &id, q, channelID, models.JobPending, time.Now().UTC()); err != nil {
		if s.l != nil {
			s.l.Error("postgres create_job error",
				applogger.Int64("channel_id", channelID),
				applogger.Error(err),
			)
		}
		return 0, fmt.Errorf("create job: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) MarkJobRunning(ctx context.Context, jobID int64) error {
	const q = `UPDATE collection_jobs SET status = $1, started_at = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, q, models.JobRunning, time.Now().UTC(), jobID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkJobDone(ctx context.Context, jobID int64) error {
	const q = `UPDATE collection_jobs SET status = $1, finished_at = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, q, models.JobDone, time.Now().UTC(), jobID); err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkJobFailed(ctx context.Context, jobID int64, reason string) error {
	const q = `UPDATE collection_jobs SET status = $1, finished_at = $2, error = $3 WHERE id = $4`
	if _, err := s.db.ExecContext(ctx, q, models.JobFailed, time.Now().UTC(), reason, jobID); err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountJobsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM collection_jobs WHERE created_at >= $1", since); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) InsertCollection(ctx context.Context, channelID int64, items int, collectedAt time.Time) error {
	const q = `
        INSERT INTO collections (channel_id, items, collected_at)
        VALUES ($1, $2, $3)
    `
	if _, err := s.db.ExecContext(ctx, q, channelID, items, collectedAt.UTC()); err != nil {
		if s.l != nil {
			s.l.Error("postgres insert_collection error",
				applogger.Int64("channel_id", channelID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountCollectionsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM collections WHERE collected_at >= $1", since); err != nil {
		return 0, fmt.Errorf("count collections: %w", err)
	}
	return n, nil
}

// SessionUser resolves a session token to its session and user. Expired or
// unknown tokens return ErrSessionNotFound.
func (s *PostgresStore) SessionUser(ctx context.Context, token string) (*models.User, *models.Session, error) {
	const q = `
        SELECT s.token, s.user_id, s.expires_at,
               u.id, u.role, u.full_name, u.subscription
        FROM sessions s
        JOIN users u ON u.id = s.user_id
        WHERE s.token = $1
    `
	var (
		sess models.Session
		user models.User
	)
	row := s.db.QueryRowxContext(ctx, q, token)
	if err := row.Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt,
		&user.ID, &user.Role, &user.FullName, &user.Subscription); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("session lookup: %w", err)
	}
	if sess.Expired(time.Now()) {
		return nil, nil, ErrSessionNotFound
	}
	return &user, &sess, nil
}

func (s *PostgresStore) Close() error {
	return nil // pool is managed by pkg/postgres
}

// Schema returns the idempotent DDL for the application tables.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS channels (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            url TEXT NOT NULL,
            active BOOLEAN NOT NULL DEFAULT true,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE TABLE IF NOT EXISTS collection_jobs (
            id BIGSERIAL PRIMARY KEY,
            channel_id BIGINT NOT NULL REFERENCES channels(id),
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            started_at TIMESTAMPTZ,
            finished_at TIMESTAMPTZ,
            error TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS collections (
            id BIGSERIAL PRIMARY KEY,
            channel_id BIGINT NOT NULL REFERENCES channels(id),
            items INT NOT NULL DEFAULT 0,
            collected_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            role TEXT NOT NULL DEFAULT 'user',
            full_name TEXT NOT NULL DEFAULT '',
            subscription TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS sessions (
            token TEXT PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id),
            expires_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created ON collection_jobs (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_collections_collected ON collections (collected_at)`,
	}
}
