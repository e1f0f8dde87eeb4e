package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"opinionpointer/internal/domain/models"
	pkgch "opinionpointer/pkg/clickhouse"
	applogger "opinionpointer/pkg/logger"
)

// CHSnapshotStore implements SnapshotStore backed by ClickHouse. Snapshots
// are append-only; the table is ordered by fetch time.
type CHSnapshotStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHSnapshotStore(ch *pkgch.Client, table string) *CHSnapshotStore {
	return &CHSnapshotStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHSnapshotStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSnapshotStore) Append(ctx context.Context, snap *models.MarketSentimentData) error {
	start := time.Now()
	q := fmt.Sprintf(
		"INSERT INTO %s (ts, sentiment, score, label, multiplier, next_update) VALUES (?, ?, ?, ?, ?, ?)",
		s.table,
	)
	_, err := s.db.ExecContext(ctx, q,
		snap.Timestamp,
		string(snap.Sentiment),
		snap.Score,
		snap.Label,
		snap.Multiplier,
		snap.NextUpdate,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse snapshot insert error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("append snapshot: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse snapshot appended",
			applogger.String("sentiment", string(snap.Sentiment)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHSnapshotStore) Latest(ctx context.Context, n int) ([]models.MarketSentimentData, error) {
	q := fmt.Sprintf(`
        SELECT ts, sentiment, score, label, multiplier, next_update
        FROM %s
        ORDER BY ts DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse snapshot query error",
				applogger.String("table", s.table),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]models.MarketSentimentData, 0, n)
	for rows.Next() {
		var (
			m     models.MarketSentimentData
			level string
		)
		if err := rows.Scan(&m.Timestamp, &level, &m.Score, &m.Label, &m.Multiplier, &m.NextUpdate); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		m.Sentiment = models.SentimentLevel(level)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SnapshotSchema returns the idempotent DDL for the snapshot history table.
func SnapshotSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            ts DateTime,
            sentiment String,
            score Float64,
            label String,
            multiplier Float64,
            next_update DateTime
        ) ENGINE=MergeTree ORDER BY ts`, database, table),
	}
}
