package eventgraph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is the subset of *pgxpool.Pool the sink needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgSink appends journal events to a PostgreSQL table. It is write-only:
// nothing ever reads the table back into the task store.
type PgSink struct {
	pool execer
}

// NewPgSink creates a PgSink. pool is normally a *pgxpool.Pool.
func NewPgSink(pool execer) *PgSink {
	return &PgSink{pool: pool}
}

// EnsureTable creates the task_events table if it doesn't exist.
func (s *PgSink) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS task_events (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			timestamp  TIMESTAMPTZ NOT NULL,
			task_id    BIGINT NOT NULL,
			task       JSONB NOT NULL,
			hash       TEXT NOT NULL,
			prev_hash  TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("create task_events: %w", err)
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_task_events_task ON task_events(task_id, timestamp)`)
	if err != nil {
		return fmt.Errorf("create task_events index: %w", err)
	}
	return nil
}

// Append inserts a sealed event.
func (s *PgSink) Append(ctx context.Context, e *Event) error {
	taskJSON, err := json.Marshal(e.Task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO task_events (id, type, timestamp, task_id, task, hash, prev_hash)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`,
		e.ID, e.Type, e.Timestamp, int64(e.TaskID), string(taskJSON), e.Hash, e.PrevHash)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}
