package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

// PostgresStore implements Store using a PostgreSQL connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, caps the pool and creates the schema.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresStore) migrate(ctx context.Context) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			game_id TEXT PRIMARY KEY,
			version BIGINT NOT NULL,
			body JSONB NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS event_log (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			game_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			message TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			target_id TEXT,
			involved JSONB NOT NULL,
			deltas JSONB,
			payload JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_game ON event_log(game_id)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_involved ON event_log USING GIN (involved)`,
	}
	for _, q := range schemas {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

// Append inserts a new event into the immutable ledger.
func (r *PostgresStore) Append(ctx context.Context, event EventRecord) error {
	involved, err := json.Marshal(event.Involved)
	if err != nil {
		return fmt.Errorf("failed to marshal involved: %w", err)
	}
	deltas, err := json.Marshal(event.Deltas)
	if err != nil {
		return fmt.Errorf("failed to marshal deltas: %w", err)
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO event_log (id, game_id, timestamp, event_type, message, actor_id, target_id, involved, deltas, payload)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.GameID,
		event.Timestamp,
		event.EventType,
		event.Message,
		event.ActorID,
		event.TargetID,
		involved,
		deltas,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const pgEventColumns = `id, game_id, timestamp, event_type, message, actor_id, COALESCE(target_id, ''), involved, deltas, payload`

// GetByGameID retrieves all events for a game.
func (r *PostgresStore) GetByGameID(ctx context.Context, gameID string) ([]EventRecord, error) {
	return r.queryEvents(ctx, `SELECT `+pgEventColumns+` FROM event_log WHERE game_id = $1 ORDER BY seq ASC`, gameID)
}

// GetInvolving retrieves the events a member took part in.
func (r *PostgresStore) GetInvolving(ctx context.Context, gameID, memberID string) ([]EventRecord, error) {
	query := `SELECT ` + pgEventColumns + ` FROM event_log
		WHERE game_id = $1 AND (actor_id = $2 OR target_id = $2 OR involved ? $2)
		ORDER BY seq ASC`
	return r.queryEvents(ctx, query, gameID, memberID)
}

// GetByEventType retrieves all events of a specific type.
func (r *PostgresStore) GetByEventType(ctx context.Context, gameID string, eventType string) ([]EventRecord, error) {
	return r.queryEvents(ctx, `SELECT `+pgEventColumns+` FROM event_log WHERE game_id = $1 AND event_type = $2 ORDER BY seq ASC`, gameID, eventType)
}

// Recent retrieves the newest events, oldest first.
func (r *PostgresStore) Recent(ctx context.Context, gameID string, limit int) ([]EventRecord, error) {
	query := `SELECT ` + pgEventColumns + ` FROM (
			SELECT * FROM event_log WHERE game_id = $1 ORDER BY seq DESC LIMIT $2
		) recent ORDER BY seq ASC`
	return r.queryEvents(ctx, query, gameID, limit)
}

// queryEvents is a helper to execute queries and scan results.
func (r *PostgresStore) queryEvents(ctx context.Context, query string, args ...interface{}) ([]EventRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (EventRecord, error) {
		var e EventRecord
		var involved, deltas, payload []byte
		if err := row.Scan(&e.ID, &e.GameID, &e.Timestamp, &e.EventType, &e.Message,
			&e.ActorID, &e.TargetID, &involved, &deltas, &payload); err != nil {
			return EventRecord{}, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := unmarshalOptional(involved, &e.Involved); err != nil {
			return EventRecord{}, err
		}
		if err := unmarshalOptional(deltas, &e.Deltas); err != nil {
			return EventRecord{}, err
		}
		if err := unmarshalOptional(payload, &e.Payload); err != nil {
			return EventRecord{}, err
		}
		return e, nil
	})
}

func unmarshalOptional(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to unmarshal event column: %w", err)
	}
	return nil
}

// Save upserts the snapshot of a game.
func (r *PostgresStore) Save(ctx context.Context, gameID string, snap registry.Snapshot) error {
	body, err := registry.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO snapshots (game_id, version, body, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_id) DO UPDATE SET
			version = EXCLUDED.version,
			body = EXCLUDED.body,
			saved_at = EXCLUDED.saved_at`,
		gameID, int64(snap.Version), body, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot of a game.
func (r *PostgresStore) Load(ctx context.Context, gameID string) (registry.Snapshot, error) {
	var body []byte
	err := r.pool.QueryRow(ctx, `SELECT body FROM snapshots WHERE game_id = $1`, gameID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return registry.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return registry.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return registry.Unmarshal(body)
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)
