package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore wraps an initialized database (see InitSQLite).
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite initializes the database at path and wraps it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := InitSQLite(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

// Close closes the database connection.
func (r *SQLiteStore) Close() error {
	return r.db.Close()
}

// eventRow is the column layout of the events table.
type eventRow struct {
	ID        string `db:"id"`
	GameID    string `db:"game_id"`
	TS        int64  `db:"ts"`
	EventType string `db:"event_type"`
	Message   string `db:"message"`
	ActorID   string `db:"actor_id"`
	TargetID  string `db:"target_id"`
	Involved  string `db:"involved"`
	Deltas    string `db:"deltas"`
	Payload   string `db:"payload"`
}

func toRow(e EventRecord) (eventRow, error) {
	involved, err := json.Marshal(e.Involved)
	if err != nil {
		return eventRow{}, fmt.Errorf("failed to marshal involved: %w", err)
	}
	deltas, err := json.Marshal(e.Deltas)
	if err != nil {
		return eventRow{}, fmt.Errorf("failed to marshal deltas: %w", err)
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return eventRow{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return eventRow{
		ID:        e.ID,
		GameID:    e.GameID,
		TS:        e.Timestamp.UnixNano(),
		EventType: e.EventType,
		Message:   e.Message,
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Involved:  string(involved),
		Deltas:    string(deltas),
		Payload:   string(payload),
	}, nil
}

func (row eventRow) record() (EventRecord, error) {
	e := EventRecord{
		ID:        row.ID,
		GameID:    row.GameID,
		Timestamp: time.Unix(0, row.TS).UTC(),
		EventType: row.EventType,
		Message:   row.Message,
		ActorID:   row.ActorID,
		TargetID:  row.TargetID,
	}
	if err := json.Unmarshal([]byte(row.Involved), &e.Involved); err != nil {
		return EventRecord{}, fmt.Errorf("failed to unmarshal involved: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Deltas), &e.Deltas); err != nil {
		return EventRecord{}, fmt.Errorf("failed to unmarshal deltas: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Payload), &e.Payload); err != nil {
		return EventRecord{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return e, nil
}

// Append adds an event to the ledger.
func (r *SQLiteStore) Append(ctx context.Context, event EventRecord) error {
	row, err := toRow(event)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO events (id, game_id, ts, event_type, message, actor_id, target_id, involved, deltas, payload)
		VALUES (:id, :game_id, :ts, :event_type, :message, :actor_id, :target_id, :involved, :deltas, :payload)
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const eventColumns = `id, game_id, ts, event_type, message, actor_id, target_id, involved, deltas, payload`

func (r *SQLiteStore) getMany(ctx context.Context, query string, args ...interface{}) ([]EventRecord, error) {
	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	out := make([]EventRecord, 0, len(rows))
	for _, row := range rows {
		e, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SQLiteStore) GetByGameID(ctx context.Context, gameID string) ([]EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE game_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, gameID)
}

func (r *SQLiteStore) GetInvolving(ctx context.Context, gameID, memberID string) ([]EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE game_id = ? AND (actor_id = ? OR target_id = ? OR involved LIKE ?)
		ORDER BY seq ASC`
	all, err := r.getMany(ctx, query, gameID, memberID, memberID, `%"`+memberID+`"%`)
	if err != nil {
		return nil, err
	}
	// LIKE can over-match ids containing quotes; confirm against the decoded list.
	out := all[:0]
	for _, e := range all {
		if e.Involves(memberID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *SQLiteStore) GetByEventType(ctx context.Context, gameID string, eventType string) ([]EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE game_id = ? AND event_type = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, gameID, eventType)
}

func (r *SQLiteStore) Recent(ctx context.Context, gameID string, limit int) ([]EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM (
			SELECT seq, ` + eventColumns + ` FROM events WHERE game_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`
	return r.getMany(ctx, query, gameID, limit)
}

// ---------------------------------------------------------
// Snapshots
// ---------------------------------------------------------

// Save upserts the snapshot of a game.
func (r *SQLiteStore) Save(ctx context.Context, gameID string, snap registry.Snapshot) error {
	body, err := registry.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	query := `
		INSERT INTO snapshots (game_id, version, body, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			version=excluded.version,
			body=excluded.body,
			saved_at=excluded.saved_at
	`
	if _, err := r.db.ExecContext(ctx, query, gameID, int64(snap.Version), string(body), time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot of a game.
func (r *SQLiteStore) Load(ctx context.Context, gameID string) (registry.Snapshot, error) {
	var body string
	err := r.db.GetContext(ctx, &body, `SELECT body FROM snapshots WHERE game_id = ?`, gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return registry.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return registry.Unmarshal([]byte(body))
}

var _ Store = (*SQLiteStore)(nil)
