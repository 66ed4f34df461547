// Package storage provides the persistence layer for the gang simulation host.
// The engine never touches storage; the host saves each snapshot it gets
// back and writes the event stream through an EventRepository.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

// ErrNotFound is returned when a game has no stored snapshot.
var ErrNotFound = errors.New("storage: not found")

// EventRecord mirrors the domain event structure for persistence.
type EventRecord struct {
	ID        string                 `json:"id" db:"id"`
	GameID    string                 `json:"game_id" db:"game_id"`
	Timestamp time.Time              `json:"timestamp" db:"-"`
	EventType string                 `json:"event_type" db:"event_type"`
	Message   string                 `json:"message" db:"message"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	TargetID  string                 `json:"target_id" db:"target_id"`
	Involved  []string               `json:"involved" db:"-"`
	Deltas    map[string]float64     `json:"deltas,omitempty" db:"-"`
	Payload   map[string]interface{} `json:"payload" db:"-"`
}

// NewEventRecord converts a domain event for storage. The typed payload is
// flattened to a JSON object.
func NewEventRecord(gameID string, e events.GameEvent) (EventRecord, error) {
	rec := EventRecord{
		ID:        e.ID,
		GameID:    gameID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		Message:   e.Message,
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Involved:  e.Involved,
		Deltas:    e.Deltas,
	}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return EventRecord{}, fmt.Errorf("failed to marshal payload: %w", err)
		}
		if err := json.Unmarshal(raw, &rec.Payload); err != nil {
			return EventRecord{}, fmt.Errorf("payload is not an object: %w", err)
		}
	}
	return rec, nil
}

// Involves reports whether a member took part in the event.
func (r EventRecord) Involves(memberID string) bool {
	if r.ActorID == memberID || r.TargetID == memberID {
		return true
	}
	for _, id := range r.Involved {
		if id == memberID {
			return true
		}
	}
	return false
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event EventRecord) error

	// GetByGameID retrieves all events for a game, oldest first.
	GetByGameID(ctx context.Context, gameID string) ([]EventRecord, error)

	// GetInvolving retrieves the events a member acted in or was targeted by.
	GetInvolving(ctx context.Context, gameID, memberID string) ([]EventRecord, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, gameID string, eventType string) ([]EventRecord, error)

	// Recent retrieves the newest events, oldest first.
	Recent(ctx context.Context, gameID string, limit int) ([]EventRecord, error)
}

// SnapshotRepository stores the registry snapshot of a game.
type SnapshotRepository interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, gameID string, snap registry.Snapshot) error

	// Load returns the stored snapshot or ErrNotFound.
	Load(ctx context.Context, gameID string) (registry.Snapshot, error)
}

// Store is a database holding both repositories.
type Store interface {
	EventRepository
	SnapshotRepository
	Close() error
}

// EventPersister adapts an EventRepository to the events.EventPersister
// write-through hook of the host's event log.
type EventPersister struct {
	repo    EventRepository
	gameID  string
	timeout time.Duration
}

// NewEventPersister binds a repository to one game.
func NewEventPersister(repo EventRepository, gameID string) *EventPersister {
	return &EventPersister{repo: repo, gameID: gameID, timeout: 5 * time.Second}
}

// Append stores one event.
func (p *EventPersister) Append(e events.GameEvent) error {
	rec, err := NewEventRecord(p.gameID, e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, rec)
}

var _ events.EventPersister = (*EventPersister)(nil)
