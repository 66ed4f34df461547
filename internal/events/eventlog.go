// Package events is the event emitter of the yard: every resolved action
// becomes an immutable, tagged GameEvent. The engine only creates events;
// the host keeps them in an EventLog with its own retention window.
package events

import (
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType tags the category of a game event. It is set by the operation
// that produced the event and never inferred from the message text.
type EventType string

const (
	EventTypeViolenceHit      EventType = "VIOLENCE_HIT"
	EventTypeViolenceMiss     EventType = "VIOLENCE_MISS"
	EventTypeTerritoryShift   EventType = "TERRITORY_SHIFT"
	EventTypeSolitarySentence EventType = "SOLITARY_SENTENCE"
	EventTypeSolitaryRelease  EventType = "SOLITARY_RELEASE"
	EventTypeDeath            EventType = "DEATH"
	EventTypeWeaponBribed     EventType = "WEAPON_BRIBED"
	EventTypeBribeFailed      EventType = "BRIBE_FAILED"
	EventTypeBribeCaught      EventType = "BRIBE_CAUGHT"
	EventTypeWeaponCrafted    EventType = "WEAPON_CRAFTED"
	EventTypeCraftFailed      EventType = "CRAFT_FAILED"
	EventTypeWeaponStolen     EventType = "WEAPON_STOLEN"
	EventTypeWeaponBroken     EventType = "WEAPON_BROKEN"
	EventTypeDrugSmuggled     EventType = "DRUG_SMUGGLED"
	EventTypeDrugSeized       EventType = "DRUG_SEIZED"
	EventTypeDrugDealt        EventType = "DRUG_DEALT"
	EventTypeDrugDealBusted   EventType = "DRUG_DEAL_BUSTED"
	EventTypeRecruited        EventType = "RECRUITED"
	EventTypeLeftGang         EventType = "LEFT_GANG"
	EventTypePromoted         EventType = "PROMOTED"
	EventTypeLeaderChanged    EventType = "LEADER_CHANGED"
	EventTypeGangFormed       EventType = "GANG_FORMED"
	EventTypeMemberJoined     EventType = "MEMBER_JOINED"
)

// IsDrugTransaction reports whether the type belongs to the drug ledger.
func (t EventType) IsDrugTransaction() bool {
	switch t {
	case EventTypeDrugSmuggled, EventTypeDrugSeized, EventTypeDrugDealt, EventTypeDrugDealBusted:
		return true
	}
	return false
}

// ViolencePayload describes an attack.
type ViolencePayload struct {
	Chance     float64 `json:"chance"`
	Roll       float64 `json:"roll"`
	WeaponID   string  `json:"weapon_id,omitempty"`
	WeaponName string  `json:"weapon_name,omitempty"`
	Hits       int     `json:"hits"`
}

// TerritoryPayload describes a territory transfer between gangs.
type TerritoryPayload struct {
	FromGang string  `json:"from_gang,omitempty"`
	ToGang   string  `json:"to_gang,omitempty"`
	Amount   float64 `json:"amount"`
}

// SentencePayload describes a solitary stint.
type SentencePayload struct {
	ReleaseAt time.Time `json:"release_at"`
	Reason    string    `json:"reason"`
}

// DrugPayload is a drug transaction record.
type DrugPayload struct {
	GangID string  `json:"gang_id"`
	Grams  float64 `json:"grams"`
	Price  float64 `json:"price_per_gram,omitempty"`
	Profit float64 `json:"profit,omitempty"`
	Risk   float64 `json:"risk"`
	Caught bool    `json:"caught"`
}

// WeaponPayload describes a weapon changing hands, appearing or breaking.
type WeaponPayload struct {
	WeaponID string  `json:"weapon_id,omitempty"`
	Kind     string  `json:"kind"`
	Name     string  `json:"name,omitempty"`
	Source   string  `json:"source,omitempty"`
	GuardID  string  `json:"guard_id,omitempty"`
	Cost     float64 `json:"cost,omitempty"`
	Chance   float64 `json:"chance,omitempty"`
}

// MembershipPayload describes recruitment, departures and rank changes.
type MembershipPayload struct {
	GangID      string  `json:"gang_id"`
	Rank        string  `json:"rank,omitempty"`
	Probability float64 `json:"probability,omitempty"`
}

// GameEvent represents an immutable record of a resolved action.
type GameEvent struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Type      EventType          `json:"type"`
	Message   string             `json:"message"`
	ActorID   string             `json:"actor_id"`            // Who performed the action
	TargetID  string             `json:"target_id,omitempty"` // Who was affected (optional)
	Involved  []string           `json:"involved"`
	Deltas    map[string]float64 `json:"deltas,omitempty"`
	Payload   interface{}        `json:"payload,omitempty"` // Event-specific data
}

// Involves reports whether id took part in the event.
func (e GameEvent) Involves(id string) bool {
	return e.ActorID == id || e.TargetID == id || slices.Contains(e.Involved, id)
}

// GenerateEventID creates a lexically sortable event identifier.
func GenerateEventID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// Recorder collects the events emitted during a single engine call.
type Recorder struct {
	now    time.Time
	events []GameEvent
}

// NewRecorder creates a recorder stamping events with now.
func NewRecorder(now time.Time) *Recorder {
	return &Recorder{now: now}
}

// Emit records a new event and returns it.
func (r *Recorder) Emit(t EventType, actorID, targetID, message string, deltas map[string]float64, payload interface{}) GameEvent {
	involved := []string{}
	if actorID != "" {
		involved = append(involved, actorID)
	}
	if targetID != "" && targetID != actorID {
		involved = append(involved, targetID)
	}
	e := GameEvent{
		ID:        GenerateEventID(r.now),
		Timestamp: r.now,
		Type:      t,
		Message:   message,
		ActorID:   actorID,
		TargetID:  targetID,
		Involved:  involved,
		Deltas:    deltas,
		Payload:   payload,
	}
	r.events = append(r.events, e)
	return e
}

// Events returns the recorded events in emission order.
func (r *Recorder) Events() []GameEvent {
	return slices.Clone(r.events)
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the host's in-memory append-only log of game events, capped
// at a retention window. Older events fall off the front; the persister,
// when set, keeps the full history.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	retention int
	persister EventPersister
	subs      map[int]chan GameEvent
	nextSub   int
}

// NewEventLog creates a new event log with an optional persister.
// A retention of 0 keeps everything.
func NewEventLog(persister EventPersister, retention int) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		retention: retention,
		persister: persister,
		subs:      map[int]chan GameEvent{},
	}
}

// Append adds events to the log in order, writes them through to the
// persister and fans them out to subscribers. A slow subscriber misses
// events instead of blocking the log. The first persister error is
// returned after every event has been appended in memory.
func (el *EventLog) Append(evs ...GameEvent) error {
	el.mu.Lock()
	defer el.mu.Unlock()

	var firstErr error
	for _, e := range evs {
		el.events = append(el.events, e)
		if el.persister != nil {
			if err := el.persister.Append(e); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		for _, ch := range el.subs {
			select {
			case ch <- e:
			default:
			}
		}
	}
	if el.retention > 0 && len(el.events) > el.retention {
		el.events = slices.Clone(el.events[len(el.events)-el.retention:])
	}
	return firstErr
}

// Subscribe returns a channel receiving every appended event and a function
// that cancels the subscription.
func (el *EventLog) Subscribe(buffer int) (<-chan GameEvent, func()) {
	el.mu.Lock()
	defer el.mu.Unlock()
	id := el.nextSub
	el.nextSub++
	ch := make(chan GameEvent, buffer)
	el.subs[id] = ch
	return ch, func() {
		el.mu.Lock()
		defer el.mu.Unlock()
		if c, ok := el.subs[id]; ok {
			delete(el.subs, id)
			close(c)
		}
	}
}

// GetByActor returns the retained events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.ActorID == actorID })
}

// GetByType returns the retained events of one type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.Type == t })
}

// DrugTransactions returns the retained drug ledger entries.
func (el *EventLog) DrugTransactions() []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.Type.IsDrugTransaction() })
}

// Replay returns a copy of the retained history, oldest first.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return slices.Clone(el.events)
}

// Len reports how many events are retained.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

func (el *EventLog) filter(keep func(GameEvent) bool) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}
