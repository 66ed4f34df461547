// Package registry owns the canonical state of the yard: gangs, member
// statuses, guards and the rolling conversation windows. A Snapshot is a
// plain value; the engine never mutates one it did not clone first.
package registry

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/gang"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/guard"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
)

// WindowSize is how many exchanges are kept per conversational pair.
const WindowSize = 6

// Exchange is the keyword tally of one conversational message.
type Exchange struct {
	SpeakerID string    `json:"speaker_id"`
	Hostile   int       `json:"hostile"`
	Friendly  int       `json:"friendly"`
	At        time.Time `json:"at"`
}

// Snapshot is the whole simulation state handed to and from the host.
type Snapshot struct {
	Version uint64                   `json:"version"`
	Enabled bool                     `json:"enabled"`
	Gangs   map[string]gang.Gang     `json:"gangs"`
	Members map[string]member.Status `json:"members"`
	Guards  map[string]guard.Guard   `json:"guards"`
	Windows map[string][]Exchange    `json:"windows"`
}

// New returns an empty, disabled snapshot.
func New() Snapshot {
	return Snapshot{
		Gangs:   map[string]gang.Gang{},
		Members: map[string]member.Status{},
		Guards:  map[string]guard.Guard{},
		Windows: map[string][]Exchange{},
	}
}

// Clone returns a deep copy sharing no slices or maps with s.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{
		Version: s.Version,
		Enabled: s.Enabled,
		Gangs:   make(map[string]gang.Gang, len(s.Gangs)),
		Members: make(map[string]member.Status, len(s.Members)),
		Guards:  make(map[string]guard.Guard, len(s.Guards)),
		Windows: make(map[string][]Exchange, len(s.Windows)),
	}
	for id, g := range s.Gangs {
		c.Gangs[id] = g.Clone()
	}
	for id, m := range s.Members {
		c.Members[id] = m.Clone()
	}
	for id, g := range s.Guards {
		c.Guards[id] = g.Clone()
	}
	for k, w := range s.Windows {
		c.Windows[k] = append([]Exchange(nil), w...)
	}
	return c
}

// Gang looks up a gang by id.
func (s Snapshot) Gang(id string) (gang.Gang, bool) {
	g, ok := s.Gangs[id]
	return g, ok
}

// Member looks up a member status by personality id.
func (s Snapshot) Member(id string) (member.Status, bool) {
	m, ok := s.Members[id]
	return m, ok
}

// Guard looks up a guard by id.
func (s Snapshot) Guard(id string) (guard.Guard, bool) {
	g, ok := s.Guards[id]
	return g, ok
}

// PutGang inserts or replaces a gang.
func (s *Snapshot) PutGang(g gang.Gang) {
	g.Clamp()
	s.Gangs[g.ID] = g
}

// PutMember inserts or replaces a member status.
func (s *Snapshot) PutMember(m member.Status) {
	m.Clamp()
	s.Members[m.ID] = m
}

// PutGuard inserts or replaces a guard.
func (s *Snapshot) PutGuard(g guard.Guard) {
	s.Guards[g.ID] = g
}

// GangIDs returns gang ids in sorted order.
func (s Snapshot) GangIDs() []string {
	return slices.Sorted(maps.Keys(s.Gangs))
}

// MemberIDs returns member ids in sorted order.
func (s Snapshot) MemberIDs() []string {
	return slices.Sorted(maps.Keys(s.Members))
}

// GuardIDs returns guard ids in sorted order.
func (s Snapshot) GuardIDs() []string {
	return slices.Sorted(maps.Keys(s.Guards))
}

// ActiveMembers returns the sorted ids of members that are neither killed
// nor imprisoned.
func (s Snapshot) ActiveMembers() []string {
	var ids []string
	for _, id := range s.MemberIDs() {
		if s.Members[id].Active() {
			ids = append(ids, id)
		}
	}
	return ids
}

// GangMembers returns the sorted ids of every member affiliated with gangID,
// killed members included.
func (s Snapshot) GangMembers(gangID string) []string {
	var ids []string
	for _, id := range s.MemberIDs() {
		if s.Members[id].GangID == gangID {
			ids = append(ids, id)
		}
	}
	return ids
}

// WeaponOwner returns the member holding the weapon with the given id.
func (s Snapshot) WeaponOwner(weaponID string) (string, bool) {
	for _, id := range s.MemberIDs() {
		for _, w := range s.Members[id].Weapons {
			if w.ID == weaponID {
				return id, true
			}
		}
	}
	return "", false
}

// Weapons returns every weapon in the yard keyed by owner.
func (s Snapshot) Weapons() map[string][]weapon.Weapon {
	out := map[string][]weapon.Weapon{}
	for id, m := range s.Members {
		if len(m.Weapons) > 0 {
			out[id] = append([]weapon.Weapon(nil), m.Weapons...)
		}
	}
	return out
}

// PairKey identifies an unordered conversational pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Window returns the recent exchanges between a and b, oldest first.
func (s Snapshot) Window(a, b string) []Exchange {
	return s.Windows[PairKey(a, b)]
}

// PushExchange appends an exchange and trims the pair's window to WindowSize.
func (s *Snapshot) PushExchange(a, b string, e Exchange) {
	key := PairKey(a, b)
	w := append(slices.Clone(s.Windows[key]), e)
	if len(w) > WindowSize {
		w = w[len(w)-WindowSize:]
	}
	s.Windows[key] = w
}

// Sentiment sums the hostile and friendly hits of a window.
func Sentiment(w []Exchange) (hostile, friendly int) {
	for _, e := range w {
		hostile += e.Hostile
		friendly += e.Friendly
	}
	return hostile, friendly
}

// FriendlyFraction is the share of keyword hits in the window that were
// friendly. An empty window yields 0.
func FriendlyFraction(w []Exchange) float64 {
	h, f := Sentiment(w)
	if h+f == 0 {
		return 0
	}
	return float64(f) / float64(h+f)
}

// Marshal encodes a snapshot for the host's store.
func Marshal(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes a snapshot, filling in nil maps.
func Unmarshal(data []byte) (Snapshot, error) {
	s := New()
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Gangs == nil {
		s.Gangs = map[string]gang.Gang{}
	}
	if s.Members == nil {
		s.Members = map[string]member.Status{}
	}
	if s.Guards == nil {
		s.Guards = map[string]guard.Guard{}
	}
	if s.Windows == nil {
		s.Windows = map[string][]Exchange{}
	}
	return s, nil
}

// Summary renders a one-line description for logs.
func (s Snapshot) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d gangs=%d members=%d guards=%d", s.Version, len(s.Gangs), len(s.Members), len(s.Guards))
	if !s.Enabled {
		b.WriteString(" (disabled)")
	}
	return b.String()
}
