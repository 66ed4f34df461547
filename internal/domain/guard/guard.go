// Package guard defines the corrections officers members try to bribe.
// This package is PURE and must NOT import any infrastructure packages.
package guard

import (
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
)

// Label is the derived reputation of a guard.
type Label string

const (
	LabelHonest    Label = "honest"
	LabelNeutral   Label = "neutral"
	LabelCorrupt   Label = "corrupt"
	LabelDangerous Label = "dangerous"
)

const (
	MinAlertness = 30
	MaxAlertness = 80
)

// BribeRecord is one entry of a guard's append-only history.
type BribeRecord struct {
	MemberID string      `json:"member_id"`
	Kind     weapon.Kind `json:"kind"`
	Cost     float64     `json:"cost"`
	Success  bool        `json:"success"`
	At       time.Time   `json:"at"`
}

// Guard is a corrections officer.
type Guard struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Corruptibility float64       `json:"corruptibility"` // 0-100
	Alertness      float64       `json:"alertness"`      // 30-80
	History        []BribeRecord `json:"history"`
}

// Names is the pool of officer names used when the roster is generated.
var Names = []string{
	"Officer Briggs", "Officer Vance", "Sergeant Holt", "Officer Marlowe",
	"Officer Reyes", "Sergeant Kowalski", "Officer Dunn", "Officer Achterberg",
	"Officer Pike", "Captain Ortega",
}

// New builds a guard with clamped stats.
func New(id, name string, corruptibility, alertness float64) Guard {
	return Guard{
		ID:             id,
		Name:           name,
		Corruptibility: clamp(corruptibility, 0, 100),
		Alertness:      clamp(alertness, MinAlertness, MaxAlertness),
		History:        []BribeRecord{},
	}
}

// Label derives the guard's reputation from corruptibility.
func (g Guard) Label() Label {
	switch {
	case g.Corruptibility > 80:
		return LabelDangerous
	case g.Corruptibility >= 50:
		return LabelCorrupt
	case g.Corruptibility >= 20:
		return LabelNeutral
	default:
		return LabelHonest
	}
}

// Record appends a bribe attempt.
func (g *Guard) Record(r BribeRecord) {
	g.History = append(g.History, r)
}

// Clone returns a deep copy.
func (g Guard) Clone() Guard {
	c := g
	c.History = append([]BribeRecord(nil), g.History...)
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
