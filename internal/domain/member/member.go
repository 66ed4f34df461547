// Package member defines the per-personality state of the yard simulation.
// This package is PURE and must NOT import any infrastructure packages.
package member

import (
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/gang"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
)

// Rank is a member's standing inside their gang.
type Rank string

const (
	RankLeader      Rank = "leader"
	RankLieutenant  Rank = "lieutenant"
	RankSoldier     Rank = "soldier"
	RankRecruit     Rank = "recruit"
	RankIndependent Rank = "independent"
)

// Status is the simulation record of one personality.
type Status struct {
	ID     string `json:"id"`
	GangID string `json:"gang_id,omitempty"` // empty when independent
	Rank   Rank   `json:"rank"`

	Loyalty  float64 `json:"loyalty"`  // 0-100
	Respect  float64 `json:"respect"`  // 0-100
	Violence float64 `json:"violence"` // 0-100
	Hits     int     `json:"hits"`

	Imprisoned  bool      `json:"imprisoned"`
	ReleaseAt   time.Time `json:"release_at"`
	Killed      bool      `json:"killed"`
	KilledAt    time.Time `json:"killed_at"`
	Extensions  int       `json:"sentence_extensions"`
	SolitaryRun int       `json:"solitary_stints"`

	// Drugs
	CarriedDrugs  float64 `json:"carried_drugs"` // grams
	DrugsDealt    float64 `json:"drugs_dealt"`
	DrugsSmuggled float64 `json:"drugs_smuggled"`
	DrugsCaught   float64 `json:"drugs_caught"`
	SmuggleRuns   int     `json:"smuggle_runs"` // successful runs, drives experience

	// Weapons
	Weapons        []weapon.Weapon `json:"weapons"`
	BribeAttempts  int             `json:"bribe_attempts"`
	BribeSuccesses int             `json:"bribe_successes"`
	BribeCooldown  time.Time       `json:"bribe_cooldown_until"`
	WeaponsStolen  int             `json:"weapons_stolen"`
	WeaponsLost    int             `json:"weapons_lost"`

	JoinedAt time.Time `json:"joined_at"`
}

// New creates an independent member with default standing.
func New(id string, violence float64, now time.Time) Status {
	return Status{
		ID:       id,
		Rank:     RankIndependent,
		Loyalty:  60,
		Respect:  40,
		Violence: gang.Percent(violence),
		Weapons:  []weapon.Weapon{},
		JoinedAt: now,
	}
}

// Clone returns a deep copy.
func (s Status) Clone() Status {
	c := s
	c.Weapons = append([]weapon.Weapon(nil), s.Weapons...)
	return c
}

// Affiliated reports gang membership.
func (s Status) Affiliated() bool {
	return s.GangID != ""
}

// Active reports whether the member can take part in interactions.
func (s Status) Active() bool {
	return !s.Killed && !s.Imprisoned
}

// Armed reports whether the member holds any weapon.
func (s Status) Armed() bool {
	return len(s.Weapons) > 0
}

// BestWeapon returns the strongest weapon, if any.
func (s Status) BestWeapon() (weapon.Weapon, int, bool) {
	i := weapon.Best(s.Weapons)
	if i < 0 {
		return weapon.Weapon{}, -1, false
	}
	return s.Weapons[i], i, true
}

// Join places the member in a gang at the given rank.
func (s *Status) Join(gangID string, rank Rank, now time.Time) {
	s.GangID = gangID
	s.Rank = rank
	s.JoinedAt = now
}

// Leave clears gang affiliation.
func (s *Status) Leave() {
	s.GangID = ""
	s.Rank = RankIndependent
}

// Imprison sends the member to solitary until now+d.
func (s *Status) Imprison(now time.Time, d time.Duration) {
	s.Imprisoned = true
	s.ReleaseAt = now.Add(d)
	s.SolitaryRun++
}

// Release ends a solitary stint.
func (s *Status) Release() {
	s.Imprisoned = false
	s.ReleaseAt = time.Time{}
}

// Kill applies the terminal state: weapons and drugs are cleared and the
// record is kept for history.
func (s *Status) Kill(now time.Time) {
	s.Killed = true
	s.KilledAt = now
	s.Weapons = []weapon.Weapon{}
	s.CarriedDrugs = 0
	s.Imprisoned = false
}

// Clamp enforces the numeric invariants after a mutation.
func (s *Status) Clamp() {
	s.Loyalty = gang.Percent(s.Loyalty)
	s.Respect = gang.Percent(s.Respect)
	s.Violence = gang.Percent(s.Violence)
	s.CarriedDrugs = gang.NonNegative(s.CarriedDrugs)
	s.DrugsDealt = gang.NonNegative(s.DrugsDealt)
	s.DrugsSmuggled = gang.NonNegative(s.DrugsSmuggled)
	s.DrugsCaught = gang.NonNegative(s.DrugsCaught)
	for i := range s.Weapons {
		s.Weapons[i].Durability = weapon.ClampDurability(s.Weapons[i].Durability)
	}
}
