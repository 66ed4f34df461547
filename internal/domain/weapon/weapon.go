// Package weapon defines the contraband weapons members can hold.
// This package is PURE and must NOT import any infrastructure packages.
package weapon

import "time"

// Kind is the weapon family.
type Kind string

const (
	KindGun   Kind = "gun"
	KindShank Kind = "shank"
	KindChain Kind = "chain"
)

// ParseKind validates a user-supplied kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindGun, KindShank, KindChain:
		return Kind(s), true
	}
	return "", false
}

// Craftable reports whether the kind can be made in a cell. Guns cannot.
func (k Kind) Craftable() bool {
	return k == KindShank || k == KindChain
}

// Source records how a weapon entered the yard.
type Source string

const (
	SourceBribed  Source = "bribed"
	SourceCrafted Source = "crafted"
	SourceStolen  Source = "stolen"
)

const (
	MaxDurability     = 100
	CraftedDurability = 60
	MinWear           = 5
	MaxWear           = 20
)

// Variant describes one named model of a weapon kind.
type Variant struct {
	Name            string
	Kind            Kind
	Damage          int     // 30-90
	SuccessBonus    float64 // added to hit chance
	DeathMultiplier float64 // scales base death chance
	Concealment     float64 // resistance to detection, not consumed yet
}

// DeathMultiplier is the kind's death-chance multiplier. Death rolls use
// this table rather than the variant's own figure.
func (k Kind) DeathMultiplier() float64 {
	switch k {
	case KindGun:
		return 3.7
	case KindChain:
		return 2.8
	case KindShank:
		return 1.9
	}
	return 1.0
}

// Catalog holds the known variants per kind.
var Catalog = map[Kind][]Variant{
	KindGun: {
		{Name: "9mm Pistol", Kind: KindGun, Damage: 90, SuccessBonus: 0.27, DeathMultiplier: 3.7, Concealment: 0.30},
		{Name: "Zip Gun", Kind: KindGun, Damage: 70, SuccessBonus: 0.22, DeathMultiplier: 3.2, Concealment: 0.45},
	},
	KindChain: {
		{Name: "Bike Chain", Kind: KindChain, Damage: 55, SuccessBonus: 0.21, DeathMultiplier: 2.8, Concealment: 0.55},
		{Name: "Padlock Chain", Kind: KindChain, Damage: 50, SuccessBonus: 0.18, DeathMultiplier: 2.5, Concealment: 0.25},
	},
	KindShank: {
		{Name: "Shank", Kind: KindShank, Damage: 40, SuccessBonus: 0.15, DeathMultiplier: 1.9, Concealment: 0.85},
		{Name: "Toothbrush Shiv", Kind: KindShank, Damage: 30, SuccessBonus: 0.10, DeathMultiplier: 1.4, Concealment: 0.90},
	},
}

// Variants returns the catalog entries for a kind.
func Variants(k Kind) []Variant {
	return Catalog[k]
}

// Weapon is a single owned instance.
type Weapon struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	Name            string    `json:"name"`
	Damage          int       `json:"damage"`
	SuccessBonus    float64   `json:"success_bonus"`
	DeathMultiplier float64   `json:"death_multiplier"`
	Concealment     float64   `json:"concealment"`
	Durability      int       `json:"durability"`
	Source          Source    `json:"source"`
	AcquiredAt      time.Time `json:"acquired_at"`
}

// New instantiates a variant.
func New(id string, v Variant, durability int, src Source, at time.Time) Weapon {
	return Weapon{
		ID:              id,
		Kind:            v.Kind,
		Name:            v.Name,
		Damage:          v.Damage,
		SuccessBonus:    v.SuccessBonus,
		DeathMultiplier: v.DeathMultiplier,
		Concealment:     v.Concealment,
		Durability:      ClampDurability(durability),
		Source:          src,
		AcquiredAt:      at,
	}
}

// ClampDurability keeps durability in [0, 100].
func ClampDurability(d int) int {
	if d < 0 {
		return 0
	}
	if d > MaxDurability {
		return MaxDurability
	}
	return d
}

// Wear reduces durability and reports whether the weapon broke.
func (w *Weapon) Wear(amount int) bool {
	w.Durability = ClampDurability(w.Durability - amount)
	return w.Durability == 0
}

// Best returns the index of the strongest weapon in the list: highest
// success bonus, then damage, then durability. -1 for an empty list.
func Best(ws []Weapon) int {
	best := -1
	for i, w := range ws {
		if best < 0 || better(w, ws[best]) {
			best = i
		}
	}
	return best
}

func better(a, b Weapon) bool {
	if a.SuccessBonus != b.SuccessBonus {
		return a.SuccessBonus > b.SuccessBonus
	}
	if a.Damage != b.Damage {
		return a.Damage > b.Damage
	}
	return a.Durability > b.Durability
}

// Remove returns a copy of ws without the weapon at index i.
func Remove(ws []Weapon, i int) []Weapon {
	out := make([]Weapon, 0, len(ws)-1)
	out = append(out, ws[:i]...)
	return append(out, ws[i+1:]...)
}
