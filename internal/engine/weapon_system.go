package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/gang"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/guard"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/rules"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/config"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

const (
	bribeRespectGain = 5
	craftRespectGain = 2
)

// WeaponSystem resolves bribery, crafting and theft.
type WeaponSystem struct {
	cfg    *config.Simulation
	rng    random.Source
	logger *logger.Logger
}

// Cost returns the resource price of bribing for a kind.
func (ws *WeaponSystem) Cost(k weapon.Kind) float64 {
	switch k {
	case weapon.KindGun:
		return ws.cfg.GunCost
	case weapon.KindChain:
		return ws.cfg.ChainCost
	default:
		return ws.cfg.ShankCost
	}
}

// Bribe asks a guard to smuggle in a weapon. An empty guardID lets the
// engine pick a guard at random.
func (e *Engine) Bribe(s registry.Snapshot, memberID string, kind weapon.Kind, guardID string, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		if !e.cfg.WeaponsEnabled {
			return disabled("weapons")
		}
		return e.weapons.bribe(tx, memberID, kind, guardID)
	})
}

// Craft builds a shank or chain in the member's cell.
func (e *Engine) Craft(s registry.Snapshot, memberID string, kind weapon.Kind, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		if !e.cfg.WeaponsEnabled {
			return disabled("weapons")
		}
		return e.weapons.craft(tx, memberID, kind)
	})
}

// Steal transfers the victim's best weapon to the thief.
func (e *Engine) Steal(s registry.Snapshot, thiefID, victimID string, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		if !e.cfg.WeaponsEnabled {
			return disabled("weapons")
		}
		if !e.cfg.WeaponStealing {
			return disabled("weapon stealing")
		}
		return e.weapons.steal(tx, thiefID, victimID)
	})
}

func (ws *WeaponSystem) bribe(tx *txn, memberID string, kind weapon.Kind, guardID string) *Failure {
	if _, ok := weapon.ParseKind(string(kind)); !ok {
		return preconditionf("unknown weapon kind %q", kind)
	}
	m, f := tx.activeMember(memberID)
	if f != nil {
		return f
	}
	g, f := tx.gangOf(m)
	if f != nil {
		return f
	}
	if tx.now.Before(m.BribeCooldown) {
		return preconditionf("%s must wait until %s to bribe again", memberID, m.BribeCooldown.Format(time.TimeOnly))
	}
	cost := ws.Cost(kind)
	if g.Resources < cost {
		return preconditionf("%s has %.0f resources, %s costs %.0f", g.Name, g.Resources, kind, cost)
	}

	var gd guard.Guard
	if guardID != "" {
		if gd, f = tx.guard(guardID); f != nil {
			return f
		}
	} else {
		ids := tx.snap.GuardIDs()
		if len(ids) == 0 {
			return preconditionf("no guards on duty")
		}
		gd = tx.snap.Guards[ids[random.Pick(ws.rng, len(ids))]]
	}

	chance := rules.BribeChance(rules.BribeParams{
		Corruptibility: gd.Corruptibility,
		Alertness:      gd.Alertness,
		Respect:        m.Respect,
		GangReputation: g.Reputation,
	})
	success := random.Chance(ws.rng, chance)
	m.BribeAttempts++
	m.BribeCooldown = tx.now.Add(ws.cfg.BribeCooldown)
	payload := events.WeaponPayload{Kind: string(kind), GuardID: gd.ID, Cost: cost, Chance: chance}

	switch {
	case success:
		variants := weapon.Variants(kind)
		w := weapon.New(uuid.NewString(), variants[random.Pick(ws.rng, len(variants))], weapon.MaxDurability, weapon.SourceBribed, tx.now)
		m.Weapons = append(m.Weapons, w)
		m.BribeSuccesses++
		m.Respect += bribeRespectGain
		g.Resources -= cost
		g.AddItem(gang.ItemKind(kind))
		payload.WeaponID, payload.Name, payload.Source = w.ID, w.Name, string(w.Source)
		tx.emit(events.EventTypeWeaponBribed, memberID, "",
			fmt.Sprintf("%s slips %s a favor and walks away with a %s", memberID, gd.Name, w.Name),
			map[string]float64{memberID + ".respect": bribeRespectGain, g.ID + ".resources": -cost}, payload)

	case random.Chance(ws.rng, gd.Alertness/100):
		tx.emit(events.EventTypeBribeCaught, memberID, "",
			fmt.Sprintf("%s reports %s for attempted bribery", gd.Name, memberID), nil, payload)
		if ws.cfg.SolitaryEnabled {
			m.Imprison(tx.now, ws.cfg.BribeSentence)
			tx.emit(events.EventTypeSolitarySentence, memberID, "",
				fmt.Sprintf("%s gets solitary for bribing a guard", memberID), nil,
				events.SentencePayload{ReleaseAt: m.ReleaseAt, Reason: "bribery"})
		}

	default:
		g.Resources -= cost / 2
		tx.emit(events.EventTypeBribeFailed, memberID, "",
			fmt.Sprintf("%s pockets the payment and gives %s nothing", gd.Name, memberID),
			map[string]float64{g.ID + ".resources": -cost / 2}, payload)
	}

	gd.Record(guard.BribeRecord{MemberID: memberID, Kind: kind, Cost: cost, Success: success, At: tx.now})
	tx.snap.PutGuard(gd)
	tx.snap.PutGang(g)
	tx.snap.PutMember(m)
	return nil
}

func (ws *WeaponSystem) craft(tx *txn, memberID string, kind weapon.Kind) *Failure {
	if !kind.Craftable() {
		return preconditionf("%q cannot be crafted", kind)
	}
	m, f := tx.activeMember(memberID)
	if f != nil {
		return f
	}

	chance := rules.CraftChance(m.Violence)
	payload := events.WeaponPayload{Kind: string(kind), Chance: chance}
	if !random.Chance(ws.rng, chance) {
		tx.emit(events.EventTypeCraftFailed, memberID, "",
			fmt.Sprintf("%s's attempt at a %s falls apart", memberID, kind), nil, payload)
		return nil
	}

	variants := weapon.Variants(kind)
	w := weapon.New(uuid.NewString(), variants[random.Pick(ws.rng, len(variants))], weapon.CraftedDurability, weapon.SourceCrafted, tx.now)
	m.Weapons = append(m.Weapons, w)
	m.Respect += craftRespectGain
	tx.snap.PutMember(m)
	if g, ok := tx.snap.Gang(m.GangID); ok && m.Affiliated() {
		g.AddItem(gang.ItemKind(kind))
		tx.snap.PutGang(g)
	}
	payload.WeaponID, payload.Name, payload.Source = w.ID, w.Name, string(w.Source)
	tx.emit(events.EventTypeWeaponCrafted, memberID, "",
		fmt.Sprintf("%s crafts a %s", memberID, w.Name),
		map[string]float64{memberID + ".respect": craftRespectGain}, payload)
	return nil
}

func (ws *WeaponSystem) steal(tx *txn, thiefID, victimID string) *Failure {
	if _, f := tx.activeMember(thiefID); f != nil {
		return f
	}
	victim, f := tx.activeMember(victimID)
	if f != nil {
		return f
	}
	if thiefID == victimID {
		return preconditionf("%s cannot steal from themselves", thiefID)
	}
	if !victim.Armed() {
		return preconditionf("%s has no weapon to steal", victimID)
	}
	transferBest(tx, thiefID, victimID)
	return nil
}
