package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/rules"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/config"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

const (
	unarmedRespectGain = 10
	armedRespectGain   = 15
	hitRespectLoss     = 15
	missRespectDelta   = 5
	unarmedTerritory   = 5
	armedTerritory     = 8
	solitaryHitCount   = 3
	solitaryChance     = 0.60
	deathHitCount      = 5
	stealChance        = 0.40
	stealRespectGain   = 8
)

// ViolenceSystem resolves a single attack between two members.
type ViolenceSystem struct {
	cfg    *config.Simulation
	rng    random.Source
	logger *logger.Logger
}

// ResolveViolence makes attackerID attack targetID.
func (e *Engine) ResolveViolence(s registry.Snapshot, attackerID, targetID string, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		return e.violence.resolve(tx, attackerID, targetID)
	})
}

func (vs *ViolenceSystem) resolve(tx *txn, attackerID, targetID string) *Failure {
	attacker, f := tx.activeMember(attackerID)
	if f != nil {
		return f
	}
	target, f := tx.activeMember(targetID)
	if f != nil {
		return f
	}
	if attackerID == targetID {
		return preconditionf("%s cannot attack themselves", attackerID)
	}

	params := rules.ViolenceParams{AttackerViolence: attacker.Violence}
	if g, ok := tx.snap.Gang(attacker.GangID); ok && attacker.Affiliated() {
		params.GangViolence = g.ViolenceTendency
	}
	w, _, armed := attacker.BestWeapon()
	if armed {
		params.WeaponBonus = w.SuccessBonus
	}
	chance := rules.ViolenceChance(params)
	roll := vs.rng.Float64()

	payload := events.ViolencePayload{Chance: chance, Roll: roll}
	if armed {
		payload.WeaponID, payload.WeaponName = w.ID, w.Name
	}

	if roll >= chance {
		attacker.Respect -= missRespectDelta
		target.Respect += missRespectDelta
		tx.snap.PutMember(attacker)
		tx.snap.PutMember(target)
		payload.Hits = attacker.Hits
		tx.emit(events.EventTypeViolenceMiss, attackerID, targetID,
			fmt.Sprintf("%s swings at %s and misses", attackerID, targetID),
			map[string]float64{attackerID + ".respect": -missRespectDelta, targetID + ".respect": missRespectDelta},
			payload)
		if armed {
			vs.wear(tx, attackerID, w.ID)
		}
		return nil
	}

	gain, territory := float64(unarmedRespectGain), float64(unarmedTerritory)
	if armed {
		gain, territory = armedRespectGain, armedTerritory
	}
	attacker.Respect += gain
	target.Respect -= hitRespectLoss
	attacker.Hits++
	tx.snap.PutMember(attacker)
	tx.snap.PutMember(target)
	payload.Hits = attacker.Hits
	msg := fmt.Sprintf("%s beats down %s", attackerID, targetID)
	if armed {
		msg = fmt.Sprintf("%s hits %s with a %s", attackerID, targetID, w.Name)
	}
	tx.emit(events.EventTypeViolenceHit, attackerID, targetID, msg,
		map[string]float64{attackerID + ".respect": gain, targetID + ".respect": -hitRespectLoss},
		payload)

	if vs.cfg.TerritoryWars {
		vs.shiftTerritory(tx, attacker, target, territory)
	}

	if vs.cfg.SolitaryEnabled && attacker.Hits >= solitaryHitCount && random.Chance(vs.rng, solitaryChance) {
		attacker = tx.snap.Members[attackerID]
		attacker.Imprison(tx.now, vs.cfg.SolitaryDuration)
		tx.snap.PutMember(attacker)
		tx.emit(events.EventTypeSolitarySentence, attackerID, "",
			fmt.Sprintf("%s is dragged to solitary after %d hits", attackerID, attacker.Hits), nil,
			events.SentencePayload{ReleaseAt: attacker.ReleaseAt, Reason: "violence"})
	}

	killed := false
	if vs.cfg.DeathEnabled && attacker.Hits >= deathHitCount {
		multiplier := 1.0
		if armed {
			multiplier = w.Kind.DeathMultiplier()
		}
		if random.Chance(vs.rng, rules.DeathChance(vs.cfg.DeathBaseChance, multiplier)) {
			vs.kill(tx, attackerID, targetID)
			killed = true
		}
	}

	if armed && !killed && vs.cfg.WeaponStealing && tx.snap.Members[targetID].Armed() &&
		random.Chance(vs.rng, stealChance) {
		transferBest(tx, attackerID, targetID)
	}

	if armed {
		vs.wear(tx, attackerID, w.ID)
	}
	return nil
}

// shiftTerritory moves territory from the target's gang to the attacker's.
// Each side only moves when the member is affiliated; fights inside one gang
// move nothing.
func (vs *ViolenceSystem) shiftTerritory(tx *txn, attacker, target member.Status, amount float64) {
	if attacker.Affiliated() && attacker.GangID == target.GangID {
		return
	}
	payload := events.TerritoryPayload{Amount: amount}
	if g, ok := tx.snap.Gang(attacker.GangID); ok && attacker.Affiliated() {
		g.TerritoryControl += amount
		tx.snap.PutGang(g)
		payload.ToGang = g.ID
	}
	if g, ok := tx.snap.Gang(target.GangID); ok && target.Affiliated() {
		g.TerritoryControl -= amount
		tx.snap.PutGang(g)
		payload.FromGang = g.ID
	}
	if payload.ToGang == "" && payload.FromGang == "" {
		return
	}
	tx.emit(events.EventTypeTerritoryShift, attacker.ID, target.ID,
		fmt.Sprintf("%s gains ground on %s", tx.gangName(payload.ToGang), tx.gangName(payload.FromGang)),
		map[string]float64{"territory": amount}, payload)
}

func (vs *ViolenceSystem) kill(tx *txn, attackerID, targetID string) {
	target := tx.snap.Members[targetID]
	target.Kill(tx.now)
	tx.snap.PutMember(target)
	tx.emit(events.EventTypeDeath, attackerID, targetID,
		fmt.Sprintf("%s is killed by %s", targetID, attackerID), nil, nil)
	if target.Affiliated() {
		tx.ensureLeader(target.GangID)
	}
}

// wear consumes durability from the weapon used in an attack, removing it
// in the same update when it breaks.
func (vs *ViolenceSystem) wear(tx *txn, ownerID, weaponID string) {
	amount := random.UniformInt(vs.rng, weapon.MinWear, weapon.MaxWear)
	m := tx.snap.Members[ownerID]
	for i := range m.Weapons {
		if m.Weapons[i].ID != weaponID {
			continue
		}
		if m.Weapons[i].Wear(amount) {
			broken := m.Weapons[i]
			m.Weapons = weapon.Remove(m.Weapons, i)
			tx.snap.PutMember(m)
			tx.emit(events.EventTypeWeaponBroken, ownerID, "",
				fmt.Sprintf("%s's %s falls apart", ownerID, broken.Name), nil,
				events.WeaponPayload{WeaponID: broken.ID, Kind: string(broken.Kind), Name: broken.Name})
			return
		}
		tx.snap.PutMember(m)
		return
	}
}

// transferBest moves the victim's best weapon to the thief. The weapon is
// removed from the victim before it is appended to the thief.
func transferBest(tx *txn, thiefID, victimID string) {
	victim := tx.snap.Members[victimID]
	w, i, ok := victim.BestWeapon()
	if !ok {
		return
	}
	victim.Weapons = weapon.Remove(victim.Weapons, i)
	victim.WeaponsLost++
	tx.snap.PutMember(victim)

	thief := tx.snap.Members[thiefID]
	w.Source = weapon.SourceStolen
	w.AcquiredAt = tx.now
	thief.Weapons = append(thief.Weapons, w)
	thief.WeaponsStolen++
	thief.Respect += stealRespectGain
	tx.snap.PutMember(thief)

	tx.emit(events.EventTypeWeaponStolen, thiefID, victimID,
		fmt.Sprintf("%s takes %s's %s", thiefID, victimID, w.Name),
		map[string]float64{thiefID + ".respect": stealRespectGain},
		events.WeaponPayload{WeaponID: w.ID, Kind: string(w.Kind), Name: w.Name, Source: string(w.Source)})
}
