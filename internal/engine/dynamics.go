package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

const (
	departureLoyalty   = 20
	departureChance    = 0.10
	wealthyResources   = 70
	starvingResources  = 30
	reputationDrift    = 0.5
	ambientViolenceMul = 0.1
	soldierRespect     = 60
	lieutenantRespect  = 80
)

// AdvanceTick is the periodic entry point. elapsed is the real time since the
// previous tick; a zero or negative elapsed returns the input unchanged.
func (e *Engine) AdvanceTick(s registry.Snapshot, elapsed time.Duration, now time.Time) Result {
	if elapsed <= 0 {
		return Result{Snapshot: s}
	}
	return e.run(s, now, func(tx *txn) *Failure {
		tf := float64(elapsed) / float64(e.cfg.IntervalUnit)
		e.decayLoyalty(tx, tf)
		e.driftGangs(tx, tf)
		e.releaseSolitary(tx)
		e.ambientViolence(tx)
		e.ambientRecruitment(tx)
		e.promote(tx)
		e.recomputeTendency(tx)
		for _, id := range tx.snap.GangIDs() {
			tx.ensureLeader(id)
		}
		return nil
	})
}

func (e *Engine) decayLoyalty(tx *txn, tf float64) {
	for _, id := range tx.snap.MemberIDs() {
		m := tx.snap.Members[id]
		if !m.Active() {
			continue
		}
		m.Loyalty -= e.cfg.LoyaltyDecayRate * tf
		tx.snap.PutMember(m)
		m = tx.snap.Members[id]

		if m.Affiliated() && m.Loyalty < departureLoyalty && e.cfg.IndependentAllowed &&
			random.Chance(e.rng, departureChance) {
			tx.leaveGang(m, "loyalty gone")
		}
	}
}

func (e *Engine) driftGangs(tx *txn, tf float64) {
	for _, id := range tx.snap.GangIDs() {
		g := tx.snap.Gangs[id]
		g.Resources += (g.TerritoryControl/100*2 - 1) * tf
		switch {
		case g.Resources > wealthyResources:
			g.Reputation += reputationDrift * tf
		case g.Resources < starvingResources:
			g.Reputation -= reputationDrift * tf
		}
		tx.snap.PutGang(g)
	}
}

func (e *Engine) releaseSolitary(tx *txn) {
	for _, id := range tx.snap.MemberIDs() {
		m := tx.snap.Members[id]
		if !m.Imprisoned || m.Killed || tx.now.Before(m.ReleaseAt) {
			continue
		}
		m.Release()
		tx.snap.PutMember(m)
		tx.emit(events.EventTypeSolitaryRelease, id, "",
			fmt.Sprintf("%s is back in the yard", id), nil, nil)
	}
}

func (e *Engine) ambientViolence(tx *txn) {
	active := tx.snap.ActiveMembers()
	if len(active) < 2 || !random.Chance(e.rng, e.cfg.ViolenceFrequency*ambientViolenceMul) {
		return
	}
	attackerID := active[random.Pick(e.rng, len(active))]
	attacker := tx.snap.Members[attackerID]

	var targets []string
	for _, id := range active {
		m := tx.snap.Members[id]
		if id == attackerID || (attacker.Affiliated() && m.GangID == attacker.GangID) {
			continue
		}
		targets = append(targets, id)
	}
	if len(targets) == 0 {
		return
	}
	targetID := targets[random.Pick(e.rng, len(targets))]
	if f := e.violence.resolve(tx, attackerID, targetID); f != nil {
		e.logger.Warn("ambient violence skipped", "reason", f.Reason)
	}
}

func (e *Engine) ambientRecruitment(tx *txn) {
	if !random.Chance(e.rng, e.cfg.AmbientRecruitChance) {
		return
	}
	var initiators []string
	for _, id := range tx.snap.ActiveMembers() {
		if tx.snap.Members[id].Affiliated() {
			initiators = append(initiators, id)
		}
	}
	if len(initiators) == 0 {
		return
	}
	initiator := tx.snap.Members[initiators[random.Pick(e.rng, len(initiators))]]

	var targets []string
	for _, id := range tx.snap.ActiveMembers() {
		if e.recruitment.eligible(initiator, tx.snap.Members[id]) == nil {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return
	}
	targetID := targets[random.Pick(e.rng, len(targets))]
	if _, f := e.recruitment.attempt(tx, initiator.ID, targetID, 0, false); f != nil {
		e.logger.Warn("ambient recruitment skipped", "reason", f.Reason)
	}
}

// promote moves recruits and soldiers up the ladder as their respect grows.
func (e *Engine) promote(tx *txn) {
	for _, id := range tx.snap.MemberIDs() {
		m := tx.snap.Members[id]
		if !m.Active() || !m.Affiliated() {
			continue
		}
		next := m.Rank
		switch {
		case m.Rank == member.RankRecruit && m.Respect >= soldierRespect:
			next = member.RankSoldier
		case m.Rank == member.RankSoldier && m.Respect >= lieutenantRespect:
			next = member.RankLieutenant
		}
		if next == m.Rank {
			continue
		}
		m.Rank = next
		tx.snap.PutMember(m)
		tx.emit(events.EventTypePromoted, id, "",
			fmt.Sprintf("%s is now a %s of %s", id, next, tx.gangName(m.GangID)), nil,
			events.MembershipPayload{GangID: m.GangID, Rank: string(next)})
	}
}

// recomputeTendency sets each gang's violence tendency to the mean violence
// stat of its active members. Gangs with nobody active keep their value.
func (e *Engine) recomputeTendency(tx *txn) {
	for _, gid := range tx.snap.GangIDs() {
		var sum float64
		var n int
		for _, id := range tx.snap.GangMembers(gid) {
			if m := tx.snap.Members[id]; m.Active() {
				sum += m.Violence
				n++
			}
		}
		if n == 0 {
			continue
		}
		g := tx.snap.Gangs[gid]
		g.ViolenceTendency = sum / float64(n)
		tx.snap.PutGang(g)
	}
}
