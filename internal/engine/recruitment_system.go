package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/rules"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/config"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

const (
	poachableLoyalty = 30
	recruitLoyalty   = 80
	recruitRespect   = 50
)

// RecruitmentSystem resolves whether a conversation converts the target.
type RecruitmentSystem struct {
	cfg    *config.Simulation
	rng    random.Source
	logger *logger.Logger
}

// Recruit tries to bring targetID into the initiator's gang. Affinity is the
// relationship score in [0, 1], 0 when untracked. The attempt only happens
// when the per-interaction trigger roll fires; otherwise the call succeeds
// without changes.
func (e *Engine) Recruit(s registry.Snapshot, initiatorID, targetID string, affinity float64, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		_, f := e.recruitment.attempt(tx, initiatorID, targetID, affinity, true)
		return f
	})
}

// eligible checks the recruitment preconditions.
func (rs *RecruitmentSystem) eligible(initiator, target member.Status) *Failure {
	if !initiator.Affiliated() {
		return preconditionf("%s is not in a gang", initiator.ID)
	}
	if initiator.ID == target.ID {
		return preconditionf("%s cannot recruit themselves", initiator.ID)
	}
	if target.GangID == initiator.GangID {
		return preconditionf("%s is already in the gang", target.ID)
	}
	if target.Affiliated() && target.Loyalty >= poachableLoyalty {
		return preconditionf("%s is too loyal to switch", target.ID)
	}
	return nil
}

// attempt runs the recruitment roll. gated adds the per-interaction trigger
// roll in front of the probability roll.
func (rs *RecruitmentSystem) attempt(tx *txn, initiatorID, targetID string, affinity float64, gated bool) (bool, *Failure) {
	initiator, f := tx.activeMember(initiatorID)
	if f != nil {
		return false, f
	}
	target, f := tx.activeMember(targetID)
	if f != nil {
		return false, f
	}
	if f := rs.eligible(initiator, target); f != nil {
		return false, f
	}
	g, f := tx.gangOf(initiator)
	if f != nil {
		return false, f
	}

	if gated && !random.Chance(rs.rng, rs.cfg.RecruitTriggerChance) {
		return false, nil
	}

	p := rules.RecruitProbability(rules.RecruitParams{
		FriendlyFraction: registry.FriendlyFraction(tx.snap.Window(initiatorID, targetID)),
		Affinity:         rules.Clamp01(affinity),
		GangReputation:   g.Reputation,
		Intensity:        rs.cfg.EnvironmentIntensity,
	})
	if !random.Chance(rs.rng, p) {
		return false, nil
	}

	if target.Affiliated() {
		target = tx.leaveGang(target, "poached by "+g.Name)
	}
	target.Join(g.ID, member.RankRecruit, tx.now)
	target.Loyalty = recruitLoyalty
	target.Respect = recruitRespect
	tx.snap.PutMember(target)
	tx.emit(events.EventTypeRecruited, initiatorID, targetID,
		fmt.Sprintf("%s brings %s into %s", initiatorID, targetID, g.Name), nil,
		events.MembershipPayload{GangID: g.ID, Rank: string(member.RankRecruit), Probability: p})
	return true, nil
}
