package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/gang"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/guard"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

// Enable switches the simulation on, forming the initial gangs and, when
// weapons are enabled, the guard roster.
func (e *Engine) Enable(s registry.Snapshot, now time.Time) Result {
	if s.Enabled {
		return Result{Snapshot: s, Failure: preconditionf("simulation already enabled")}
	}
	tx := e.begin(s, now)
	tx.snap.Enabled = true

	count := min(e.cfg.InitialGangCount, len(gang.Roster))
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("GANG_%d", i+1)
		if _, exists := tx.snap.Gang(id); exists {
			continue
		}
		g := gang.New(id, gang.Roster[i])
		tx.snap.PutGang(g)
		tx.emit(events.EventTypeGangFormed, id, "", g.Name+" claims a corner of the yard", nil,
			events.MembershipPayload{GangID: id})
	}

	if e.cfg.WeaponsEnabled && len(tx.snap.Guards) == 0 {
		for i := 0; i < e.cfg.GuardCount; i++ {
			name := guard.Names[i%len(guard.Names)]
			if i >= len(guard.Names) {
				name = fmt.Sprintf("%s #%d", name, i/len(guard.Names)+1)
			}
			tx.snap.PutGuard(guard.New(
				fmt.Sprintf("GUARD_%d", i+1),
				name,
				random.Uniform(e.rng, 0, 100),
				random.Uniform(e.rng, guard.MinAlertness, guard.MaxAlertness),
			))
		}
	}

	e.logger.Info("simulation enabled", "gangs", count, "guards", len(tx.snap.Guards))
	return tx.commit()
}

// Reset discards every gang, member and guard. It is the only operation
// that destroys gangs.
func (e *Engine) Reset() Result {
	e.logger.Warn("simulation reset")
	return Result{Snapshot: registry.New()}
}

// Assign places a personality in a gang, creating its member status on first
// sight. An empty gangID makes the member independent.
func (e *Engine) Assign(s registry.Snapshot, personalityID, gangID string, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		if personalityID == "" {
			return preconditionf("empty personality id")
		}
		if gangID != "" {
			if _, ok := tx.snap.Gang(gangID); !ok {
				return unknown("gang", gangID)
			}
		}

		m, exists := tx.snap.Member(personalityID)
		if !exists {
			m = member.New(personalityID, float64(random.UniformInt(e.rng, 20, 70)), now)
		}
		if m.Killed {
			return preconditionf("%s is dead", personalityID)
		}
		if exists && m.GangID == gangID {
			return nil
		}

		oldGang := m.GangID
		if gangID == "" {
			m.Leave()
			tx.snap.PutMember(m)
		} else {
			rank := member.RankSoldier
			g, _ := tx.snap.Gang(gangID)
			if g.LeaderID == "" {
				rank = member.RankLeader
				g.LeaderID = personalityID
				tx.snap.PutGang(g)
			}
			m.Join(gangID, rank, now)
			tx.snap.PutMember(m)
			tx.emit(events.EventTypeMemberJoined, personalityID, "",
				fmt.Sprintf("%s joins %s as %s", personalityID, g.Name, rank), nil,
				events.MembershipPayload{GangID: gangID, Rank: string(rank)})
		}
		if oldGang != "" {
			tx.ensureLeader(oldGang)
		}
		return nil
	})
}

// ensureLeader hands leadership to the highest-respect active member when
// the current leader is gone. Ties go to the lowest id.
func (tx *txn) ensureLeader(gangID string) {
	g, ok := tx.snap.Gang(gangID)
	if !ok {
		return
	}
	if g.LeaderID != "" {
		if l, ok := tx.snap.Member(g.LeaderID); ok && l.GangID == gangID && !l.Killed {
			return
		}
	}

	next := ""
	var best float64
	for _, id := range tx.snap.GangMembers(gangID) {
		m := tx.snap.Members[id]
		if !m.Active() {
			continue
		}
		if next == "" || m.Respect > best {
			next, best = id, m.Respect
		}
	}

	previous := g.LeaderID
	g.LeaderID = next
	tx.snap.PutGang(g)
	if next == "" {
		return
	}
	m := tx.snap.Members[next]
	m.Rank = member.RankLeader
	tx.snap.PutMember(m)
	tx.emit(events.EventTypeLeaderChanged, next, previous,
		fmt.Sprintf("%s takes over %s", next, g.Name), nil,
		events.MembershipPayload{GangID: gangID, Rank: string(member.RankLeader)})
}

// leaveGang clears a member's affiliation and repairs leadership.
func (tx *txn) leaveGang(m member.Status, reason string) member.Status {
	gangID := m.GangID
	name := tx.gangName(gangID)
	m.Leave()
	tx.snap.PutMember(m)
	tx.emit(events.EventTypeLeftGang, m.ID, "",
		fmt.Sprintf("%s walks away from %s (%s)", m.ID, name, reason), nil,
		events.MembershipPayload{GangID: gangID, Rank: string(member.RankIndependent)})
	tx.ensureLeader(gangID)
	return tx.snap.Members[m.ID]
}
