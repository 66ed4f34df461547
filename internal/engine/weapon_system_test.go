package engine

import (
	"testing"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/guard"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

func bribeYard(corruptibility, alertness, respect, reputation float64) registry.Snapshot {
	s := yard()
	s.PutGuard(guard.New("GUARD_1", "Officer Briggs", corruptibility, alertness))
	m := addMember(&s, "M", "G1", 50, member.RankSoldier)
	m.Respect = respect
	s.PutMember(m)
	g := s.Gangs["G1"]
	g.Reputation = reputation
	s.PutGang(g)
	return s
}

func TestBribeAlwaysSucceedsWithCorruptGuard(t *testing.T) {
	s := bribeYard(90, 30, 100, 100)
	// the success roll is the worst possible one, the variant roll picks the first entry
	e, _ := newScripted(0.999, 0.0)

	res := e.Bribe(s, "M", weapon.KindGun, "GUARD_1", now)
	if !res.OK() || !hasEvent(res.Events, events.EventTypeWeaponBribed) {
		t.Fatalf("expected a successful bribe, got %v %+v", res.Failure, res.Events)
	}
	p := res.Events[0].Payload.(events.WeaponPayload)
	if p.Chance != 1 {
		t.Errorf("expected clamped chance 1, got %v", p.Chance)
	}
	m := res.Snapshot.Members["M"]
	if len(m.Weapons) != 1 || m.Weapons[0].Name != "9mm Pistol" || m.Weapons[0].Durability != 100 || m.Weapons[0].Source != weapon.SourceBribed {
		t.Errorf("unexpected weapon: %+v", m.Weapons)
	}
	if m.BribeAttempts != 1 || m.BribeSuccesses != 1 || m.Respect != 100 {
		t.Errorf("unexpected counters: %+v", m)
	}
	if g := res.Snapshot.Gangs["G1"]; g.Resources != 20 || len(g.Items) != 1 {
		t.Errorf("expected 30 resources spent and a gun item, got %+v", g)
	}
	if h := res.Snapshot.Guards["GUARD_1"].History; len(h) != 1 || !h[0].Success || h[0].MemberID != "M" {
		t.Errorf("unexpected guard history: %+v", h)
	}

	again := e.Bribe(res.Snapshot, "M", weapon.KindShank, "GUARD_1", now.Add(10*time.Second))
	expectFailure(t, again, res.Snapshot, FailurePrecondition)

	later := e.Bribe(res.Snapshot, "M", weapon.KindShank, "GUARD_1", now.Add(e.cfg.BribeCooldown))
	if !later.OK() {
		t.Errorf("expected bribe allowed once the cooldown passed: %v", later.Failure)
	}
}

func TestBribeCaughtCostsNothing(t *testing.T) {
	s := bribeYard(0, 80, 0, 0)
	e, _ := newScripted(0.0, 0.1)

	res := e.Bribe(s, "M", weapon.KindGun, "GUARD_1", now)
	if !hasEvent(res.Events, events.EventTypeBribeCaught) {
		t.Fatalf("expected the guard to report the bribe, got %+v", res.Events)
	}
	m := res.Snapshot.Members["M"]
	if !m.Imprisoned || !m.ReleaseAt.Equal(now.Add(e.cfg.BribeSentence)) {
		t.Errorf("expected a bribery sentence, got %+v", m)
	}
	if res.Snapshot.Gangs["G1"].Resources != 50 {
		t.Errorf("a caught bribe must not cost resources")
	}
	if h := res.Snapshot.Guards["GUARD_1"].History; len(h) != 1 || h[0].Success {
		t.Errorf("expected a failed history entry, got %+v", h)
	}
}

func TestBribeFailedLosesHalf(t *testing.T) {
	s := bribeYard(0, 30, 0, 0)
	e, _ := newScripted(0.0, 0.9)

	res := e.Bribe(s, "M", weapon.KindChain, "GUARD_1", now)
	if !hasEvent(res.Events, events.EventTypeBribeFailed) {
		t.Fatalf("expected a failed bribe, got %+v", res.Events)
	}
	if got := res.Snapshot.Gangs["G1"].Resources; got != 42.5 {
		t.Errorf("expected half of 15 lost, got %v", got)
	}
	if res.Snapshot.Members["M"].Imprisoned {
		t.Errorf("undetected bribe must not imprison")
	}
}

func TestBribePreconditions(t *testing.T) {
	e, _ := newScripted()
	s := bribeYard(50, 50, 50, 50)
	g := s.Gangs["G1"]
	g.Resources = 10
	s.PutGang(g)

	expectFailure(t, e.Bribe(s, "M", weapon.KindGun, "GUARD_1", now), s, FailurePrecondition)
	expectFailure(t, e.Bribe(s, "M", weapon.KindShank, "GUARD_9", now), s, FailureUnknownReference)
	expectFailure(t, e.Bribe(s, "M", weapon.Kind("bazooka"), "", now), s, FailurePrecondition)

	e.cfg.WeaponsEnabled = false
	expectFailure(t, e.Bribe(s, "M", weapon.KindShank, "", now), s, FailureDisabled)
}

func TestBribePicksRandomGuard(t *testing.T) {
	s := bribeYard(90, 30, 100, 100)
	s.PutGuard(guard.New("GUARD_2", "Officer Vance", 90, 30))
	e, _ := newScripted(0.9, 0.0, 0.0)

	res := e.Bribe(s, "M", weapon.KindShank, "", now)
	if h := res.Snapshot.Guards["GUARD_2"].History; len(h) != 1 {
		t.Errorf("expected GUARD_2 to be picked, got history %+v", h)
	}
}

func TestCraft(t *testing.T) {
	e, _ := newScripted(0.1, 0.0)
	s := yard()
	addMember(&s, "M", "G1", 50, member.RankSoldier)

	res := e.Craft(s, "M", weapon.KindShank, now)
	if !hasEvent(res.Events, events.EventTypeWeaponCrafted) {
		t.Fatalf("expected a crafted weapon, got %+v", res.Events)
	}
	m := res.Snapshot.Members["M"]
	if len(m.Weapons) != 1 || m.Weapons[0].Durability != weapon.CraftedDurability || m.Weapons[0].Source != weapon.SourceCrafted {
		t.Errorf("unexpected crafted weapon: %+v", m.Weapons)
	}
	if m.Respect != 42 {
		t.Errorf("expected respect 42, got %v", m.Respect)
	}

	expectFailure(t, e.Craft(s, "M", weapon.KindGun, now), s, FailurePrecondition)
}

func TestCraftFailureIsNotAFailure(t *testing.T) {
	e, _ := newScripted(0.95)
	s := yard()
	addMember(&s, "M", "", 100, "")

	res := e.Craft(s, "M", weapon.KindChain, now)
	if !res.OK() || !hasEvent(res.Events, events.EventTypeCraftFailed) {
		t.Errorf("expected a recorded craft failure, got %v %+v", res.Failure, res.Events)
	}
	if res.Snapshot.Members["M"].Armed() {
		t.Errorf("failed craft produced a weapon")
	}
}

func TestStealCommand(t *testing.T) {
	e, src := newScripted()
	s := yard()
	addMember(&s, "A", "", 0, "")
	addMember(&s, "V", "", 0, "")

	expectFailure(t, e.Steal(s, "A", "V", now), s, FailurePrecondition)

	arm(&s, "V", "v-chain", weapon.KindChain, 70)
	arm(&s, "V", "v-shank", weapon.KindShank, 90)
	res := e.Steal(s, "A", "V", now)
	if !res.OK() {
		t.Fatalf("steal failed: %v", res.Failure)
	}
	a, v := res.Snapshot.Members["A"], res.Snapshot.Members["V"]
	if len(a.Weapons) != 1 || a.Weapons[0].ID != "v-chain" || len(v.Weapons) != 1 {
		t.Errorf("expected the chain (best weapon) to move, got attacker %+v victim %+v", a.Weapons, v.Weapons)
	}
	if src.Consumed() != 0 {
		t.Errorf("commanded steal must not roll")
	}
	checkInvariants(t, res.Snapshot)
}
