package engine

import (
	"testing"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
)

func TestUnarmedBaselineHitsOnLowRoll(t *testing.T) {
	e, _ := newScripted(0.4)
	s := yard()
	addMember(&s, "A", "", 0, "")
	addMember(&s, "T", "", 50, "")

	res := e.ResolveViolence(s, "A", "T", now)
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Failure)
	}
	if res.Events[0].Type != events.EventTypeViolenceHit {
		t.Fatalf("expected a hit, got %s", res.Events[0].Type)
	}
	if p := res.Events[0].Payload.(events.ViolencePayload); p.Chance != 0.5 {
		t.Errorf("expected chance exactly 0.5, got %v", p.Chance)
	}
	a, tg := res.Snapshot.Members["A"], res.Snapshot.Members["T"]
	if a.Respect != 50 || tg.Respect != 25 || a.Hits != 1 {
		t.Errorf("unexpected deltas: attacker respect %v hits %d, target respect %v", a.Respect, a.Hits, tg.Respect)
	}
	if s.Members["A"].Respect != 40 {
		t.Errorf("input snapshot mutated")
	}
}

func TestUnarmedBaselineMissesOnHighRoll(t *testing.T) {
	e, _ := newScripted(0.6)
	s := yard()
	addMember(&s, "A", "", 0, "")
	addMember(&s, "T", "", 50, "")

	res := e.ResolveViolence(s, "A", "T", now)
	if len(res.Events) != 1 || res.Events[0].Type != events.EventTypeViolenceMiss {
		t.Fatalf("expected a single miss, got %+v", res.Events)
	}
	if a, tg := res.Snapshot.Members["A"], res.Snapshot.Members["T"]; a.Respect != 35 || tg.Respect != 45 {
		t.Errorf("expected 35/45 respect after a miss, got %v/%v", a.Respect, tg.Respect)
	}
}

func TestGangBonusAddsToChance(t *testing.T) {
	e, _ := newScripted(0.99)
	s := yard()
	g := s.Gangs["G1"]
	g.ViolenceTendency = 100
	s.PutGang(g)
	addMember(&s, "A", "G1", 0, member.RankSoldier)
	addMember(&s, "T", "", 0, "")

	res := e.ResolveViolence(s, "A", "T", now)
	if p := res.Events[0].Payload.(events.ViolencePayload); !near(p.Chance, 0.65) {
		t.Errorf("expected chance 0.65, got %v", p.Chance)
	}
}

func TestTerritoryShiftsBetweenRivalGangs(t *testing.T) {
	e, _ := newScripted(0.0)
	s := yard()
	addMember(&s, "A", "G1", 0, member.RankSoldier)
	addMember(&s, "T", "G2", 0, member.RankSoldier)

	res := e.ResolveViolence(s, "A", "T", now)
	if !hasEvent(res.Events, events.EventTypeTerritoryShift) {
		t.Fatalf("expected territory shift, got %+v", res.Events)
	}
	if g1, g2 := res.Snapshot.Gangs["G1"], res.Snapshot.Gangs["G2"]; g1.TerritoryControl != 25 || g2.TerritoryControl != 15 {
		t.Errorf("expected 25/15 territory, got %v/%v", g1.TerritoryControl, g2.TerritoryControl)
	}
}

func TestTerritoryDisabled(t *testing.T) {
	e, _ := newScripted(0.0)
	e.cfg.TerritoryWars = false
	s := yard()
	addMember(&s, "A", "G1", 0, member.RankSoldier)
	addMember(&s, "T", "G2", 0, member.RankSoldier)

	res := e.ResolveViolence(s, "A", "T", now)
	if res.Snapshot.Gangs["G1"].TerritoryControl != 20 {
		t.Errorf("territory moved with territory wars disabled")
	}
}

func TestThirdHitCanSendAttackerToSolitary(t *testing.T) {
	e, _ := newScripted(0.0, 0.5)
	s := yard()
	a := addMember(&s, "A", "", 0, "")
	a.Hits = 2
	s.PutMember(a)
	addMember(&s, "T", "", 0, "")

	res := e.ResolveViolence(s, "A", "T", now)
	got := res.Snapshot.Members["A"]
	if !got.Imprisoned || !got.ReleaseAt.Equal(now.Add(e.cfg.SolitaryDuration)) {
		t.Fatalf("expected attacker in solitary until %v, got %+v", now.Add(e.cfg.SolitaryDuration), got)
	}
	if !hasEvent(res.Events, events.EventTypeSolitarySentence) {
		t.Errorf("missing solitary event")
	}

	again := e.ResolveViolence(res.Snapshot, "A", "T", now)
	expectFailure(t, again, res.Snapshot, FailurePrecondition)
}

func TestFifthHitCanKill(t *testing.T) {
	// hit, solitary roll fails, death roll lands under 5%
	e, _ := newScripted(0.0, 0.9, 0.01)
	s := yard()
	a := addMember(&s, "A", "G1", 0, member.RankSoldier)
	a.Hits = 4
	s.PutMember(a)
	addMember(&s, "T", "G2", 0, member.RankLeader)
	heir := addMember(&s, "U", "G2", 0, member.RankSoldier)
	heir.Respect = 90
	s.PutMember(heir)
	arm(&s, "T", "t-shank", weapon.KindShank, 100)
	tgt := s.Members["T"]
	tgt.CarriedDrugs = 12
	s.PutMember(tgt)

	res := e.ResolveViolence(s, "A", "T", now)
	dead := res.Snapshot.Members["T"]
	if !dead.Killed || dead.Armed() || dead.CarriedDrugs != 0 {
		t.Fatalf("expected T dead with nothing on them, got %+v", dead)
	}
	if dead.GangID != "G2" {
		t.Errorf("dead member keeps affiliation for history")
	}
	if !hasEvent(res.Events, events.EventTypeDeath) || !hasEvent(res.Events, events.EventTypeLeaderChanged) {
		t.Errorf("expected death and leader change events, got %+v", res.Events)
	}
	if got := res.Snapshot.Gangs["G2"].LeaderID; got != "U" {
		t.Errorf("expected U to succeed, got %q", got)
	}
	checkInvariants(t, res.Snapshot)

	after := res.Snapshot
	expectFailure(t, e.Deal(after, "T", now), after, FailurePrecondition)
	expectFailure(t, e.ResolveViolence(after, "A", "T", now), after, FailurePrecondition)
	expectFailure(t, e.ForceLeave(after, "T", now), after, FailurePrecondition)
	expectFailure(t, e.Assign(after, "T", "G1", now), after, FailurePrecondition)
}

func TestDeathUsesKindMultiplier(t *testing.T) {
	// hit, solitary roll fails, death roll 0.17: under 0.05*3.7, over the Zip Gun's own 0.05*3.2
	e, _ := newScripted(0.0, 0.9, 0.17)
	s := yard()
	a := addMember(&s, "A", "", 0, "")
	a.Hits = 4
	a.Weapons = append(a.Weapons, weapon.New("a-zip", weapon.Catalog[weapon.KindGun][1], 100, weapon.SourceBribed, now))
	s.PutMember(a)
	addMember(&s, "T", "", 0, "")

	res := e.ResolveViolence(s, "A", "T", now)
	if !res.Snapshot.Members["T"].Killed {
		t.Fatalf("expected the gun multiplier 3.7 to kill, got events %+v", res.Events)
	}
	checkInvariants(t, res.Snapshot)
}

func TestDeathDisabled(t *testing.T) {
	e, _ := newScripted(0.0, 0.9, 0.0)
	e.cfg.DeathEnabled = false
	s := yard()
	a := addMember(&s, "A", "", 0, "")
	a.Hits = 9
	s.PutMember(a)
	addMember(&s, "T", "", 0, "")

	res := e.ResolveViolence(s, "A", "T", now)
	if res.Snapshot.Members["T"].Killed {
		t.Errorf("death is disabled")
	}
}

func TestArmedHitStealsAndWears(t *testing.T) {
	// hit, steal roll under 40%, minimum wear
	e, _ := newScripted(0.1, 0.1, 0.0)
	s := yard()
	addMember(&s, "A", "", 0, "")
	addMember(&s, "T", "", 0, "")
	arm(&s, "A", "a-gun", weapon.KindGun, 100)
	arm(&s, "T", "t-shank", weapon.KindShank, 80)

	res := e.ResolveViolence(s, "A", "T", now)
	a, tg := res.Snapshot.Members["A"], res.Snapshot.Members["T"]
	if len(a.Weapons) != 2 || tg.Armed() {
		t.Fatalf("expected the shank to change hands, attacker %d weapons, target armed=%v", len(a.Weapons), tg.Armed())
	}
	if a.Respect != 40+15+8 {
		t.Errorf("expected armed hit + theft respect 63, got %v", a.Respect)
	}
	if a.WeaponsStolen != 1 || tg.WeaponsLost != 1 {
		t.Errorf("theft counters not updated")
	}
	for _, w := range a.Weapons {
		switch w.ID {
		case "a-gun":
			if w.Durability != 95 {
				t.Errorf("expected gun durability 95, got %d", w.Durability)
			}
		case "t-shank":
			if w.Source != weapon.SourceStolen {
				t.Errorf("expected stolen source, got %s", w.Source)
			}
		}
	}
	checkInvariants(t, res.Snapshot)
}

func TestWeaponBreaksOnLastUse(t *testing.T) {
	// miss, maximum wear
	e, _ := newScripted(0.9, 0.999)
	s := yard()
	addMember(&s, "A", "", 0, "")
	addMember(&s, "T", "", 0, "")
	arm(&s, "A", "a-gun", weapon.KindGun, 10)

	res := e.ResolveViolence(s, "A", "T", now)
	if res.Snapshot.Members["A"].Armed() {
		t.Fatalf("expected broken weapon removed in the same update")
	}
	if !hasEvent(res.Events, events.EventTypeWeaponBroken) {
		t.Errorf("missing weapon_broken event")
	}
}

func TestViolenceUnknownMember(t *testing.T) {
	e, _ := newScripted()
	s := yard()
	addMember(&s, "A", "", 0, "")
	expectFailure(t, e.ResolveViolence(s, "A", "ghost", now), s, FailureUnknownReference)
	expectFailure(t, e.ResolveViolence(s, "A", "A", now), s, FailurePrecondition)
}
