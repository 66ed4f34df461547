package engine

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
)

func TestAdvanceTickZeroElapsedIsNoop(t *testing.T) {
	e, src := newScripted()
	s := yard()
	addMember(&s, "A", "G1", 50, member.RankLeader)

	res := e.AdvanceTick(s, 0, now)
	if !res.OK() || !reflect.DeepEqual(res.Snapshot, s) || len(res.Events) != 0 {
		t.Errorf("expected the input snapshot back unchanged")
	}
	if src.Consumed() != 0 {
		t.Errorf("a zero tick must not roll")
	}
}

func TestDisloyalMemberLeaves(t *testing.T) {
	// the departure roll lands under 10%
	e, _ := newScripted(0.05)
	s := yard()
	m := addMember(&s, "M", "G1", 50, member.RankLeader)
	m.Loyalty = 15
	s.PutMember(m)

	res := e.AdvanceTick(s, e.cfg.IntervalUnit, now)
	got := res.Snapshot.Members["M"]
	if got.Affiliated() || got.Rank != member.RankIndependent {
		t.Fatalf("expected M to go independent, got %+v", got)
	}
	if got.Loyalty != 14.5 {
		t.Errorf("expected one interval of decay, got loyalty %v", got.Loyalty)
	}
	if !hasEvent(res.Events, events.EventTypeLeftGang) {
		t.Errorf("missing left_gang event")
	}
	if res.Snapshot.Gangs["G1"].LeaderID != "" {
		t.Errorf("expected G1 without a leader")
	}
}

func TestDisloyalMemberStaysWhenIndependentsDisallowed(t *testing.T) {
	e, _ := newScripted(0.0)
	e.cfg.IndependentAllowed = false
	s := yard()
	m := addMember(&s, "M", "G1", 50, member.RankLeader)
	m.Loyalty = 5
	s.PutMember(m)

	res := e.AdvanceTick(s, e.cfg.IntervalUnit, now)
	if !res.Snapshot.Members["M"].Affiliated() {
		t.Errorf("member left although independents are not allowed")
	}
}

func TestGangDrift(t *testing.T) {
	e, _ := newScripted()
	s := yard()
	rich := s.Gangs["G1"]
	rich.TerritoryControl = 100
	rich.Resources = 80
	s.PutGang(rich)
	poor := s.Gangs["G2"]
	poor.TerritoryControl = 0
	poor.Resources = 20
	s.PutGang(poor)

	res := e.AdvanceTick(s, 2*e.cfg.IntervalUnit, now)
	g1, g2 := res.Snapshot.Gangs["G1"], res.Snapshot.Gangs["G2"]
	if g1.Resources != 82 || g1.Reputation != 51 {
		t.Errorf("expected rich gang at 82 resources / 51 reputation, got %v / %v", g1.Resources, g1.Reputation)
	}
	if g2.Resources != 18 || g2.Reputation != 49 {
		t.Errorf("expected poor gang at 18 resources / 49 reputation, got %v / %v", g2.Resources, g2.Reputation)
	}
}

func TestSolitaryRelease(t *testing.T) {
	e, _ := newScripted()
	s := yard()
	m := addMember(&s, "M", "", 50, "")
	m.Imprison(now.Add(-time.Hour), time.Minute)
	s.PutMember(m)
	still := addMember(&s, "N", "", 50, "")
	still.Imprison(now, time.Hour)
	s.PutMember(still)

	res := e.AdvanceTick(s, time.Second, now)
	if res.Snapshot.Members["M"].Imprisoned {
		t.Errorf("expected M released")
	}
	if !res.Snapshot.Members["N"].Imprisoned {
		t.Errorf("N's sentence has not elapsed")
	}
	if !hasEvent(res.Events, events.EventTypeSolitaryRelease) {
		t.Errorf("missing release event")
	}
}

func TestPromotionAndTendency(t *testing.T) {
	e, _ := newScripted()
	s := yard()
	r := addMember(&s, "R", "G1", 30, member.RankRecruit)
	r.Respect = 65
	s.PutMember(r)
	so := addMember(&s, "S", "G1", 70, member.RankSoldier)
	so.Respect = 85
	s.PutMember(so)

	res := e.AdvanceTick(s, time.Second, now)
	if got := res.Snapshot.Members["R"].Rank; got != member.RankSoldier {
		t.Errorf("expected recruit promoted to soldier, got %s", got)
	}
	if got := res.Snapshot.Members["S"].Rank; got != member.RankLeader {
		t.Errorf("expected the leaderless gang to crown S, got %s", got)
	}
	if got := res.Snapshot.Gangs["G1"].ViolenceTendency; got != 50 {
		t.Errorf("expected tendency 50, got %v", got)
	}
}

func TestAmbientViolence(t *testing.T) {
	// ambient roll, attacker pick, target pick, hit roll
	e, _ := newScripted(0.0, 0.0, 0.0, 0.0)
	s := yard()
	addMember(&s, "A", "G1", 50, member.RankLeader)
	addMember(&s, "B", "G2", 50, member.RankLeader)

	res := e.AdvanceTick(s, time.Second, now)
	if !hasEvent(res.Events, events.EventTypeViolenceHit) {
		t.Errorf("expected ambient violence, got %+v", res.Events)
	}
}

func TestContextFor(t *testing.T) {
	e, _ := newScripted()
	s := yard()
	m := addMember(&s, "M", "G1", 50, member.RankSoldier)
	m.CarriedDrugs = 15
	m.Imprison(now, 5*time.Minute)
	s.PutMember(m)

	text, ok := e.ContextFor(s, "M", now)
	if !ok {
		t.Fatalf("expected context for M")
	}
	for _, want := range []string{"Los Carniceros", "rank: soldier", "Territory: 20%", "Rival gangs: Iron Brotherhood", "carrying 15g", "Death: enabled", "solitary"} {
		if !strings.Contains(text, want) {
			t.Errorf("context missing %q:\n%s", want, text)
		}
	}
	if _, ok := e.ContextFor(s, "nobody", now); ok {
		t.Errorf("unexpected context for unknown member")
	}
}

func TestForceReleaseAndLeave(t *testing.T) {
	e, _ := newScripted()
	s := yard()
	m := addMember(&s, "M", "G1", 50, member.RankLeader)
	m.Imprison(now, time.Hour)
	s.PutMember(m)

	res := e.ForceRelease(s, "M", now)
	if res.Snapshot.Members["M"].Imprisoned {
		t.Fatalf("expected release")
	}
	expectFailure(t, e.ForceRelease(res.Snapshot, "M", now), res.Snapshot, FailurePrecondition)

	res = e.ForceLeave(res.Snapshot, "M", now)
	if res.Snapshot.Members["M"].Affiliated() {
		t.Fatalf("expected M out of the gang")
	}
	expectFailure(t, e.ForceLeave(res.Snapshot, "M", now), res.Snapshot, FailurePrecondition)
}
