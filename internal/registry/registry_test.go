package registry

import (
	"testing"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/gang"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/guard"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sample() Snapshot {
	s := New()
	s.Enabled = true
	s.PutGang(gang.New("G1", gang.Roster[0]))
	s.PutGang(gang.New("G2", gang.Roster[1]))
	m := member.New("alice", 50, now)
	m.Join("G1", member.RankLeader, now)
	m.Weapons = append(m.Weapons, weapon.New("w1", weapon.Catalog[weapon.KindShank][0], 80, weapon.SourceCrafted, now))
	s.PutMember(m)
	s.PutMember(member.New("bob", 30, now))
	s.PutGuard(guard.New("GUARD_1", "Officer Briggs", 60, 40))
	return s
}

func TestCloneIsDeep(t *testing.T) {
	s := sample()
	c := s.Clone()

	m := c.Members["alice"]
	m.Weapons[0].Durability = 1
	c.Members["alice"] = m
	g := c.Guards["GUARD_1"]
	g.Record(guard.BribeRecord{MemberID: "alice", Kind: weapon.KindGun})
	c.Guards["GUARD_1"] = g
	c.PushExchange("alice", "bob", Exchange{Friendly: 1})

	if s.Members["alice"].Weapons[0].Durability != 80 {
		t.Errorf("clone shares member weapons")
	}
	if len(s.Guards["GUARD_1"].History) != 0 {
		t.Errorf("clone shares guard history")
	}
	if len(s.Window("alice", "bob")) != 0 {
		t.Errorf("clone shares windows")
	}
}

func TestSortedIDs(t *testing.T) {
	s := sample()
	ids := s.MemberIDs()
	if len(ids) != 2 || ids[0] != "alice" || ids[1] != "bob" {
		t.Errorf("unexpected order: %v", ids)
	}
	if got := s.GangMembers("G1"); len(got) != 1 || got[0] != "alice" {
		t.Errorf("unexpected G1 members: %v", got)
	}
}

func TestWindowTrimsToSix(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.PushExchange("b", "a", Exchange{Hostile: i})
	}
	w := s.Window("a", "b")
	if len(w) != WindowSize {
		t.Fatalf("expected %d exchanges, got %d", WindowSize, len(w))
	}
	if w[0].Hostile != 4 || w[5].Hostile != 9 {
		t.Errorf("expected the newest exchanges kept, got %+v", w)
	}
}

func TestFriendlyFraction(t *testing.T) {
	w := []Exchange{{Hostile: 1}, {Friendly: 3}}
	if got := FriendlyFraction(w); got != 0.75 {
		t.Errorf("expected 0.75, got %v", got)
	}
	if FriendlyFraction(nil) != 0 {
		t.Errorf("empty window should yield 0")
	}
}

func TestWeaponOwner(t *testing.T) {
	s := sample()
	if owner, ok := s.WeaponOwner("w1"); !ok || owner != "alice" {
		t.Errorf("expected alice to own w1, got %q %v", owner, ok)
	}
	if _, ok := s.WeaponOwner("missing"); ok {
		t.Errorf("unexpected owner for missing weapon")
	}
}

func TestWeaponsByOwner(t *testing.T) {
	s := sample()
	armed := s.Weapons()
	if len(armed) != 1 || len(armed["alice"]) != 1 || armed["alice"][0].ID != "w1" {
		t.Fatalf("expected only alice armed with w1, got %+v", armed)
	}
	armed["alice"][0].Durability = 1
	if s.Members["alice"].Weapons[0].Durability != 80 {
		t.Errorf("Weapons must return copies")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := sample()
	s.Version = 7
	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Version != 7 || !got.Enabled || len(got.Gangs) != 2 || len(got.Guards) != 1 {
		t.Errorf("unexpected snapshot after round trip: %s", got.Summary())
	}
	if got.Members["alice"].Weapons[0].ID != "w1" {
		t.Errorf("weapon lost in round trip")
	}
}

func TestUnmarshalFillsMaps(t *testing.T) {
	got, err := Unmarshal([]byte(`{"version":1}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got.PushExchange("a", "b", Exchange{})
	got.PutMember(member.New("x", 10, now))
}
