package member

import (
	"testing"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
)

func TestKillClearsPossessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := New("M1", 40, now)
	m.Join("G1", RankSoldier, now)
	m.CarriedDrugs = 30
	m.Weapons = append(m.Weapons, weapon.New("w1", weapon.Catalog[weapon.KindShank][0], 100, weapon.SourceCrafted, now))
	m.Imprison(now, time.Minute)

	m.Kill(now)

	if !m.Killed || m.Armed() || m.CarriedDrugs != 0 {
		t.Errorf("expected killed member with no possessions, got %+v", m)
	}
	if m.GangID != "G1" {
		t.Errorf("killed member keeps affiliation for history, got %q", m.GangID)
	}
	if m.Active() {
		t.Errorf("killed member must not be active")
	}
}

func TestImprisonAndRelease(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := New("M1", 40, now)
	m.Imprison(now, 5*time.Minute)
	if m.Active() || !m.ReleaseAt.Equal(now.Add(5*time.Minute)) {
		t.Fatalf("unexpected solitary state: %+v", m)
	}
	m.Release()
	if !m.Active() {
		t.Errorf("expected member active after release")
	}
}

func TestCloneCopiesWeapons(t *testing.T) {
	now := time.Now()
	m := New("M1", 40, now)
	m.Weapons = append(m.Weapons, weapon.New("w1", weapon.Catalog[weapon.KindGun][0], 100, weapon.SourceBribed, now))
	c := m.Clone()
	c.Weapons[0].Durability = 1
	if m.Weapons[0].Durability != 100 {
		t.Errorf("clone shares weapon slice")
	}
}
