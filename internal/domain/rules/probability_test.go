package rules

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestViolenceChanceBaseline(t *testing.T) {
	if got := ViolenceChance(ViolenceParams{}); got != 0.5 {
		t.Errorf("expected exactly 0.5 for an unarmed zero-stat attacker, got %v", got)
	}
}

func TestViolenceChanceComposition(t *testing.T) {
	tests := []struct {
		name string
		p    ViolenceParams
		want float64
	}{
		{"stat only", ViolenceParams{AttackerViolence: 100}, 0.70},
		{"gang only", ViolenceParams{GangViolence: 100}, 0.65},
		{"shank", ViolenceParams{WeaponBonus: 0.15}, 0.65},
		{"capped", ViolenceParams{AttackerViolence: 100, GangViolence: 100, WeaponBonus: 0.27}, MaxHitChance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ViolenceChance(tt.p); !near(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBribeChanceClampsAtOne(t *testing.T) {
	got := BribeChance(BribeParams{Corruptibility: 90, Alertness: 30, Respect: 100, GangReputation: 100})
	if got != 1 {
		t.Errorf("expected clamped 1.0, got %v", got)
	}
}

func TestBribeChanceHonestGuard(t *testing.T) {
	got := BribeChance(BribeParams{Corruptibility: 10, Alertness: 80, Respect: 0, GangReputation: 0})
	if got != 0 {
		t.Errorf("expected clamped 0, got %v", got)
	}
}

func TestSmuggleRiskWithExperience(t *testing.T) {
	got := SmuggleRisk(0.15, 0, ExperienceBonus(5))
	if !near(got, 0.05) {
		t.Errorf("expected 0.05, got %v", got)
	}
	if ExperienceBonus(50) != MaxExperienceBonus {
		t.Errorf("experience bonus must cap at %v", MaxExperienceBonus)
	}
}

func TestDeathChanceUnarmed(t *testing.T) {
	if got := DeathChance(0.05, 0); got != 0.05 {
		t.Errorf("unarmed death chance should be the base, got %v", got)
	}
	if got := DeathChance(0.05, 3.7); !near(got, 0.185) {
		t.Errorf("gun death chance should be 0.185, got %v", got)
	}
}

func TestCraftChanceRange(t *testing.T) {
	if CraftChance(0) != 0.5 || !near(CraftChance(100), 0.9) {
		t.Errorf("craft chance out of documented range: %v..%v", CraftChance(0), CraftChance(100))
	}
}

func TestRecruitProbability(t *testing.T) {
	got := RecruitProbability(RecruitParams{FriendlyFraction: 1, Affinity: 1, GangReputation: 100, Intensity: 1})
	if got != 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
	if got := RecruitProbability(RecruitParams{}); got != 0.1 {
		t.Errorf("expected base 0.1, got %v", got)
	}
}
