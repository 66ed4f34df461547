// Package rules contains the pure probability formulas of the yard.
// This package is PURE and must NOT import any infrastructure packages.
// Every function returns a value already clamped to [0, 1]; rolling is the
// engine's job.
package rules

// MaxHitChance caps the violence success chance before the final clamp.
const MaxHitChance = 0.95

// ViolenceParams are the inputs of a single attack.
type ViolenceParams struct {
	AttackerViolence float64 // 0-100
	GangViolence     float64 // 0-100, 0 when the attacker is independent
	WeaponBonus      float64 // 0 when unarmed
}

// ViolenceChance computes the hit chance: 50% base, up to +20% from the
// attacker's violence stat, up to +15% from gang affiliation, plus the
// weapon bonus, capped at 95%.
func ViolenceChance(p ViolenceParams) float64 {
	chance := 0.50 +
		p.AttackerViolence/100*0.20 +
		p.GangViolence/100*0.15 +
		p.WeaponBonus
	if chance > MaxHitChance {
		chance = MaxHitChance
	}
	return Clamp01(chance)
}

// DeathChance scales the base death chance by the weapon multiplier.
// Unarmed attacks use a multiplier of 1.
func DeathChance(base, multiplier float64) float64 {
	if multiplier <= 0 {
		multiplier = 1
	}
	return Clamp01(base * multiplier)
}

// BribeParams are the inputs of a bribe attempt.
type BribeParams struct {
	Corruptibility float64 // 0-100
	Alertness      float64 // 30-80
	Respect        float64 // 0-100
	GangReputation float64 // 0-100
}

// BribeChance: corruptibility, minus up to 30% for alertness, plus up to 20%
// for respect and up to 15% for the gang's reputation.
func BribeChance(p BribeParams) float64 {
	return Clamp01(p.Corruptibility/100 -
		p.Alertness/100*0.30 +
		p.Respect/100*0.20 +
		p.GangReputation/100*0.15)
}

// MaxExperienceBonus bounds how much smuggling experience lowers risk.
const MaxExperienceBonus = 0.10

// ExperienceBonus grows 2% per successful run up to MaxExperienceBonus.
func ExperienceBonus(successfulRuns int) float64 {
	b := float64(successfulRuns) * 0.02
	if b > MaxExperienceBonus {
		return MaxExperienceBonus
	}
	if b < 0 {
		return 0
	}
	return b
}

// SmuggleRisk is base + alertness - experience.
func SmuggleRisk(base, alertness, experience float64) float64 {
	return Clamp01(base + alertness - experience)
}

// DealRisk is base + alertness.
func DealRisk(base, alertness float64) float64 {
	return Clamp01(base + alertness)
}

// CraftChance ranges from 50% (violence 0) to 90% (violence 100).
func CraftChance(violence float64) float64 {
	return Clamp01(0.50 + violence/100*0.40)
}

// RecruitParams are the inputs of a recruitment roll.
type RecruitParams struct {
	FriendlyFraction float64 // 0-1 over the recent window
	Affinity         float64 // 0-1, 0 when untracked
	GangReputation   float64 // 0-100
	Intensity        float64 // 0-1
}

// RecruitProbability: 10% base, +30% friendly fraction, +20% affinity,
// +20% gang reputation, +15% environment intensity.
func RecruitProbability(p RecruitParams) float64 {
	return Clamp01(0.10 +
		p.FriendlyFraction*0.30 +
		p.Affinity*0.20 +
		p.GangReputation/100*0.20 +
		p.Intensity*0.15)
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
