package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/rules"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/config"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

const (
	smuggleMinGrams       = 10
	smuggleMaxGrams       = 50
	smuggleAlertnessMax   = 0.30
	smuggleSolitaryChance = 0.60
	seizureReputationLoss = 10
	smuggleReputationGain = 2

	dealMinGrams       = 5
	dealMaxGrams       = 25
	dealAlertnessMax   = 0.20
	dealMinPrice       = 20
	dealMaxPrice       = 50
	dealSolitaryChance = 0.30
	dealRespectGain    = 3
	dealReputationGain = 1
)

// DrugSystem resolves smuggling and dealing.
type DrugSystem struct {
	cfg    *config.Simulation
	rng    random.Source
	logger *logger.Logger
}

// Smuggle brings a random amount of drugs into the yard for the member's gang.
func (e *Engine) Smuggle(s registry.Snapshot, memberID string, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		if !e.cfg.DrugsEnabled {
			return disabled("drugs")
		}
		return e.drugs.smuggle(tx, memberID)
	})
}

// Deal sells part of the member's carried drugs.
func (e *Engine) Deal(s registry.Snapshot, memberID string, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		if !e.cfg.DrugsEnabled {
			return disabled("drugs")
		}
		return e.drugs.deal(tx, memberID)
	})
}

func (ds *DrugSystem) smuggle(tx *txn, memberID string) *Failure {
	m, f := tx.activeMember(memberID)
	if f != nil {
		return f
	}
	g, f := tx.gangOf(m)
	if f != nil {
		return f
	}

	amount := float64(random.UniformInt(ds.rng, smuggleMinGrams, smuggleMaxGrams))
	alertness := random.Uniform(ds.rng, 0, smuggleAlertnessMax)
	risk := rules.SmuggleRisk(ds.cfg.SmuggleBaseRisk, alertness, rules.ExperienceBonus(m.SmuggleRuns))
	payload := events.DrugPayload{GangID: g.ID, Grams: amount, Risk: risk}

	if random.Chance(ds.rng, risk) {
		m.DrugsCaught += amount
		g.Reputation -= seizureReputationLoss
		payload.Caught = true
		tx.snap.PutGang(g)
		tx.snap.PutMember(m)
		tx.emit(events.EventTypeDrugSeized, memberID, "",
			fmt.Sprintf("guards seize %.0fg smuggled by %s", amount, memberID),
			map[string]float64{g.ID + ".reputation": -seizureReputationLoss}, payload)

		if ds.cfg.SolitaryEnabled && random.Chance(ds.rng, smuggleSolitaryChance) {
			m.Imprison(tx.now, ds.cfg.SmuggleSentence)
			m.Extensions++
			tx.snap.PutMember(m)
			tx.emit(events.EventTypeSolitarySentence, memberID, "",
				fmt.Sprintf("%s gets solitary for smuggling", memberID), nil,
				events.SentencePayload{ReleaseAt: m.ReleaseAt, Reason: "smuggling"})
		}
		return nil
	}

	m.CarriedDrugs += amount
	m.DrugsSmuggled += amount
	m.SmuggleRuns++
	g.DrugStash += amount
	g.Reputation += smuggleReputationGain
	tx.snap.PutGang(g)
	tx.snap.PutMember(m)
	tx.emit(events.EventTypeDrugSmuggled, memberID, "",
		fmt.Sprintf("%s smuggles %.0fg in for %s", memberID, amount, g.Name),
		map[string]float64{memberID + ".carried": amount, g.ID + ".stash": amount}, payload)
	return nil
}

func (ds *DrugSystem) deal(tx *txn, memberID string) *Failure {
	m, f := tx.activeMember(memberID)
	if f != nil {
		return f
	}
	if m.CarriedDrugs <= 0 {
		return preconditionf("%s has no drugs to deal", memberID)
	}
	g, f := tx.gangOf(m)
	if f != nil {
		return f
	}

	amount := m.CarriedDrugs
	if whole := int(m.CarriedDrugs); whole >= 1 {
		amount = float64(random.UniformInt(ds.rng, min(dealMinGrams, whole), min(dealMaxGrams, whole)))
	}
	price := random.Uniform(ds.rng, dealMinPrice, dealMaxPrice)
	risk := rules.DealRisk(ds.cfg.DealBaseRisk, random.Uniform(ds.rng, 0, dealAlertnessMax))
	payload := events.DrugPayload{GangID: g.ID, Grams: amount, Price: price, Risk: risk}

	m.CarriedDrugs -= amount
	g.DrugStash -= amount

	if random.Chance(ds.rng, risk) {
		m.DrugsCaught += amount
		payload.Caught = true
		tx.snap.PutGang(g)
		tx.snap.PutMember(m)
		tx.emit(events.EventTypeDrugDealBusted, memberID, "",
			fmt.Sprintf("%s is busted dealing %.0fg", memberID, amount),
			map[string]float64{memberID + ".carried": -amount}, payload)

		if ds.cfg.SolitaryEnabled && random.Chance(ds.rng, dealSolitaryChance) {
			m.Imprison(tx.now, ds.cfg.DealSentence)
			tx.snap.PutMember(m)
			tx.emit(events.EventTypeSolitarySentence, memberID, "",
				fmt.Sprintf("%s gets solitary for dealing", memberID), nil,
				events.SentencePayload{ReleaseAt: m.ReleaseAt, Reason: "dealing"})
		}
		return nil
	}

	profit := amount * price
	m.DrugsDealt += amount
	m.Respect += dealRespectGain
	g.Money += profit
	g.TotalEarnings += profit
	g.Reputation += dealReputationGain
	payload.Profit = profit
	tx.snap.PutGang(g)
	tx.snap.PutMember(m)
	tx.emit(events.EventTypeDrugDealt, memberID, "",
		fmt.Sprintf("%s moves %.0fg at $%.0f/g for %s", memberID, amount, price, g.Name),
		map[string]float64{memberID + ".carried": -amount, g.ID + ".money": profit}, payload)
	return nil
}
