package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
)

// Impact classes of a recap line.
const (
	ImpactPositive = "POSITIVE"
	ImpactNegative = "NEGATIVE"
	ImpactNeutral  = "NEUTRAL"
)

// Reconstructor rebuilds a member's history from the event ledger.
// Used by the history debug command and by hosts that reconnect a client.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new history reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is one line of a member's history.
type RecapEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Summary   string    `json:"summary"`
	Impact    string    `json:"impact"`
}

// Tally counts what happened to a member over its recorded history.
type Tally struct {
	HitsLanded   int     `json:"hits_landed"`
	HitsTaken    int     `json:"hits_taken"`
	Sentences    int     `json:"sentences"`
	WeaponsGot   int     `json:"weapons_obtained"`
	WeaponsLost  int     `json:"weapons_lost"`
	GramsDealt   float64 `json:"grams_dealt"`
	Profit       float64 `json:"profit"`
	Recruitments int     `json:"recruitments"`
	Killed       bool    `json:"killed"`
}

// Recap returns the events a member took part in since a given time,
// oldest first. A zero since returns the whole history.
func (r *Reconstructor) Recap(ctx context.Context, gameID, memberID string, since time.Time) ([]RecapEvent, error) {
	records, err := r.eventRepo.GetInvolving(ctx, gameID, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for member: %w", err)
	}

	recap := make([]RecapEvent, 0, len(records))
	for _, e := range records {
		if e.Timestamp.Before(since) {
			continue
		}
		recap = append(recap, RecapEvent{
			Timestamp: e.Timestamp,
			EventType: e.EventType,
			Summary:   summarize(e, memberID),
			Impact:    impactFor(e, memberID),
		})
	}
	return recap, nil
}

// Summarize folds a member's whole history into a Tally.
func (r *Reconstructor) Summarize(ctx context.Context, gameID, memberID string) (Tally, error) {
	records, err := r.eventRepo.GetInvolving(ctx, gameID, memberID)
	if err != nil {
		return Tally{}, fmt.Errorf("failed to get events for member: %w", err)
	}
	var t Tally
	for _, e := range records {
		actor := e.ActorID == memberID
		switch events.EventType(e.EventType) {
		case events.EventTypeViolenceHit:
			if actor {
				t.HitsLanded++
			} else {
				t.HitsTaken++
			}
		case events.EventTypeSolitarySentence:
			if e.TargetID == memberID || (actor && e.TargetID == "") {
				t.Sentences++
			}
		case events.EventTypeWeaponBribed, events.EventTypeWeaponCrafted:
			if actor {
				t.WeaponsGot++
			}
		case events.EventTypeWeaponStolen:
			if actor {
				t.WeaponsGot++
			} else {
				t.WeaponsLost++
			}
		case events.EventTypeWeaponBroken:
			t.WeaponsLost++
		case events.EventTypeDrugDealt:
			if actor {
				t.GramsDealt += number(e.Payload, "grams")
				t.Profit += number(e.Payload, "profit")
			}
		case events.EventTypeRecruited:
			if actor {
				t.Recruitments++
			}
		case events.EventTypeDeath:
			if e.TargetID == memberID || (actor && e.TargetID == "") {
				t.Killed = true
			}
		}
	}
	return t, nil
}

func number(payload map[string]interface{}, key string) float64 {
	if v, ok := payload[key].(float64); ok {
		return v
	}
	return 0
}

// summarize creates a short description from the member's point of view.
func summarize(e EventRecord, observerID string) string {
	you := e.ActorID == observerID
	switch events.EventType(e.EventType) {
	case events.EventTypeViolenceHit:
		if you {
			return "You landed a hit on " + e.TargetID + "."
		}
		return e.ActorID + " hit you."
	case events.EventTypeViolenceMiss:
		if you {
			return "You swung at " + e.TargetID + " and missed."
		}
		return e.ActorID + " swung at you and missed."
	case events.EventTypeDrugDealt:
		return fmt.Sprintf("Dealt %sg for $%s.", humanize.Ftoa(number(e.Payload, "grams")), humanize.Commaf(number(e.Payload, "profit")))
	case events.EventTypeDrugSmuggled:
		return fmt.Sprintf("Smuggled %sg into the yard.", humanize.Ftoa(number(e.Payload, "grams")))
	case events.EventTypeSolitarySentence:
		return "Sent to solitary."
	case events.EventTypeDeath:
		if e.TargetID == observerID || e.TargetID == "" {
			return "You were killed."
		}
		return "You killed " + e.TargetID + "."
	case events.EventTypeRecruited:
		if you {
			return "You brought " + e.TargetID + " into the gang."
		}
		return e.ActorID + " recruited you."
	case events.EventTypeWeaponStolen:
		if you {
			return "You took a weapon from " + e.TargetID + "."
		}
		return e.ActorID + " took your weapon."
	}
	return e.Message
}

// impactFor classifies the event for the observing member.
func impactFor(e EventRecord, observerID string) string {
	you := e.ActorID == observerID
	switch events.EventType(e.EventType) {
	case events.EventTypeViolenceHit, events.EventTypeWeaponStolen, events.EventTypeRecruited:
		if you {
			return ImpactPositive
		}
		return ImpactNegative
	case events.EventTypeViolenceMiss:
		if you {
			return ImpactNegative
		}
		return ImpactPositive
	case events.EventTypeDeath:
		if e.TargetID == observerID || e.TargetID == "" {
			return ImpactNegative
		}
		return ImpactPositive
	case events.EventTypeWeaponBribed, events.EventTypeWeaponCrafted, events.EventTypeDrugSmuggled,
		events.EventTypeDrugDealt, events.EventTypePromoted, events.EventTypeSolitaryRelease:
		return ImpactPositive
	case events.EventTypeSolitarySentence, events.EventTypeBribeFailed, events.EventTypeBribeCaught,
		events.EventTypeCraftFailed, events.EventTypeWeaponBroken, events.EventTypeDrugSeized,
		events.EventTypeDrugDealBusted, events.EventTypeLeftGang:
		return ImpactNegative
	default:
		return ImpactNeutral
	}
}
