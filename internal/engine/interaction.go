package engine

import (
	"strings"
	"time"
	"unicode"

	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

const (
	hostileTriggerPerHit = 0.25
	maxHostileTrigger    = 0.90
	chatterLoyaltyGain   = 2
)

var hostileWords = map[string]bool{
	"kill": true, "fight": true, "hate": true, "die": true, "punch": true,
	"stab": true, "destroy": true, "threat": true, "idiot": true, "beat": true,
	"hurt": true, "attack": true, "snitch": true, "rat": true, "coward": true,
}

var friendlyWords = map[string]bool{
	"friend": true, "thanks": true, "thank": true, "help": true, "brother": true,
	"respect": true, "trust": true, "join": true, "together": true, "family": true,
	"protect": true, "ally": true, "loyal": true,
}

// Interaction is one conversational message between two personalities.
type Interaction struct {
	SpeakerID  string  `json:"speaker_id"`
	ListenerID string  `json:"listener_id"`
	Text       string  `json:"text"`
	Affinity   float64 `json:"affinity,omitempty"` // 0-1 relationship score, 0 when untracked
}

// Tally counts hostile and friendly keyword hits in a message.
func Tally(text string) (hostile, friendly int) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, w := range words {
		switch {
		case hostileWords[w]:
			hostile++
		case friendlyWords[w]:
			friendly++
		}
	}
	return hostile, friendly
}

// ProcessInteraction is the per-message entry point. The message is added to
// the pair's window; hostile wording between rivals may turn into violence,
// friendly wording may turn into recruitment or, inside one gang, loyalty.
func (e *Engine) ProcessInteraction(s registry.Snapshot, in Interaction, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		speaker, f := tx.activeMember(in.SpeakerID)
		if f != nil {
			return f
		}
		listener, f := tx.activeMember(in.ListenerID)
		if f != nil {
			return f
		}
		if in.SpeakerID == in.ListenerID {
			return preconditionf("%s is talking to themselves", in.SpeakerID)
		}

		hostile, friendly := Tally(in.Text)
		tx.snap.PushExchange(in.SpeakerID, in.ListenerID, registry.Exchange{
			SpeakerID: in.SpeakerID,
			Hostile:   hostile,
			Friendly:  friendly,
			At:        now,
		})
		sameGang := speaker.Affiliated() && speaker.GangID == listener.GangID

		if hostile > 0 && !sameGang {
			p := min(maxHostileTrigger, float64(hostile)*hostileTriggerPerHit)
			if random.Chance(e.rng, p) {
				if f := e.violence.resolve(tx, in.SpeakerID, in.ListenerID); f != nil {
					e.logger.Warn("interaction violence skipped", "reason", f.Reason)
				}
				return nil
			}
		}

		if friendly == 0 {
			return nil
		}
		if sameGang {
			speaker.Loyalty += chatterLoyaltyGain
			listener.Loyalty += chatterLoyaltyGain
			tx.snap.PutMember(speaker)
			tx.snap.PutMember(listener)
			return nil
		}
		if speaker.Affiliated() && e.recruitment.eligible(speaker, listener) == nil {
			if _, f := e.recruitment.attempt(tx, in.SpeakerID, in.ListenerID, in.Affinity, true); f != nil {
				e.logger.Warn("interaction recruitment skipped", "reason", f.Reason)
			}
		}
		return nil
	})
}

// ConversationEvents filters the events that should interrupt a conversation
// in the host UI.
func ConversationEvents(evs []events.GameEvent) []events.GameEvent {
	var out []events.GameEvent
	for _, e := range evs {
		switch e.Type {
		case events.EventTypeViolenceHit, events.EventTypeDeath, events.EventTypeRecruited, events.EventTypeWeaponStolen:
			out = append(out, e)
		}
	}
	return out
}
