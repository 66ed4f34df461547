package engine

import (
	"testing"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
)

func TestTally(t *testing.T) {
	h, f := Tally("I'll KILL you, coward! Thanks for nothing, brother.")
	if h != 2 || f != 2 {
		t.Errorf("expected 2 hostile and 2 friendly hits, got %d/%d", h, f)
	}
}

func TestHostileMessageTriggersViolence(t *testing.T) {
	// trigger roll under 50%, then the hit roll
	e, _ := newScripted(0.1, 0.0)
	s := yard()
	addMember(&s, "A", "G1", 0, member.RankSoldier)
	addMember(&s, "B", "G2", 0, member.RankSoldier)

	res := e.ProcessInteraction(s, Interaction{SpeakerID: "A", ListenerID: "B", Text: "I will kill you, coward"}, now)
	if !res.OK() || !hasEvent(res.Events, events.EventTypeViolenceHit) {
		t.Fatalf("expected violence from hostile talk, got %v %+v", res.Failure, res.Events)
	}
	w := res.Snapshot.Window("B", "A")
	if len(w) != 1 || w[0].Hostile != 2 || w[0].SpeakerID != "A" {
		t.Errorf("unexpected window: %+v", w)
	}
	if len(ConversationEvents(res.Events)) == 0 {
		t.Errorf("a hit should interrupt the conversation")
	}
}

func TestFriendlyChatterInsideGang(t *testing.T) {
	e, src := newScripted()
	s := yard()
	addMember(&s, "A", "G1", 0, member.RankSoldier)
	addMember(&s, "B", "G1", 0, member.RankSoldier)

	res := e.ProcessInteraction(s, Interaction{SpeakerID: "A", ListenerID: "B", Text: "thanks brother"}, now)
	if a, b := res.Snapshot.Members["A"], res.Snapshot.Members["B"]; a.Loyalty != 62 || b.Loyalty != 62 {
		t.Errorf("expected loyalty 62 for both, got %v/%v", a.Loyalty, b.Loyalty)
	}
	if src.Consumed() != 0 {
		t.Errorf("in-gang chatter must not roll")
	}
}

func TestFriendlyMessageCanRecruit(t *testing.T) {
	e, _ := newScripted(0.0, 0.0)
	s := yard()
	addMember(&s, "A", "G1", 0, member.RankSoldier)
	addMember(&s, "B", "", 0, "")

	res := e.ProcessInteraction(s, Interaction{SpeakerID: "A", ListenerID: "B", Text: "join us, we protect family"}, now)
	if got := res.Snapshot.Members["B"]; got.GangID != "G1" {
		t.Errorf("expected B recruited, got %+v", got)
	}
}

func TestInteractionFromSolitaryRejected(t *testing.T) {
	e, _ := newScripted()
	s := yard()
	a := addMember(&s, "A", "", 0, "")
	a.Imprison(now, e.cfg.SolitaryDuration)
	s.PutMember(a)
	addMember(&s, "B", "", 0, "")

	expectFailure(t, e.ProcessInteraction(s, Interaction{SpeakerID: "A", ListenerID: "B", Text: "hey"}, now), s, FailurePrecondition)
	expectFailure(t, e.ProcessInteraction(s, Interaction{SpeakerID: "B", ListenerID: "ghost", Text: "hey"}, now), s, FailureUnknownReference)
}

func TestInteractionWithInactiveListenerRejected(t *testing.T) {
	e, _ := newScripted()
	s := yard()
	addMember(&s, "A", "G1", 0, member.RankSoldier)
	dead := addMember(&s, "B", "G2", 0, member.RankSoldier)
	dead.Kill(now)
	s.PutMember(dead)
	held := addMember(&s, "C", "G2", 0, member.RankSoldier)
	held.Imprison(now, e.cfg.SolitaryDuration)
	s.PutMember(held)

	expectFailure(t, e.ProcessInteraction(s, Interaction{SpeakerID: "A", ListenerID: "B", Text: "you rat"}, now), s, FailurePrecondition)
	expectFailure(t, e.ProcessInteraction(s, Interaction{SpeakerID: "A", ListenerID: "C", Text: "thanks brother"}, now), s, FailurePrecondition)
	if len(s.Window("A", "B")) != 0 || len(s.Window("A", "C")) != 0 {
		t.Errorf("rejected messages must not enter the window")
	}
}
