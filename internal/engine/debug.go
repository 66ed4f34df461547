package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

// ForceLeave removes a member from their gang regardless of loyalty.
func (e *Engine) ForceLeave(s registry.Snapshot, memberID string, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		m, f := tx.member(memberID)
		if f != nil {
			return f
		}
		if m.Killed {
			return preconditionf("%s is dead", memberID)
		}
		if !m.Affiliated() {
			return preconditionf("%s is not in a gang", memberID)
		}
		tx.leaveGang(m, "forced")
		return nil
	})
}

// ForceRelease ends a member's solitary stint early.
func (e *Engine) ForceRelease(s registry.Snapshot, memberID string, now time.Time) Result {
	return e.run(s, now, func(tx *txn) *Failure {
		m, f := tx.member(memberID)
		if f != nil {
			return f
		}
		if m.Killed || !m.Imprisoned {
			return preconditionf("%s is not in solitary", memberID)
		}
		m.Release()
		tx.snap.PutMember(m)
		tx.emit(events.EventTypeSolitaryRelease, memberID, "",
			fmt.Sprintf("%s is let out of solitary early", memberID), nil, nil)
		return nil
	})
}
