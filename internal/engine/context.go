package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

// ContextFor renders the plain-text block the host concatenates into a
// personality's prompt. It is a lossy projection and is never parsed back.
func (e *Engine) ContextFor(s registry.Snapshot, memberID string, now time.Time) (string, bool) {
	if !s.Enabled {
		return "", false
	}
	m, ok := s.Member(memberID)
	if !ok {
		return "", false
	}

	var b strings.Builder
	b.WriteString("[PRISON GANG STATUS]\n")
	if m.Killed {
		fmt.Fprintf(&b, "You were killed %s. You take no further part in the yard.\n", humanize.RelTime(m.KilledAt, now, "ago", "from now"))
		return b.String(), true
	}

	g, affiliated := s.Gang(m.GangID)
	if affiliated && m.Affiliated() {
		fmt.Fprintf(&b, "Gang: %s (rank: %s)\n", g.Name, m.Rank)
		fmt.Fprintf(&b, "Territory: %.0f%% of the prison | Gang reputation: %.0f/100\n", g.TerritoryControl, g.Reputation)
	} else {
		b.WriteString("Gang: none, you run alone\n")
	}
	fmt.Fprintf(&b, "Loyalty: %.0f/100 | Respect: %.0f/100 | Violence: %.0f/100 | Hits landed: %d\n",
		m.Loyalty, m.Respect, m.Violence, m.Hits)

	var rivals []string
	for _, id := range s.GangIDs() {
		if id != m.GangID {
			rivals = append(rivals, s.Gangs[id].Name)
		}
	}
	if len(rivals) > 0 {
		fmt.Fprintf(&b, "Rival gangs: %s\n", strings.Join(rivals, ", "))
	}

	if e.cfg.DrugsEnabled {
		fmt.Fprintf(&b, "Drugs: carrying %sg, dealt %sg lifetime", humanize.Ftoa(m.CarriedDrugs), humanize.Ftoa(m.DrugsDealt))
		if affiliated && m.Affiliated() {
			fmt.Fprintf(&b, " | gang stash %sg, gang money $%s", humanize.Ftoa(g.DrugStash), humanize.Commaf(float64(int64(g.Money))))
		}
		b.WriteString("\n")
	}

	if e.cfg.WeaponsEnabled {
		if w, _, armed := m.BestWeapon(); armed {
			fmt.Fprintf(&b, "Weapons: enabled, you carry a %s (%d%% durability)", w.Name, w.Durability)
			if len(m.Weapons) > 1 {
				fmt.Fprintf(&b, " and %d more", len(m.Weapons)-1)
			}
			b.WriteString("\n")
		} else {
			b.WriteString("Weapons: enabled, you are unarmed\n")
		}
	} else {
		b.WriteString("Weapons: disabled\n")
	}
	if e.cfg.DeathEnabled {
		b.WriteString("Death: enabled, fights can be fatal\n")
	}

	if m.Imprisoned {
		fmt.Fprintf(&b, "You are in solitary confinement, released %s.\n", humanize.RelTime(now, m.ReleaseAt, "ago", "from now"))
	}
	return b.String(), true
}
