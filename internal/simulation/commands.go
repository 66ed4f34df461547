package simulation

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/weapon"
	"github.com/MRamiBalles/CarcelGangs/server/internal/engine"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

// ErrUsage is returned for command lines that cannot be parsed.
var ErrUsage = errors.New("usage")

// Reply is the outcome of one command line.
type Reply struct {
	Text   string         `json:"text"`
	Result *engine.Result `json:"result,omitempty"`
}

// OK reports whether the command was applied or was a read.
func (r Reply) OK() bool {
	return r.Result == nil || r.Result.OK()
}

const usage = `commands:
  enable | reset
  assign <member> [gang]
  attack <attacker> <target>
  recruit <initiator> <target> [affinity]
  bribe <member> <gun|shank|chain> [guard]
  craft <member> <shank|chain>
  steal <thief> <victim>
  smuggle <member> | deal <member>
  context <member>
  debug gangs|guards|weapons|drugs
  debug leave|release|history <member>`

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// Execute parses and runs one command line.
func (r *Runtime) Execute(ctx context.Context, line string) (Reply, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return Reply{}, usageError("empty command\n%s", usage)
	}
	r.metrics.RecordCommand()

	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "help":
		return Reply{Text: usage}, nil
	case "enable":
		return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
			return r.engine.Enable(s, now)
		})
	case "reset":
		return r.apply(ctx, func(registry.Snapshot, time.Time) engine.Result {
			return r.engine.Reset()
		})
	case "assign":
		if len(args) < 1 || len(args) > 2 {
			return Reply{}, usageError("assign <member> [gang]")
		}
		gangID := ""
		if len(args) == 2 {
			gangID = args[1]
		}
		return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
			return r.engine.Assign(s, args[0], gangID, now)
		})
	case "attack":
		if len(args) != 2 {
			return Reply{}, usageError("attack <attacker> <target>")
		}
		return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
			return r.engine.ResolveViolence(s, args[0], args[1], now)
		})
	case "recruit":
		if len(args) < 2 || len(args) > 3 {
			return Reply{}, usageError("recruit <initiator> <target> [affinity]")
		}
		affinity := 0.0
		if len(args) == 3 {
			v, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return Reply{}, usageError("affinity must be a number: %v", err)
			}
			affinity = v
		}
		return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
			return r.engine.Recruit(s, args[0], args[1], affinity, now)
		})
	case "bribe":
		if len(args) < 2 || len(args) > 3 {
			return Reply{}, usageError("bribe <member> <gun|shank|chain> [guard]")
		}
		kind, ok := weapon.ParseKind(strings.ToLower(args[1]))
		if !ok {
			return Reply{}, usageError("unknown weapon kind %q", args[1])
		}
		guardID := ""
		if len(args) == 3 {
			guardID = args[2]
		}
		return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
			return r.engine.Bribe(s, args[0], kind, guardID, now)
		})
	case "craft":
		if len(args) != 2 {
			return Reply{}, usageError("craft <member> <shank|chain>")
		}
		kind, ok := weapon.ParseKind(strings.ToLower(args[1]))
		if !ok {
			return Reply{}, usageError("unknown weapon kind %q", args[1])
		}
		return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
			return r.engine.Craft(s, args[0], kind, now)
		})
	case "steal":
		if len(args) != 2 {
			return Reply{}, usageError("steal <thief> <victim>")
		}
		return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
			return r.engine.Steal(s, args[0], args[1], now)
		})
	case "smuggle", "deal":
		if len(args) != 1 {
			return Reply{}, usageError("%s <member>", cmd)
		}
		return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
			if cmd == "smuggle" {
				return r.engine.Smuggle(s, args[0], now)
			}
			return r.engine.Deal(s, args[0], now)
		})
	case "context":
		if len(args) != 1 {
			return Reply{}, usageError("context <member>")
		}
		text, ok := r.Context(args[0])
		if !ok {
			return Reply{Text: "no context for " + args[0]}, nil
		}
		return Reply{Text: text}, nil
	case "debug":
		return r.debug(ctx, args)
	default:
		return Reply{}, usageError("unknown command %q\n%s", cmd, usage)
	}
}

func (r *Runtime) apply(ctx context.Context, op func(registry.Snapshot, time.Time) engine.Result) (Reply, error) {
	res, err := r.call(ctx, op)
	return Reply{Text: describe(res), Result: &res}, err
}

// describe renders a result as one message per line.
func describe(res engine.Result) string {
	if !res.OK() {
		return "failed: " + res.Failure.Reason
	}
	if len(res.Events) == 0 {
		return "ok"
	}
	lines := make([]string, 0, len(res.Events))
	for _, e := range res.Events {
		lines = append(lines, e.Message)
	}
	return strings.Join(lines, "\n")
}

func (r *Runtime) debug(ctx context.Context, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{}, usageError("debug gangs|guards|weapons|drugs|leave|release|history")
	}
	sub, rest := strings.ToLower(args[0]), args[1:]
	switch sub {
	case "gangs":
		return Reply{Text: r.listGangs()}, nil
	case "guards":
		return Reply{Text: r.listGuards()}, nil
	case "weapons":
		return Reply{Text: r.listWeapons()}, nil
	case "drugs":
		text, err := r.listDrugs(ctx)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: text}, nil
	case "leave", "release", "history":
		if len(rest) != 1 {
			return Reply{}, usageError("debug %s <member>", sub)
		}
		id := rest[0]
		switch sub {
		case "leave":
			return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
				return r.engine.ForceLeave(s, id, now)
			})
		case "release":
			return r.apply(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
				return r.engine.ForceRelease(s, id, now)
			})
		}
		return r.history(ctx, id)
	default:
		return Reply{}, usageError("unknown debug command %q", sub)
	}
}

func (r *Runtime) listGangs() string {
	s := r.Snapshot()
	if len(s.Gangs) == 0 {
		return "no gangs"
	}
	var b strings.Builder
	for _, id := range s.GangIDs() {
		g := s.Gangs[id]
		fmt.Fprintf(&b, "%s %s: territory %.0f%%, resources %.0f, reputation %.0f, money $%s, stash %sg, members %d, leader %s\n",
			id, g.Name, g.TerritoryControl, g.Resources, g.Reputation,
			humanize.Commaf(float64(int64(g.Money))), humanize.Ftoa(g.DrugStash),
			len(s.GangMembers(id)), orNone(g.LeaderID))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Runtime) listGuards() string {
	s := r.Snapshot()
	if len(s.Guards) == 0 {
		return "no guards"
	}
	var b strings.Builder
	for _, id := range s.GuardIDs() {
		g := s.Guards[id]
		fmt.Fprintf(&b, "%s %s: %s (corruptibility %.0f, alertness %.0f, %d bribes)\n",
			id, g.Name, g.Label(), g.Corruptibility, g.Alertness, len(g.History))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Runtime) listWeapons() string {
	armed := r.Snapshot().Weapons()
	var b strings.Builder
	for _, id := range slices.Sorted(maps.Keys(armed)) {
		for _, w := range armed[id] {
			fmt.Fprintf(&b, "%s: %s (%s, %d%% durability, %s)\n", id, w.Name, w.Source, w.Durability, w.ID)
		}
	}
	if b.Len() == 0 {
		return "no weapons in the yard"
	}
	return strings.TrimRight(b.String(), "\n")
}

type drugLine struct {
	at      time.Time
	kind    string
	message string
}

// listDrugs prefers the store, which outlives the process, over the
// in-memory ledger.
func (r *Runtime) listDrugs(ctx context.Context) (string, error) {
	var txs []drugLine
	if r.store != nil {
		all, err := r.store.GetByGameID(ctx, r.gameID)
		if err != nil {
			return "", fmt.Errorf("list drug transactions: %w", err)
		}
		for _, e := range all {
			if events.EventType(e.EventType).IsDrugTransaction() {
				txs = append(txs, drugLine{e.Timestamp, e.EventType, e.Message})
			}
		}
	} else {
		for _, e := range r.drugs.Replay() {
			txs = append(txs, drugLine{e.Timestamp, string(e.Type), e.Message})
		}
	}
	if r.drugRetention > 0 && len(txs) > r.drugRetention {
		txs = txs[len(txs)-r.drugRetention:]
	}
	if len(txs) == 0 {
		return "no drug transactions", nil
	}

	now := r.clock()
	var b strings.Builder
	for _, tx := range txs {
		fmt.Fprintf(&b, "%s %s %s\n", humanize.RelTime(tx.at, now, "ago", "from now"), tx.kind, tx.message)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Runtime) history(ctx context.Context, memberID string) (Reply, error) {
	recap, err := r.History(ctx, memberID)
	if err != nil {
		return Reply{}, err
	}
	if len(recap) == 0 {
		return Reply{Text: "no history for " + memberID}, nil
	}
	var b strings.Builder
	for _, line := range recap {
		fmt.Fprintf(&b, "%s [%s] %s\n", line.Timestamp.Format(time.DateTime), line.Impact, line.Summary)
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func orNone(id string) string {
	if id == "" {
		return "none"
	}
	return id
}
