package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/gang"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/guard"
	"github.com/MRamiBalles/CarcelGangs/server/internal/domain/member"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/config"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

// FailureCode classifies why an operation was rejected.
type FailureCode string

const (
	FailurePrecondition     FailureCode = "precondition"
	FailureUnknownReference FailureCode = "unknown_reference"
	FailureDisabled         FailureCode = "disabled"
)

// Failure is a rejected operation. It is a value, never a panic: the
// snapshot returned alongside it is the untouched input.
type Failure struct {
	Code   FailureCode `json:"code"`
	Reason string      `json:"reason"`
}

func (f *Failure) Error() string {
	return string(f.Code) + ": " + f.Reason
}

func preconditionf(format string, args ...any) *Failure {
	return &Failure{Code: FailurePrecondition, Reason: fmt.Sprintf(format, args...)}
}

func unknown(kind, id string) *Failure {
	return &Failure{Code: FailureUnknownReference, Reason: fmt.Sprintf("unknown %s %q", kind, id)}
}

func disabled(feature string) *Failure {
	return &Failure{Code: FailureDisabled, Reason: feature + " disabled"}
}

// Result is the outcome of every engine operation.
type Result struct {
	Snapshot registry.Snapshot  `json:"snapshot"`
	Events   []events.GameEvent `json:"events"`
	Failure  *Failure           `json:"failure,omitempty"`
}

// OK reports whether the operation was applied.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Engine resolves every simulation operation against an immutable snapshot.
// It holds no simulation state of its own; callers serialize access.
type Engine struct {
	cfg    config.Simulation
	rng    random.Source
	logger *logger.Logger

	// Sub-systems
	violence    *ViolenceSystem
	drugs       *DrugSystem
	weapons     *WeaponSystem
	recruitment *RecruitmentSystem
}

// NewEngine wires the sub-systems around one random source.
func NewEngine(cfg config.Simulation, rng random.Source, log *logger.Logger) *Engine {
	e := &Engine{cfg: cfg, rng: rng, logger: log}
	e.violence = &ViolenceSystem{cfg: &e.cfg, rng: rng, logger: log}
	e.drugs = &DrugSystem{cfg: &e.cfg, rng: rng, logger: log}
	e.weapons = &WeaponSystem{cfg: &e.cfg, rng: rng, logger: log}
	e.recruitment = &RecruitmentSystem{cfg: &e.cfg, rng: rng, logger: log}
	return e
}

// Config returns the simulation settings the engine runs with.
func (e *Engine) Config() config.Simulation {
	return e.cfg
}

// txn is the working copy of a single engine call.
type txn struct {
	snap   registry.Snapshot
	rec    *events.Recorder
	now    time.Time
	logger *logger.Logger
}

func (e *Engine) begin(s registry.Snapshot, now time.Time) *txn {
	return &txn{snap: s.Clone(), rec: events.NewRecorder(now), now: now, logger: e.logger}
}

// run applies op to a clone of s. On failure the input snapshot is returned
// untouched and any events recorded so far are dropped.
func (e *Engine) run(s registry.Snapshot, now time.Time, op func(*txn) *Failure) Result {
	if !s.Enabled {
		return Result{Snapshot: s, Failure: disabled("simulation")}
	}
	tx := e.begin(s, now)
	if f := op(tx); f != nil {
		e.logger.Warn("operation rejected", "code", string(f.Code), "reason", f.Reason)
		return Result{Snapshot: s, Failure: f}
	}
	return tx.commit()
}

func (tx *txn) commit() Result {
	tx.snap.Version++
	return Result{Snapshot: tx.snap, Events: tx.rec.Events()}
}

func (tx *txn) emit(t events.EventType, actorID, targetID, message string, deltas map[string]float64, payload interface{}) {
	tx.rec.Emit(t, actorID, targetID, message, deltas, payload)
	tx.logger.Event(string(t), actorID, message)
}

// member loads a member by id.
func (tx *txn) member(id string) (member.Status, *Failure) {
	m, ok := tx.snap.Member(id)
	if !ok {
		return member.Status{}, unknown("member", id)
	}
	return m, nil
}

// activeMember loads a member that can still act.
func (tx *txn) activeMember(id string) (member.Status, *Failure) {
	m, f := tx.member(id)
	if f != nil {
		return m, f
	}
	if m.Killed {
		return m, preconditionf("%s is dead", id)
	}
	if m.Imprisoned {
		return m, preconditionf("%s is in solitary", id)
	}
	return m, nil
}

// gangOf loads the gang a member belongs to.
func (tx *txn) gangOf(m member.Status) (gang.Gang, *Failure) {
	if !m.Affiliated() {
		return gang.Gang{}, preconditionf("%s is not in a gang", m.ID)
	}
	g, ok := tx.snap.Gang(m.GangID)
	if !ok {
		return gang.Gang{}, unknown("gang", m.GangID)
	}
	return g, nil
}

func (tx *txn) guard(id string) (guard.Guard, *Failure) {
	g, ok := tx.snap.Guard(id)
	if !ok {
		return guard.Guard{}, unknown("guard", id)
	}
	return g, nil
}

func (tx *txn) gangName(id string) string {
	if g, ok := tx.snap.Gang(id); ok {
		return g.Name
	}
	return "no gang"
}
