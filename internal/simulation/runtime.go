// Package simulation hosts the engine: it owns the current snapshot,
// serializes every engine call, runs the scheduler loop and hands results
// to the event log, the store and the context cache.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/engine"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/infra/cache"
	"github.com/MRamiBalles/CarcelGangs/server/internal/infra/storage"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/metrics"
	"github.com/MRamiBalles/CarcelGangs/server/internal/registry"
)

// Options wires a Runtime. Store and Cache are optional.
type Options struct {
	Engine         *engine.Engine
	Logger         *logger.Logger
	Metrics        *metrics.Collector
	Store          storage.Store
	Cache          *cache.ContextCache
	GameID         string
	EventRetention int
	DrugRetention  int
	Clock          func() time.Time
}

// Runtime is the host of one simulation.
type Runtime struct {
	mu sync.Mutex

	engine  *engine.Engine
	logger  *logger.Logger
	metrics *metrics.Collector
	store   storage.Store
	cache   *cache.ContextCache
	gameID  string
	clock   func() time.Time

	drugRetention int

	snap          registry.Snapshot
	log           *events.EventLog
	drugs         *events.EventLog
	conversations int
	lastTick      time.Time
}

// New creates a runtime around an empty snapshot.
func New(opts Options) *Runtime {
	if opts.Logger == nil {
		opts.Logger = logger.NewDiscard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.GameID == "" {
		opts.GameID = "GANGS_1"
	}

	var persister events.EventPersister
	if opts.Store != nil {
		persister = &timedPersister{
			next:    storage.NewEventPersister(opts.Store, opts.GameID),
			metrics: opts.Metrics,
		}
	}

	return &Runtime{
		engine:  opts.Engine,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		store:   opts.Store,
		cache:   opts.Cache,
		gameID:  opts.GameID,
		clock:   opts.Clock,

		drugRetention: opts.DrugRetention,
		snap:          registry.New(),
		log:           events.NewEventLog(persister, opts.EventRetention),
		drugs:         events.NewEventLog(nil, opts.DrugRetention),
		lastTick:      opts.Clock(),
	}
}

// timedPersister records write latency for every persisted event.
type timedPersister struct {
	next    events.EventPersister
	metrics *metrics.Collector
}

func (p *timedPersister) Append(e events.GameEvent) error {
	start := time.Now()
	err := p.next.Append(e)
	p.metrics.RecordEventWrite(time.Since(start), err)
	return err
}

// Restore loads the stored snapshot of this game. A game that was never
// saved keeps the empty snapshot.
func (r *Runtime) Restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	snap, err := r.store.Load(ctx, r.gameID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore %s: %w", r.gameID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = snap
	r.logger.Info("snapshot restored", "game", r.gameID, "state", snap.Summary())
	return nil
}

// Snapshot returns a copy of the current snapshot.
func (r *Runtime) Snapshot() registry.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Clone()
}

// Events exposes the retained event stream.
func (r *Runtime) Events() *events.EventLog {
	return r.log
}

// DrugLedger exposes the retained drug transactions.
func (r *Runtime) DrugLedger() *events.EventLog {
	return r.drugs
}

// Metrics returns the collector fed by this runtime.
func (r *Runtime) Metrics() *metrics.Collector {
	return r.metrics
}

// GameID names the persisted game.
func (r *Runtime) GameID() string {
	return r.gameID
}

// BeginConversation marks a conversation as active. Scheduled ticks are
// skipped until every open conversation ends.
func (r *Runtime) BeginConversation() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations++
}

// EndConversation closes one conversation.
func (r *Runtime) EndConversation() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conversations > 0 {
		r.conversations--
	}
}

// InConversation reports whether ticks are currently suppressed.
func (r *Runtime) InConversation() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conversations > 0
}

// call runs one engine operation against the current snapshot and commits
// its result. The returned error only reports persistence problems; engine
// rejections travel in Result.Failure.
func (r *Runtime) call(ctx context.Context, op func(s registry.Snapshot, now time.Time) engine.Result) (engine.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commitLocked(ctx, op(r.snap, r.clock()))
}

func (r *Runtime) commitLocked(ctx context.Context, res engine.Result) (engine.Result, error) {
	if !res.OK() {
		r.metrics.RecordFailure(string(res.Failure.Code))
		return res, nil
	}
	if res.Snapshot.Version < r.snap.Version && r.cache != nil {
		r.cache.Purge()
	}
	r.snap = res.Snapshot

	var errs []error
	if len(res.Events) > 0 {
		for _, e := range res.Events {
			r.metrics.RecordEvent(string(e.Type))
		}
		if err := r.log.Append(res.Events...); err != nil {
			errs = append(errs, fmt.Errorf("persist events: %w", err))
		}
		for _, e := range res.Events {
			if e.Type.IsDrugTransaction() {
				r.drugs.Append(e)
			}
		}
	}
	if r.store != nil {
		if err := r.store.Save(ctx, r.gameID, r.snap); err != nil {
			errs = append(errs, fmt.Errorf("save snapshot: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		r.logger.Error("failed to persist result", "error", err)
	}
	return res, err
}

// Interact processes one conversation turn.
func (r *Runtime) Interact(ctx context.Context, in engine.Interaction) (engine.Result, error) {
	r.metrics.RecordInteraction()
	return r.call(ctx, func(s registry.Snapshot, now time.Time) engine.Result {
		return r.engine.ProcessInteraction(s, in, now)
	})
}

// Tick advances the scheduler by the wall time since the previous tick.
// It reports false when the tick was skipped because a conversation is
// active or the simulation is disabled; skipped time is not replayed.
func (r *Runtime) Tick(ctx context.Context) (engine.Result, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	elapsed := now.Sub(r.lastTick)
	r.lastTick = now
	if r.conversations > 0 || !r.snap.Enabled {
		r.metrics.RecordSkippedTick()
		return engine.Result{Snapshot: r.snap}, false, nil
	}

	start := time.Now()
	res, err := r.commitLocked(ctx, r.engine.AdvanceTick(r.snap, elapsed, now))
	r.metrics.RecordTick(time.Since(start))
	return res, true, err
}

// Start runs the scheduler loop until ctx is done. Call in a goroutine.
func (r *Runtime) Start(ctx context.Context, interval time.Duration) {
	r.logger.Info("scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			if _, _, err := r.Tick(ctx); err != nil {
				r.logger.Warn("tick persisted with errors", "error", err)
			}
		}
	}
}

// Context returns the prompt block of a member. Members whose block
// mentions a relative time are rendered fresh on every call.
func (r *Runtime) Context(memberID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	render := func() (string, bool) { return r.engine.ContextFor(r.snap, memberID, now) }
	m, ok := r.snap.Member(memberID)
	if r.cache == nil || !ok || m.Imprisoned || m.Killed {
		return render()
	}
	return r.cache.GetOrRender(r.snap.Version, memberID, render)
}

// History lists what a member took part in. The store keeps the full
// history; without one the retained stream is used.
func (r *Runtime) History(ctx context.Context, memberID string) ([]storage.RecapEvent, error) {
	if r.store != nil {
		return storage.NewReconstructor(r.store).Recap(ctx, r.gameID, memberID, time.Time{})
	}
	var out []storage.RecapEvent
	for _, e := range r.log.Replay() {
		if !e.Involves(memberID) {
			continue
		}
		out = append(out, storage.RecapEvent{
			Timestamp: e.Timestamp,
			EventType: string(e.Type),
			Summary:   e.Message,
			Impact:    storage.ImpactNeutral,
		})
	}
	return out, nil
}
