// Package metrics provides observability for the gang simulation host.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and simulation metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TicksSkipped   int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Engine calls
	Interactions int64
	Commands     int64
	Failures     map[string]int64 // by failure code

	// Event metrics
	EventsByType     map[string]int64
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New creates an empty collector.
func New() *Collector {
	return &Collector{
		Failures:     map[string]int64{},
		EventsByType: map[string]int64{},
		StartTime:    time.Now(),
	}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordSkippedTick records a tick suppressed by an open conversation or a
// disabled simulation.
func (c *Collector) RecordSkippedTick() {
	atomic.AddInt64(&c.TicksSkipped, 1)
}

// RecordInteraction records a processed conversation turn.
func (c *Collector) RecordInteraction() {
	atomic.AddInt64(&c.Interactions, 1)
}

// RecordCommand records an explicit command.
func (c *Collector) RecordCommand() {
	atomic.AddInt64(&c.Commands, 1)
}

// RecordFailure counts a rejected engine call by code.
func (c *Collector) RecordFailure(code string) {
	c.mu.Lock()
	c.Failures[code]++
	c.mu.Unlock()
}

// RecordEvent counts an emitted event by type.
func (c *Collector) RecordEvent(eventType string) {
	c.mu.Lock()
	c.EventsByType[eventType]++
	c.mu.Unlock()
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"skipped":        atomic.LoadInt64(&c.TicksSkipped),
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"engine": map[string]interface{}{
			"interactions": atomic.LoadInt64(&c.Interactions),
			"commands":     atomic.LoadInt64(&c.Commands),
			"failures":     copyCounts(c.Failures),
		},

		"events": map[string]interface{}{
			"by_type":          copyCounts(c.EventsByType),
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return collector.Handler()
}

// Handler serves this collector as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return collector.PrometheusHandler()
}

// PrometheusHandler serves this collector in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Tick metrics
		fmt.Fprintf(w, "# HELP gangs_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE gangs_tick_count counter\n")
		fmt.Fprintf(w, "gangs_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP gangs_tick_skipped Ticks suppressed during conversations\n")
		fmt.Fprintf(w, "# TYPE gangs_tick_skipped counter\n")
		fmt.Fprintf(w, "gangs_tick_skipped %d\n\n", atomic.LoadInt64(&c.TicksSkipped))

		fmt.Fprintf(w, "# HELP gangs_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE gangs_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "gangs_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Engine calls
		fmt.Fprintf(w, "# HELP gangs_interactions_total Processed conversation turns\n")
		fmt.Fprintf(w, "# TYPE gangs_interactions_total counter\n")
		fmt.Fprintf(w, "gangs_interactions_total %d\n\n", atomic.LoadInt64(&c.Interactions))

		fmt.Fprintf(w, "# HELP gangs_commands_total Processed commands\n")
		fmt.Fprintf(w, "# TYPE gangs_commands_total counter\n")
		fmt.Fprintf(w, "gangs_commands_total %d\n\n", atomic.LoadInt64(&c.Commands))

		c.mu.RLock()
		fmt.Fprintf(w, "# HELP gangs_failures_total Rejected engine calls\n")
		fmt.Fprintf(w, "# TYPE gangs_failures_total counter\n")
		for _, code := range sortedKeys(c.Failures) {
			fmt.Fprintf(w, "gangs_failures_total{code=%q} %d\n", code, c.Failures[code])
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP gangs_events_total Emitted simulation events\n")
		fmt.Fprintf(w, "# TYPE gangs_events_total counter\n")
		for _, t := range sortedKeys(c.EventsByType) {
			fmt.Fprintf(w, "gangs_events_total{type=%q} %d\n", t, c.EventsByType[t])
		}
		fmt.Fprintln(w)
		c.mu.RUnlock()

		// Event writes
		fmt.Fprintf(w, "# HELP gangs_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE gangs_events_written counter\n")
		fmt.Fprintf(w, "gangs_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP gangs_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE gangs_event_write_errors counter\n")
		fmt.Fprintf(w, "gangs_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP gangs_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE gangs_ws_connections gauge\n")
		fmt.Fprintf(w, "gangs_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP gangs_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE gangs_ws_messages_total counter\n")
		fmt.Fprintf(w, "gangs_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "gangs_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
