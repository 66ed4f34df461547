package network

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
)

// ReplayHandler exposes the retained event stream.
type ReplayHandler struct {
	eventLog *events.EventLog
	drugs    *events.EventLog
	logger   *logger.Logger
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(el, drugs *events.EventLog, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{eventLog: el, drugs: drugs, logger: log}
}

// ReplayResponse is the API response for a replay.
type ReplayResponse struct {
	TotalEvents int                `json:"total_events"`
	FilteredBy  map[string]string  `json:"filtered_by,omitempty"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.GameEvent `json:"events"`
}

// HandleReplay returns the retained events, oldest first.
// GET /api/events?type=VIOLENCE_HIT&member=M1&limit=20
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eventType := q.Get("type")
	memberID := q.Get("member")
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	filters := map[string]string{}
	selected := []events.GameEvent{}
	for _, e := range rh.eventLog.Replay() {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if memberID != "" && !e.Involves(memberID) {
			continue
		}
		selected = append(selected, e)
	}
	if eventType != "" {
		filters["type"] = eventType
	}
	if memberID != "" {
		filters["member"] = memberID
	}
	if limit > 0 && len(selected) > limit {
		selected = selected[len(selected)-limit:]
	}

	jsonResponse(w, http.StatusOK, ReplayResponse{
		TotalEvents: len(selected),
		FilteredBy:  filters,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      selected,
	})
}

// HandleDrugs returns the retained drug ledger.
// GET /api/events/drugs
func (rh *ReplayHandler) HandleDrugs(w http.ResponseWriter, r *http.Request) {
	txs := rh.drugs.Replay()
	jsonResponse(w, http.StatusOK, ReplayResponse{
		TotalEvents: len(txs),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      txs,
	})
}

// HandleStats returns retained event counts by type.
// GET /api/events/stats
func (rh *ReplayHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	all := rh.eventLog.Replay()
	counts := map[string]int{}
	for _, e := range all {
		counts[string(e.Type)]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"total_events": len(all),
		"types":        types,
		"by_type":      counts,
	})
}

// RegisterRoutes sets up the replay routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/events", rh.HandleReplay)
	mux.HandleFunc("GET /api/events/drugs", rh.HandleDrugs)
	mux.HandleFunc("GET /api/events/stats", rh.HandleStats)
}
