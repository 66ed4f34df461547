package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/engine"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/simulation"
)

// API is the REST bridge for hosts that do not keep a WebSocket open.
type API struct {
	runtime *simulation.Runtime
	logger  *logger.Logger
}

// NewAPI creates the REST handlers for a runtime.
func NewAPI(rt *simulation.Runtime, log *logger.Logger) *API {
	return &API{runtime: rt, logger: log}
}

// InteractionRequest is the body of POST /api/interaction.
type InteractionRequest struct {
	engine.Interaction
	// Conversation brackets the turn with BeginConversation/EndConversation
	// when the caller does not manage conversations itself.
	Conversation bool `json:"conversation,omitempty"`
}

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Command string `json:"command"`
}

// HandleInteraction processes one conversation turn.
// POST /api/interaction
func (a *API) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SpeakerID == "" || req.ListenerID == "" {
		jsonError(w, "Missing speaker_id or listener_id", http.StatusBadRequest)
		return
	}

	if req.Conversation {
		a.runtime.BeginConversation()
		defer a.runtime.EndConversation()
	}
	res, err := a.runtime.Interact(r.Context(), req.Interaction)
	if err != nil {
		a.logger.Warn("interaction persisted with errors", "error", err)
	}

	status := http.StatusOK
	if !res.OK() {
		status = failureStatus(res.Failure)
	}
	jsonResponse(w, status, map[string]interface{}{
		"version":             res.Snapshot.Version,
		"failure":             res.Failure,
		"events":              res.Events,
		"conversation_events": engine.ConversationEvents(res.Events),
	})
}

// HandleCommand runs one command line.
// POST /api/command
func (a *API) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	reply, err := a.runtime.Execute(r.Context(), req.Command)
	if errors.Is(err, simulation.ErrUsage) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		a.logger.Warn("command persisted with errors", "command", req.Command, "error", err)
	}

	status := http.StatusOK
	if reply.Result != nil && !reply.Result.OK() {
		status = failureStatus(reply.Result.Failure)
	}
	jsonResponse(w, status, map[string]interface{}{
		"text":   reply.Text,
		"result": reply.Result,
	})
}

// HandleContext returns the prompt block of a member.
// GET /api/context/{id}
func (a *API) HandleContext(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	text, ok := a.runtime.Context(id)
	if !ok {
		jsonError(w, "No context for "+id, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(text))
}

// HandleSnapshot returns the current registry snapshot.
// GET /api/snapshot
func (a *API) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, a.runtime.Snapshot())
}

// HandleHistory returns the recorded history of a member.
// GET /api/history/{id}
func (a *API) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	recap, err := a.runtime.History(r.Context(), id)
	if err != nil {
		a.logger.Error("history lookup failed", "member", id, "error", err)
		jsonError(w, "History unavailable", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"member_id":    id,
		"generated_at": time.Now().Format(time.RFC3339),
		"events":       recap,
	})
}

// RegisterRoutes sets up the REST routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/interaction", a.HandleInteraction)
	mux.HandleFunc("POST /api/command", a.HandleCommand)
	mux.HandleFunc("GET /api/context/{id}", a.HandleContext)
	mux.HandleFunc("GET /api/snapshot", a.HandleSnapshot)
	mux.HandleFunc("GET /api/history/{id}", a.HandleHistory)
}

func failureStatus(f *engine.Failure) int {
	switch f.Code {
	case engine.FailureUnknownReference:
		return http.StatusNotFound
	case engine.FailureDisabled:
		return http.StatusForbidden
	default:
		return http.StatusConflict
	}
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// jsonResponse sends a JSON body with the given status.
func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
