package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CarcelGangs/server/internal/engine"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/config"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/simulation"
)

func newTestRuntime() *simulation.Runtime {
	eng := engine.NewEngine(config.DefaultSimulation(), random.NewScripted(), logger.NewDiscard())
	return simulation.New(simulation.Options{Engine: eng, EventRetention: 100, DrugRetention: 200})
}

func newTestMux(rt *simulation.Runtime) *http.ServeMux {
	mux := http.NewServeMux()
	NewAPI(rt, logger.NewDiscard()).RegisterRoutes(mux)
	NewReplayHandler(rt.Events(), rt.DrugLedger(), logger.NewDiscard()).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func TestCommandAndContextRoutes(t *testing.T) {
	rt := newTestRuntime()
	mux := newTestMux(rt)

	if rr := do(t, mux, "POST", "/api/command", `{"command":"enable"}`); rr.Code != http.StatusOK {
		t.Fatalf("enable: expected 200, got %d: %s", rr.Code, rr.Body)
	}
	do(t, mux, "POST", "/api/command", `{"command":"assign M1 GANG_1"}`)

	rr := do(t, mux, "GET", "/api/context/M1", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "[PRISON GANG STATUS]") {
		t.Errorf("unexpected context response %d: %s", rr.Code, rr.Body)
	}
	if rr := do(t, mux, "GET", "/api/context/GHOST", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown member, got %d", rr.Code)
	}

	tests := []struct {
		command string
		status  int
	}{
		{"fly away", http.StatusBadRequest},
		{"deal M1", http.StatusConflict},
		{"steal M1 GHOST", http.StatusNotFound},
		{"debug gangs", http.StatusOK},
	}
	for _, tt := range tests {
		rr := do(t, mux, "POST", "/api/command", `{"command":"`+tt.command+`"}`)
		if rr.Code != tt.status {
			t.Errorf("%q: expected %d, got %d: %s", tt.command, tt.status, rr.Code, rr.Body)
		}
	}

	var snap struct {
		Version uint64 `json:"version"`
		Enabled bool   `json:"enabled"`
	}
	rr = do(t, mux, "GET", "/api/snapshot", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil || !snap.Enabled {
		t.Errorf("unexpected snapshot body %s (%v)", rr.Body, err)
	}
}

func TestInteractionRoute(t *testing.T) {
	rt := newTestRuntime()
	mux := newTestMux(rt)
	do(t, mux, "POST", "/api/command", `{"command":"enable"}`)
	do(t, mux, "POST", "/api/command", `{"command":"assign M1 GANG_1"}`)
	do(t, mux, "POST", "/api/command", `{"command":"assign M2 GANG_1"}`)

	rr := do(t, mux, "POST", "/api/interaction", `{"speaker_id":"M1","listener_id":"M2","text":"thanks friend","conversation":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body)
	}
	if rt.InConversation() {
		t.Errorf("conversation must be closed after the request")
	}
	if rr := do(t, mux, "POST", "/api/interaction", `{"speaker_id":"GHOST","listener_id":"M2","text":"hey"}`); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown speaker, got %d", rr.Code)
	}
	if rr := do(t, mux, "POST", "/api/interaction", `{"speaker_id":"M1"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without listener, got %d", rr.Code)
	}
}

func TestReplayFilters(t *testing.T) {
	rt := newTestRuntime()
	mux := newTestMux(rt)
	do(t, mux, "POST", "/api/command", `{"command":"enable"}`)
	do(t, mux, "POST", "/api/command", `{"command":"assign M1 GANG_1"}`)

	var resp ReplayResponse
	rr := do(t, mux, "GET", "/api/events?type=GANG_FORMED", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.TotalEvents != 4 {
		t.Errorf("expected 4 gang formed events, got %d (%v)", resp.TotalEvents, err)
	}
	rr = do(t, mux, "GET", "/api/events?member=M1", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.TotalEvents != 1 {
		t.Errorf("expected 1 event involving M1, got %d (%v)", resp.TotalEvents, err)
	}
	rr = do(t, mux, "GET", "/api/events?limit=2", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.TotalEvents != 2 {
		t.Errorf("expected limit to apply, got %d (%v)", resp.TotalEvents, err)
	}
	if rr := do(t, mux, "GET", "/api/events?limit=-1", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rr.Code)
	}
}

func TestWebSocketCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := newTestRuntime()
	hub := NewHub(rt, logger.NewDiscard(), 16)
	go hub.Run(ctx)
	go hub.Forward(ctx, rt.Events())

	server := httptest.NewServer(hub.ServeWS(ctx))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(ClientAction{Type: ActionCommand, Command: "enable"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != MsgTypeCommandResult {
			continue
		}
		var reply simulation.Reply
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			t.Fatalf("decode reply: %v", err)
		}
		if reply.Result == nil || !reply.Result.OK() {
			t.Fatalf("expected enable to succeed, got %+v", reply)
		}
		break
	}
	if !rt.Snapshot().Enabled {
		t.Errorf("expected the runtime enabled through the socket")
	}
}
