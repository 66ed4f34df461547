package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/metrics"
	"github.com/MRamiBalles/CarcelGangs/server/internal/simulation"
)

// Outbound message types.
const (
	MsgTypeEvent             = "event"
	MsgTypeInteractionResult = "interaction_result"
	MsgTypeCommandResult     = "command_result"
	MsgTypeError             = "error"
)

// Message is what the server writes to a WebSocket client.
type Message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	runtime    *simulation.Runtime
	metrics    *metrics.Collector
	logger     *logger.Logger
	sendBuffer int
}

// NewHub initializes a new WebSocket Hub serving one runtime.
func NewHub(rt *simulation.Runtime, log *logger.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		broadcast:  make(chan []byte),
		direct:     make(chan directMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		runtime:    rt,
		metrics:    rt.Metrics(),
		logger:     log,
		sendBuffer: sendBuffer,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.direct:
			h.mu.Lock()
			if _, ok := h.clients[msg.client]; ok {
				h.deliver(msg.client, msg.payload)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver queues a message; a client whose buffer is full is dropped.
// Callers hold h.mu.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
		h.metrics.RecordWSMessage(false)
	default:
		h.metrics.RecordWSError()
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	close(client.send)
	delete(h.clients, client)
	h.metrics.RecordWSConnection(-1)
}

// ClientCount reports the connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func encode(msgType string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: msgType, Timestamp: time.Now().Unix(), Payload: payload})
}

// BroadcastEvent serializes a GameEvent and sends it to all connected clients.
func (h *Hub) BroadcastEvent(ctx context.Context, event events.GameEvent) {
	payload, err := encode(MsgTypeEvent, event)
	if err != nil {
		h.logger.Error("Failed to serialize GameEvent for WebSocket broadcast", "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-ctx.Done():
	}
}

// sendTo writes a message to one client through the hub loop.
func (h *Hub) sendTo(ctx context.Context, c *Client, msgType string, payload interface{}) {
	data, err := encode(msgType, payload)
	if err != nil {
		h.logger.Error("Failed to serialize reply", "error", err)
		return
	}
	select {
	case h.direct <- directMessage{client: c, payload: data}:
	case <-ctx.Done():
	}
}

// Forward subscribes to the event log and broadcasts every appended event
// until ctx is done. Call in a goroutine.
func (h *Hub) Forward(ctx context.Context, log *events.EventLog) {
	ch, cancel := log.Subscribe(h.sendBuffer)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			h.BroadcastEvent(ctx, e)
		}
	}
}
