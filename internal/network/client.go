package network

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CarcelGangs/server/internal/engine"
	"github.com/MRamiBalles/CarcelGangs/server/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
	// Minimum gap between two actions of one client.
	minActionGap = 50 * time.Millisecond
)

// Inbound message types.
const (
	ActionInteraction       = "interaction"
	ActionCommand           = "command"
	ActionConversationStart = "conversation_start"
	ActionConversationEnd   = "conversation_end"
)

// ClientAction represents an incoming message from a host UI or agent.
type ClientAction struct {
	Type        string              `json:"type"`
	Interaction *engine.Interaction `json:"interaction,omitempty"`
	Command     string              `json:"command,omitempty"`
}

// InteractionReply is sent back to the speaker's client after a turn.
type InteractionReply struct {
	Failure *engine.Failure     `json:"failure,omitempty"`
	Events  []events.GameEvent  `json:"events"`
	Context string              `json:"context,omitempty"`
	Turn    *engine.Interaction `json:"turn"`
}

// Client holds one WebSocket connection.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	lastActionTime time.Time
	inConversation bool
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.sendBuffer),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// ReadPump pumps messages from the websocket connection to the runtime.
// A conversation left open by the client is closed when it disconnects.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		if c.inConversation {
			c.hub.runtime.EndConversation()
		}
		select {
		case c.hub.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read failed", "error", err)
				c.hub.metrics.RecordWSError()
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action ClientAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Warn("Failed to parse ClientAction from WebSocket", "error", err)
			c.hub.sendTo(ctx, c, MsgTypeError, "invalid message")
			continue
		}

		c.handleAction(ctx, action)
	}
}

func (c *Client) handleAction(ctx context.Context, action ClientAction) {
	if time.Since(c.lastActionTime) < minActionGap {
		c.hub.sendTo(ctx, c, MsgTypeError, "rate limited")
		return
	}
	c.lastActionTime = time.Now()

	switch action.Type {
	case ActionConversationStart:
		if !c.inConversation {
			c.inConversation = true
			c.hub.runtime.BeginConversation()
		}
	case ActionConversationEnd:
		if c.inConversation {
			c.inConversation = false
			c.hub.runtime.EndConversation()
		}
	case ActionInteraction:
		c.handleInteraction(ctx, action.Interaction)
	case ActionCommand:
		c.handleCommand(ctx, action.Command)
	default:
		c.hub.logger.Warn("Unknown ClientAction type", "type", action.Type)
		c.hub.sendTo(ctx, c, MsgTypeError, "unknown action type "+action.Type)
	}
}

func (c *Client) handleInteraction(ctx context.Context, in *engine.Interaction) {
	if in == nil {
		c.hub.sendTo(ctx, c, MsgTypeError, "missing interaction")
		return
	}
	res, err := c.hub.runtime.Interact(ctx, *in)
	if err != nil {
		c.hub.logger.Warn("interaction persisted with errors", "error", err)
	}

	reply := InteractionReply{Failure: res.Failure, Events: engine.ConversationEvents(res.Events), Turn: in}
	if reply.Events == nil {
		reply.Events = []events.GameEvent{}
	}
	if res.OK() {
		reply.Context, _ = c.hub.runtime.Context(in.SpeakerID)
	}
	c.hub.sendTo(ctx, c, MsgTypeInteractionResult, reply)
}

func (c *Client) handleCommand(ctx context.Context, line string) {
	reply, err := c.hub.runtime.Execute(ctx, line)
	if err != nil {
		c.hub.sendTo(ctx, c, MsgTypeError, err.Error())
		return
	}
	c.hub.sendTo(ctx, c, MsgTypeCommandResult, reply)
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // UI and agents connect from other origins during development
	},
}

// ServeWS upgrades requests to WebSocket clients of the hub. ctx bounds the
// lifetime of every client it creates.
func (h *Hub) ServeWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("Failed to upgrade websocket connection", "error", err)
			return
		}

		client := NewClient(h, conn)
		client.Register()

		go client.WritePump()
		go client.ReadPump(ctx)
	}
}
