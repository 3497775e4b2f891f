package eventws

import (
	"context"
	"encoding/json"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/models"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 32
)

// Hub fans session and payment events out to connected dashboards. Staff
// receive every event; teachers receive events for their own sessions.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.Event
	done       chan struct{}
	logger     *zap.Logger
}

type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	actor domain.Actor
	send  chan []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.Event, 64),
		done:       make(chan struct{}),
		logger:     logging.OrNop(logger),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, actor domain.Actor) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		actor: actor,
		send:  make(chan []byte, clientSendSize),
	}
}

// Run serves registrations and deliveries until ctx is cancelled, then closes
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.closeAll()
		close(h.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			key := client.actor.ID.String()
			set, ok := h.clients[key]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[key] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			h.remove(client)
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Register adds client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for delivery. It never blocks the caller; events
// are dropped when the queue is full.
func (h *Hub) Publish(event models.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("event dropped, broadcast queue full",
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.SessionID.String()),
		)
	}
}

func (h *Hub) deliver(event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	for _, set := range h.clients {
		for client := range set {
			if !client.receives(event) {
				continue
			}
			select {
			case client.send <- payload:
			default:
				h.logger.Warn("slow event client dropped", zap.String("user_id", client.actor.ID.String()))
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	key := client.actor.ID.String()
	set, ok := h.clients[key]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.clients, key)
	}
}

func (h *Hub) closeAll() {
	for _, set := range h.clients {
		for client := range set {
			h.remove(client)
		}
	}
}

func (c *Client) receives(event models.Event) bool {
	if domain.Can(c.actor, domain.CapViewAllSessions) {
		return true
	}
	return event.TeacherID == c.actor.ID
}

// ReadPump keeps the connection alive and discards anything the client
// sends. The feed is one-way.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
