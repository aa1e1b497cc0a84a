package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/models"
	"github.com/abrezinsky/rollcall/internal/services"
)

// Message types sent to organizer dashboards
const (
	TypeConnected     = "connected"
	TypeCheckIn       = "checkin"
	TypeCheckInStatus = "checkin_status"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // auth is checked before upgrade
	},
}

// EventSource is what the hub needs from the event service
type EventSource interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	CloseExpired(ctx context.Context) (int, error)
}

type outbound struct {
	eventID string
	msg     models.WSMessage
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	events     EventSource
}

var _ services.Broadcaster = (*Hub)(nil)

// Client is a middleman between the websocket connection and the hub.
// A client with an eventID only hears about that event.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan models.WSMessage
	eventID string
}

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, events EventSource) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     events,
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", total, "event_id", client.eventID)

			go h.greet(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

		case out := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				if client.eventID != "" && out.eventID != "" && client.eventID != out.eventID {
					continue
				}
				select {
				case client.send <- out.msg:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// greet sends a new client the current state of its event, if it chose one
func (h *Hub) greet(client *Client) {
	payload := map[string]interface{}{"event_id": client.eventID}
	if client.eventID != "" {
		if e, err := h.events.GetEvent(context.Background(), client.eventID); err == nil {
			payload["checkin_enabled"] = e.CheckInEnabled
			payload["checkin_deadline"] = e.CheckInDeadline
			payload["checkin_count"] = e.CheckInCount
		}
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.clients[client] {
		select {
		case client.send <- models.WSMessage{Type: TypeConnected, Payload: payload}:
		default:
		}
	}
}

// BroadcastMessage sends a message to all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.broadcast <- outbound{msg: models.WSMessage{Type: msgType, Payload: payload}}
}

// broadcastEvent sends a message to clients watching eventID or every event
func (h *Hub) broadcastEvent(eventID, msgType string, payload interface{}) {
	h.broadcast <- outbound{eventID: eventID, msg: models.WSMessage{Type: msgType, Payload: payload}}
}

// BroadcastCheckIn implements services.Broadcaster
func (h *Hub) BroadcastCheckIn(c models.CheckIn) {
	h.broadcastEvent(c.EventID, TypeCheckIn, map[string]interface{}{
		"id":            c.ID,
		"event_id":      c.EventID,
		"name":          c.Name,
		"email":         c.Email,
		"has_location":  c.Location != nil,
		"ip_address":    c.IPAddress,
		"checked_in_at": c.CheckedInAt,
	})
}

// BroadcastCheckInStatus implements services.Broadcaster
func (h *Hub) BroadcastCheckInStatus(eventID string, enabled bool, deadline *time.Time) {
	h.broadcastEvent(eventID, TypeCheckInStatus, map[string]interface{}{
		"event_id":         eventID,
		"checkin_enabled":  enabled,
		"checkin_deadline": deadline,
	})
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		// Dashboards only listen; anything they send is logged and dropped
		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Received message", "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, _ := json.Marshal(message)
			w.Write(msgBytes)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients. The optional event query
// parameter narrows the feed to one event.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan models.WSMessage, 256),
		eventID: r.URL.Query().Get("event"),
	}
	h.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}

// StartDeadlineWatcher closes check-in for events whose deadline has passed,
// checking every interval until ctx is done
func (h *Hub) StartDeadlineWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Deadline watcher stopped")
			return
		case <-ticker.C:
			h.closeExpired(ctx)
		}
	}
}

// closeExpired runs one deadline sweep; the event service broadcasts the
// resulting status changes through the hub
func (h *Hub) closeExpired(ctx context.Context) int {
	closed, err := h.events.CloseExpired(ctx)
	if err != nil {
		h.log.Error("Deadline sweep failed", "error", err)
		return 0
	}
	return closed
}
