package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"livearena/internal/relay"
	"livearena/models"

	"github.com/gorilla/websocket"
)

// Hub maps each event ID to the set of live connections joined to it
// and fans server events out to them. It implements
// services.Broadcaster; with a relay attached, broadcasts also reach
// rooms hosted by other instances.
type Hub struct {
	mutex sync.RWMutex
	rooms map[string]*Room
	relay *relay.Relay
}

// Room holds the connections joined to one event. sendMu serializes
// fanout so every member observes concurrent broadcasts in one order.
type Room struct {
	eventID string
	mutex   sync.RWMutex
	sendMu  sync.Mutex
	clients map[*websocket.Conn]*Client
}

// Client is one live connection with its room identity.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	ConnID  string
	UserID  string
	Name    string
	Role    models.Role
	EventID string
}

// SafeWriteJSON serializes writes on the connection so concurrent
// broadcasts cannot interleave frames.
func (cl *Client) SafeWriteJSON(v interface{}) error {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()
	return cl.conn.WriteJSON(v)
}

// SendEvent delivers a single server event to this connection only.
func (cl *Client) SendEvent(event string, payload interface{}) {
	err := cl.SafeWriteJSON(ServerEvent{
		Type:      event,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Printf("WebSocket write error to %s (conn %s): %v", cl.UserID, cl.ConnID, err)
	}
}

// SendError surfaces a failure to the originating connection.
func (cl *Client) SendError(message string) {
	cl.SendEvent("error", map[string]interface{}{"message": message})
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*Room),
	}
}

// AttachRelay wires the cross-instance relay into the hub.
func (h *Hub) AttachRelay(r *relay.Relay) {
	h.relay = r
}

// Join registers the connection in the event's room, creating the room
// on first join.
func (h *Hub) Join(client *Client) {
	h.mutex.Lock()
	room, exists := h.rooms[client.EventID]
	if !exists {
		room = &Room{
			eventID: client.EventID,
			clients: make(map[*websocket.Conn]*Client),
		}
		h.rooms[client.EventID] = room
		log.Printf("Created room for event %s", client.EventID)
		h.relay.Subscribe(client.EventID)
	}
	h.mutex.Unlock()

	room.mutex.Lock()
	room.clients[client.conn] = client
	count := len(room.clients)
	room.mutex.Unlock()
	log.Printf("Client %s (conn %s) joined event %s as %s (total clients: %d)", client.UserID, client.ConnID, client.EventID, client.Role, count)
}

// Leave removes the connection from its room. Session state is not
// touched: a participant's scores survive a disconnect.
func (h *Hub) Leave(client *Client) {
	h.mutex.Lock()
	room, exists := h.rooms[client.EventID]
	h.mutex.Unlock()
	if !exists {
		return
	}

	room.mutex.Lock()
	delete(room.clients, client.conn)
	empty := len(room.clients) == 0
	room.mutex.Unlock()
	log.Printf("Client %s (conn %s) left event %s", client.UserID, client.ConnID, client.EventID)

	if empty {
		h.mutex.Lock()
		if current, ok := h.rooms[client.EventID]; ok && current == room {
			delete(h.rooms, client.EventID)
		}
		h.mutex.Unlock()
		h.relay.Unsubscribe(client.EventID)
		log.Printf("Room for event %s deleted as it became empty", client.EventID)
	}
}

// Roster returns the clients currently joined to an event, optionally
// filtered by role.
func (h *Hub) Roster(eventID string, role models.Role) []*Client {
	h.mutex.RLock()
	room, exists := h.rooms[eventID]
	h.mutex.RUnlock()
	if !exists {
		return nil
	}

	room.mutex.RLock()
	defer room.mutex.RUnlock()
	out := make([]*Client, 0, len(room.clients))
	for _, cl := range room.clients {
		if role == "" || cl.Role == role {
			out = append(out, cl)
		}
	}
	return out
}

// Broadcast delivers an event to every connection joined to the event,
// here and on other instances through the relay.
func (h *Hub) Broadcast(eventID, event string, payload interface{}) {
	h.broadcast(eventID, event, payload, nil)
	h.relay.Publish(eventID, event, payload)
}

// BroadcastExcept is Broadcast minus the originating connection.
func (h *Hub) BroadcastExcept(eventID, event string, payload interface{}, exclude *Client) {
	var conn *websocket.Conn
	if exclude != nil {
		conn = exclude.conn
	}
	h.broadcast(eventID, event, payload, conn)
	h.relay.Publish(eventID, event, payload)
}

// BroadcastLocal delivers a relayed event to this instance's room only.
func (h *Hub) BroadcastLocal(eventID, event string, payload json.RawMessage) {
	h.broadcast(eventID, event, payload, nil)
}

func (h *Hub) broadcast(eventID, event string, payload interface{}, exclude *websocket.Conn) {
	h.mutex.RLock()
	room, exists := h.rooms[eventID]
	h.mutex.RUnlock()
	if !exists {
		return
	}

	room.sendMu.Lock()
	defer room.sendMu.Unlock()

	room.mutex.RLock()
	recipients := make([]*Client, 0, len(room.clients))
	for conn, cl := range room.clients {
		if conn != exclude {
			recipients = append(recipients, cl)
		}
	}
	room.mutex.RUnlock()

	frame := ServerEvent{
		Type:      event,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
	for _, cl := range recipients {
		if err := cl.SafeWriteJSON(frame); err != nil {
			log.Printf("WebSocket write error in event %s: %v", eventID, err)
		}
	}
}
