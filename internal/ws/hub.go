package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomEvent is an internal struct for routing events to a specific room
type roomEvent struct {
	Room  string
	Event Event
}

// UserRoom names the room that carries one user's order updates.
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// CanteenRoom names the room that carries one canteen's order feed.
func CanteenRoom(canteenID uuid.UUID) string {
	return "canteen:" + canteenID.String()
}

// Hub maintains the set of active clients and broadcasts messages to them.
// A customer joins their user room; a canteen admin additionally joins the
// canteen room, so both sides see the same order events live.
type Hub struct {
	// Registered clients by room name
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *roomEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			for _, room := range client.roomNames {
				if h.rooms[room] == nil {
					h.rooms[room] = make(map[*Client]bool)
				}
				h.rooms[room][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.Room]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop the connection
					h.removeClient(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// removeClient drops a client from every room it joined. Caller holds h.mu.
func (h *Hub) removeClient(client *Client) {
	removed := false
	for _, room := range client.roomNames {
		clients, ok := h.rooms[room]
		if !ok {
			continue
		}
		if _, exists := clients[client]; exists {
			delete(clients, client)
			removed = true
			// Clean up empty rooms
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	if removed {
		close(client.send)
	}
}

// Broadcast sends an event to all clients subscribed to a room.
// This is the public API for handlers to push order events.
func (h *Hub) Broadcast(room string, event Event) {
	h.broadcast <- &roomEvent{Room: room, Event: event}
}
