package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/canteen-pos/api/internal/notify"
)

// Message is the frame written to a push channel.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// roomMessage routes an encoded frame to one room.
type roomMessage struct {
	room string
	data []byte
}

// Hub keeps the live push channels grouped by target room (one room per user,
// per station screen, and one for management) and fans messages out to them.
type Hub struct {
	// Registered clients by room key (notify.Target.String())
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound frames; Deliver drops when full
	broadcast chan *roomMessage

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[msg.room] {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer: drop the channel, the client reconnects and polls
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

// Connected reports how many live channels the room for target has.
func (h *Hub) Connected(target notify.Target) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[target.String()])
}

// Deliver implements notify.Sink. It encodes the event once and hands it to
// the hub loop without waiting; a target with no live channel misses it.
func (h *Hub) Deliver(_ context.Context, ev notify.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Message{Type: ev.Name, Payload: payload, At: ev.At})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- &roomMessage{room: ev.Target.String(), data: data}:
	default:
		log.Printf("WARN: websocket hub backlog full, dropping %s for %s", ev.Name, ev.Target)
	}
	return nil
}
