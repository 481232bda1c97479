package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/models"
)

// CaseEvent is the JSON frame pushed to connected UI sessions whenever a
// case changes.
type CaseEvent struct {
	Event        string    `json:"event"`
	TicketNumber string    `json:"ticketNumber"`
	Archived     bool      `json:"archived"`
	Timestamp    time.Time `json:"timestamp"`
}

// Hub maintains the set of active UI sessions and broadcasts case events
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// A reconnecting session replaces its old connection.
			if old, ok := h.clients[client.SessionID]; ok {
				close(old.send)
			}
			h.clients[client.SessionID] = client
			h.mu.Unlock()
			log.Printf("UI session connected: %s", client.SessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.SessionID]; ok && current == client {
				delete(h.clients, client.SessionID)
				close(client.send)
				log.Printf("UI session disconnected: %s", client.SessionID)
			}
			h.mu.Unlock()
		}
	}
}

// PublishCaseEvent implements rmacase.EventSink: every connected session
// receives the event so open list views can refresh.
func (h *Hub) PublishCaseEvent(event string, c *models.RmaCase) {
	frame := CaseEvent{
		Event:        event,
		TicketNumber: c.TicketNumber,
		Archived:     c.Archived(),
		Timestamp:    time.Now(),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("marshal case event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Slow consumer; drop the frame rather than block the caller.
		}
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
