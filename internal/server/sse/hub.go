package sse

import (
	"encoding/json"
	"sync"

	"facetrack-go/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// Client represents a single connected SSE client: a channel carrying the
// messages destined for it.
type Client chan []byte

// Hub manages the set of active dashboard clients and broadcasts newly
// logged recognition events to them.
type Hub struct {
	clients    map[Client]bool
	broadcast  chan []byte
	register   chan Client
	unregister chan Client
	mu         sync.Mutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 16),
		register:   make(chan Client),
		unregister: make(chan Client),
		clients:    make(map[Client]bool),
	}
}

// Run starts the hub's processing loop. Run it in its own goroutine.
func (h *Hub) Run() {
	log.Info("SSE hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debugf("SSE client registered. Total clients: %d", len(h.clients))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
				log.Debugf("SSE client unregistered. Total clients: %d", len(h.clients))
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				// Non-blocking send: a slow client loses the message rather
				// than stalling the hub.
				select {
				case client <- message:
				default:
					log.Warn("SSE client channel full, skipping message")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a new client to the hub.
func (h *Hub) Register(client Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client Client) {
	h.unregister <- client
}

// Broadcast sends a raw message to all registered clients without blocking
// the caller.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Warn("SSE broadcast channel full, message dropped")
	}
}

// BroadcastEvent formats and broadcasts a newly logged recognition event.
func (h *Hub) BroadcastEvent(event models.RecognitionEvent) {
	jsonData, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Failed to marshal recognition event for SSE: %v", err)
		return
	}
	h.Broadcast(jsonData)
}
