package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"bm-camera-control/internal/camera"
)

// Hub fans projected Views out to every connected browser panel. It is the
// session's Projector while the server runs.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]chan []byte
	last    []byte
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, clients: make(map[string]chan []byte)}
}

// Project encodes v once and offers it to each client without blocking
func (h *Hub) Project(v camera.View) {
	msg, err := json.Marshal(envelope{Type: "view", Data: v})
	if err != nil {
		h.logger.Error("encode view", "error", err)
		return
	}

	h.mu.Lock()
	h.last = msg
	h.mu.Unlock()

	h.Broadcast(msg)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.logger.Warn("ws client channel full, dropping message", "client", id)
		}
	}
}

// Register adds a client and returns its channel, primed with the latest view
func (h *Hub) Register(id string) chan []byte {
	ch := make(chan []byte, 16)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last != nil {
		ch <- h.last
	}
	h.clients[id] = ch
	return ch
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
