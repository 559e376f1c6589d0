package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"choreboard/internal/notify"
)

// Frame is the wire form of an engine event pushed to connected clients.
type Frame struct {
	EventID      string         `json:"event_id"`
	Type         string         `json:"type"`
	OccurrenceID *int64         `json:"occurrence_id,omitempty"`
	MemberID     *int64         `json:"member_id,omitempty"`
	Summary      map[string]any `json:"summary,omitempty"`
}

// NewFrame converts an engine event into its broadcast form.
func NewFrame(ev notify.Event) Frame {
	return Frame{
		EventID:      ev.ID,
		Type:         string(ev.Kind),
		OccurrenceID: ev.OccurrenceID,
		MemberID:     ev.MemberID,
		Summary:      ev.Summary,
	}
}

// Hub maintains the set of active WebSocket clients and fans engine events
// out to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Deliver broadcasts one engine event. It satisfies the dispatcher's sink
// interface; a client with a full buffer misses the frame rather than
// blocking the rest.
func (h *Hub) Deliver(ctx context.Context, ev notify.Event) error {
	data, err := json.Marshal(NewFrame(ev))
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		case <-ctx.Done():
			return ctx.Err()
		default:
			h.logger.Debug("client buffer full, frame dropped", "event", ev.ID)
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
