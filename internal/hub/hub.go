// Package hub fans structured queue events out to connected display and
// terminal clients. Delivery is best-effort, at-most-once: a client that
// cannot keep up is dropped or pruned, never retried.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nguyenthanhak8-hue/LSTD/internal/metrics"
)

const (
	EventNewTicket    = "new_ticket"
	EventTicketCalled = "ticket_called"
)

// Event is the wire format pushed to observers. Tenxa carries the tenant
// slug; Timestamp is ISO-8601 in the reference timezone.
type Event struct {
	Event        string `json:"event"`
	TicketNumber int    `json:"ticket_number"`
	CounterID    int64  `json:"counter_id,omitempty"`
	CounterName  string `json:"counter_name,omitempty"`
	Tenxa        string `json:"tenxa"`
	Timestamp    string `json:"timestamp,omitempty"`
}

type Client struct {
	ID    string
	Send  chan []byte
	Tenxa string
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Hub {
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	metrics.SetConnectedClients(len(h.clients))
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
	metrics.SetConnectedClients(len(h.clients))
}

// Subscribe narrows the client to one tenant's events. An empty slug
// receives everything.
func (h *Hub) Subscribe(client *Client, tenxa string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Tenxa = tenxa
}

// Broadcast serializes the event and offers it to every matching observer
// without blocking. A full send buffer counts as a failed delivery and the
// message is dropped for that client.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("hub marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.Tenxa != "" && client.Tenxa != event.Tenxa {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			metrics.BroadcastDropped()
			h.logger.Warn("hub drop message", "client", client.ID, "event", event.Event)
		}
	}
}

// ClientCount reports the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
