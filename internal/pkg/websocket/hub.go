package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
)

// Event types pushed to watchers of a submission
const (
	EventSnapshot  = "snapshot"
	EventCorrected = "corrected"
	EventDeleted   = "deleted"
)

// Event is one notification about a submission sent over WebSocket
type Event struct {
	Type         string                  `json:"type"`
	SubmissionID string                  `json:"submissionId"`
	Status       models.SubmissionStatus `json:"status,omitempty"`
	Correction   *models.Correction      `json:"correction,omitempty"`
	Timestamp    time.Time               `json:"timestamp"`
}

// Hub keeps the open connections per submission and fans events out to them
type Hub struct {
	// Registered clients organized by submission ID. Only Run mutates it.
	clients map[string]map[*Client]bool

	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// guards clients for readers outside Run
	mu sync.RWMutex

	logger zerolog.Logger
	now    func() time.Time
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		now:        time.Now,
	}
}

// Run handles registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.submissionID]; !ok {
		h.clients[client.submissionID] = make(map[*Client]bool)
	}
	h.clients[client.submissionID][client] = true

	// read after registering so no correction falls between the read and the first event
	if client.snapshot != nil {
		data, err := client.snapshot()
		if err != nil {
			h.logger.Debug().Err(err).Str("submissionID", client.submissionID).Msg("Snapshot failed, dropping client")
			h.removeClientLocked(client)
			return
		}
		client.send <- data
	}

	h.logger.Debug().
		Str("submissionID", client.submissionID).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Client registered")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeClientLocked(client)
}

func (h *Hub) removeClientLocked(client *Client) {
	watchers, ok := h.clients[client.submissionID]
	if !ok || !watchers[client] {
		return
	}
	delete(watchers, client)
	close(client.send)
	if len(watchers) == 0 {
		delete(h.clients, client.submissionID)
	}

	h.logger.Debug().
		Str("submissionID", client.submissionID).
		Msg("Client unregistered")
}

func (h *Hub) broadcastEvent(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("submissionID", event.SubmissionID).Msg("Failed to marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	watchers := h.clients[event.SubmissionID]
	for client := range watchers {
		select {
		case client.send <- data:
		default:
			// slow reader, drop it
			h.removeClientLocked(client)
		}
	}

	// nothing left to watch once the submission is gone
	if event.Type == EventDeleted {
		for client := range h.clients[event.SubmissionID] {
			h.removeClientLocked(client)
		}
	}

	h.logger.Debug().
		Str("submissionID", event.SubmissionID).
		Str("type", event.Type).
		Int("clientCount", len(watchers)).
		Msg("Event broadcasted")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, watchers := range h.clients {
		for client := range watchers {
			h.removeClientLocked(client)
		}
	}
}

// Publish queues an event for broadcast. Events are dropped when the queue is full.
func (h *Hub) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = h.now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("submissionID", event.SubmissionID).Msg("Event queue full, dropping event")
	}
}

// SubmissionCorrected notifies watchers that a grade was recorded
func (h *Hub) SubmissionCorrected(submission *models.Submission) {
	h.Publish(&Event{
		Type:         EventCorrected,
		SubmissionID: submission.ID,
		Status:       submission.Status,
		Correction:   submission.Correction,
	})
}

// SubmissionDeleted notifies watchers that the submission was removed
func (h *Hub) SubmissionDeleted(id string) {
	h.Publish(&Event{Type: EventDeleted, SubmissionID: id})
}

// ClientsCount returns the number of connections watching a submission
func (h *Hub) ClientsCount(submissionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[submissionID])
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
