package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/middleware"
)

const snapshotTimeout = 5 * time.Second

// SubmissionLookup resolves the submission a connection wants to watch
type SubmissionLookup interface {
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
}

// Handler for WebSocket connections
type Handler struct {
	hub         *Hub
	submissions SubmissionLookup
	logger      zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, submissions SubmissionLookup, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:         hub,
		submissions: submissions,
		logger:      logger,
	}
}

// HandleConnection godoc
// @Summary Watch a submission
// @Description Upgrades to a WebSocket that first sends the current status, then an event whenever the submission is corrected or deleted
// @Tags submissions, websocket
// @Param id path string true "Submission ID"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 404 {object} dto.APIResponse "Submission not found"
// @Router /submissions/{id}/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	id := c.Param("id")

	if _, err := h.submissions.GetSubmission(c.Request.Context(), id); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("submissionID", id).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:          h.hub,
		conn:         conn,
		send:         make(chan []byte, 16),
		submissionID: id,
		logger:       h.logger,
		snapshot: func() ([]byte, error) {
			return h.snapshot(id)
		},
	}

	if !h.hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.logger.Debug().
		Str("submissionID", id).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
}

// snapshot encodes the current state of a submission
func (h *Handler) snapshot(id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	submission, err := h.submissions.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Event{
		Type:         EventSnapshot,
		SubmissionID: submission.ID,
		Status:       submission.Status,
		Correction:   submission.Correction,
		Timestamp:    h.hub.now(),
	})
}
