package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// EventSource reads back entries from a durable event stream.
type EventSource interface {
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error)
}

// EventHandler serves the comparison event backfill endpoint. WebSocket
// clients that missed frames read the durable stream from their last seen
// ID before resuming the live feed.
type EventHandler struct {
	bus    EventSource
	stream string
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler reading the given stream.
func NewEventHandler(bus EventSource, stream string, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		bus:    bus,
		stream: stream,
		logger: logHandler(logger, "events"),
	}
}

// streamEvent is one stream entry with its payload passed through as-is.
type streamEvent struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

type listEventsResponse struct {
	Events []streamEvent `json:"events"`
	Total  int           `json:"total"`
	LastID string        `json:"last_id,omitempty"`
}

// ListEvents returns comparison events appended after the given stream ID,
// oldest first. The returned last_id feeds the next request's after
// parameter.
// GET /api/events?after=1756700000000-0&limit=100
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	after := q.Get("after")
	if after == "" {
		after = "0"
	}

	limit := 100
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > 1000 {
			n = 1000
		}
		limit = n
	}

	msgs, err := h.bus.StreamRead(r.Context(), h.stream, after, limit)
	if err != nil {
		h.logger.Error("stream read failed",
			slog.String("stream", h.stream),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "event stream unavailable")
		return
	}

	events := make([]streamEvent, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, streamEvent{ID: m.ID, Payload: json.RawMessage(m.Payload)})
	}

	resp := listEventsResponse{Events: events, Total: len(events)}
	if len(events) > 0 {
		resp.LastID = events[len(events)-1].ID
	}
	writeJSON(w, http.StatusOK, resp)
}
