package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"rundown/internal/auth"
	"rundown/internal/handler/sse"
	"rundown/internal/httputil"
	"rundown/internal/service/notify"

	"github.com/google/uuid"
)

// StreamHandler serves the per-rundown SSE subscription channel
type StreamHandler struct {
	hub        *notify.Hub
	authorizer auth.Authorizer
	sseConfig  *sse.Config
	logger     *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(
	hub *notify.Hub,
	authorizer auth.Authorizer,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *StreamHandler {
	return &StreamHandler{
		hub:        hub,
		authorizer: authorizer,
		sseConfig:  sseConfig,
		logger:     logger,
	}
}

// Stream subscribes the caller to a rundown's event channel
// GET /api/rundowns/{id}/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	actor := httputil.GetUserID(r)
	if err := h.authorizer.CanRead(r.Context(), actor, rundownID); err != nil {
		handleError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	subscriberID := uuid.New().String()
	events := h.hub.Subscribe(rundownID, subscriberID)
	defer h.hub.Unsubscribe(rundownID, subscriberID)

	h.logger.Info("stream subscribed",
		"rundown_id", rundownID,
		"subscriber_id", subscriberID,
		"actor", actor,
	)

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	keepAliveStopped := keepAlive.Start(sse.NewCommentWriter(w, flusher), h.logger)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("stream client disconnected",
				"rundown_id", rundownID,
				"subscriber_id", subscriberID,
			)
			return

		case <-keepAliveStopped:
			// Keep-alive detected a dead connection
			return

		case event, open := <-events:
			if !open {
				return
			}
			frame, err := event.EncodeSSE()
			if err != nil {
				h.logger.Warn("drop unencodable event",
					"rundown_id", rundownID,
					"event_type", event.Type,
					"error", err,
				)
				continue
			}
			if _, err := fmt.Fprint(w, frame); err != nil {
				h.logger.Debug("stream write failed",
					"rundown_id", rundownID,
					"subscriber_id", subscriberID,
					"error", err,
				)
				return
			}
			flusher.Flush()
		}
	}
}
