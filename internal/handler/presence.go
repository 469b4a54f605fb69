package handler

import (
	"log/slog"
	"net/http"

	"rundown/internal/auth"
	rundownSvc "rundown/internal/domain/services/rundown"
	"rundown/internal/httputil"
)

// PresenceHandler handles presence and playback-control HTTP requests
type PresenceHandler struct {
	presence   rundownSvc.PresenceService
	authorizer auth.Authorizer
	logger     *slog.Logger
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(
	presence rundownSvc.PresenceService,
	authorizer auth.Authorizer,
	logger *slog.Logger,
) *PresenceHandler {
	return &PresenceHandler{
		presence:   presence,
		authorizer: authorizer,
		logger:     logger,
	}
}

// Heartbeat refreshes the caller's presence record
// POST /api/rundowns/{id}/presence/heartbeat
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	actor := httputil.GetUserID(r)
	if err := h.authorizer.CanRead(r.Context(), actor, rundownID); err != nil {
		handleError(w, err)
		return
	}

	var req rundownSvc.HeartbeatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.RundownID = rundownID
	req.Actor = actor

	if err := h.presence.Heartbeat(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ActivePresence lists presences inside the liveness window
// GET /api/rundowns/{id}/presence
func (h *PresenceHandler) ActivePresence(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.authorizer.CanRead(r.Context(), httputil.GetUserID(r), rundownID); err != nil {
		handleError(w, err)
		return
	}

	presences, err := h.presence.ActivePresence(r.Context(), rundownID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, presences)
}

// ClaimControl makes the caller the advisory playback controller
// POST /api/rundowns/{id}/control/claim
func (h *PresenceHandler) ClaimControl(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	actor := httputil.GetUserID(r)
	if err := h.authorizer.CanWrite(r.Context(), actor, rundownID); err != nil {
		handleError(w, err)
		return
	}

	granted, err := h.presence.ClaimControl(r.Context(), rundownID, actor)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"granted": granted})
}

// PublishPlayback broadcasts the playback cursor
// POST /api/rundowns/{id}/playback
func (h *PresenceHandler) PublishPlayback(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	actor := httputil.GetUserID(r)
	if err := h.authorizer.CanWrite(r.Context(), actor, rundownID); err != nil {
		handleError(w, err)
		return
	}

	var req rundownSvc.PlaybackRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.RundownID = rundownID
	req.Actor = actor
	req.OriginTag = httputil.GetOriginTag(r)

	if err := h.presence.PublishPlayback(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
