package handler

import (
	"log/slog"
	"net/http"

	"rundown/internal/auth"
	rundownSvc "rundown/internal/domain/services/rundown"
	"rundown/internal/httputil"
)

// HistoryHandler handles operation-log history and snapshot HTTP requests
type HistoryHandler struct {
	history    rundownSvc.HistoryService
	snapshots  rundownSvc.SnapshotService
	authorizer auth.Authorizer
	logger     *slog.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(
	history rundownSvc.HistoryService,
	snapshots rundownSvc.SnapshotService,
	authorizer auth.Authorizer,
	logger *slog.Logger,
) *HistoryHandler {
	return &HistoryHandler{
		history:    history,
		snapshots:  snapshots,
		authorizer: authorizer,
		logger:     logger,
	}
}

// History returns one page of batched history entries
// GET /api/rundowns/{id}/history?window=&page=&page_size=
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.authorizer.CanRead(r.Context(), httputil.GetUserID(r), rundownID); err != nil {
		handleError(w, err)
		return
	}

	req := &rundownSvc.HistoryRequest{
		RundownID:     rundownID,
		WindowSeconds: queryInt(r, "window", 0),
		Page:          queryInt(r, "page", 0),
		PageSize:      queryInt(r, "page_size", 0),
	}

	entries, err := h.history.History(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entries)
}

// ListSnapshots returns snapshot metadata, newest first
// GET /api/rundowns/{id}/snapshots
func (h *HistoryHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.authorizer.CanRead(r.Context(), httputil.GetUserID(r), rundownID); err != nil {
		handleError(w, err)
		return
	}

	metas, err := h.snapshots.ListSnapshots(r.Context(), rundownID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, metas)
}

// Restore overwrites the rundown from a snapshot
// POST /api/rundowns/{id}/snapshots/{snapshotID}/restore
func (h *HistoryHandler) Restore(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	snapshotID, ok := pathUUID(w, r, "snapshotID")
	if !ok {
		return
	}

	actor := httputil.GetUserID(r)
	if err := h.authorizer.CanWrite(r.Context(), actor, rundownID); err != nil {
		handleError(w, err)
		return
	}

	result, err := h.snapshots.Restore(r.Context(), &rundownSvc.RestoreRequest{
		RundownID:  rundownID,
		SnapshotID: snapshotID,
		Actor:      actor,
		OriginTag:  httputil.GetOriginTag(r),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
