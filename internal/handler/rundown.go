package handler

import (
	"log/slog"
	"net/http"

	"rundown/internal/auth"
	rundownSvc "rundown/internal/domain/services/rundown"
	"rundown/internal/httputil"
)

// RundownHandler handles rundown document HTTP requests
type RundownHandler struct {
	docs       rundownSvc.DocumentService
	mutations  rundownSvc.MutationService
	authorizer auth.Authorizer
	logger     *slog.Logger
}

// NewRundownHandler creates a new rundown handler
func NewRundownHandler(
	docs rundownSvc.DocumentService,
	mutations rundownSvc.MutationService,
	authorizer auth.Authorizer,
	logger *slog.Logger,
) *RundownHandler {
	return &RundownHandler{
		docs:       docs,
		mutations:  mutations,
		authorizer: authorizer,
		logger:     logger,
	}
}

// CreateRundown creates a new rundown
// POST /api/rundowns
func (h *RundownHandler) CreateRundown(w http.ResponseWriter, r *http.Request) {
	actor := httputil.GetUserID(r)

	var req rundownSvc.CreateRundownRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Actor = actor

	created, err := h.docs.CreateRundown(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, created)
}

// GetRundown returns the full client-facing state of one rundown
// GET /api/rundowns/{id}
func (h *RundownHandler) GetRundown(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.authorizer.CanRead(r.Context(), httputil.GetUserID(r), rundownID); err != nil {
		handleError(w, err)
		return
	}

	state, err := h.docs.GetRundown(r.Context(), rundownID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, state)
}

// ApplyFieldUpdate applies one field-level mutation
// POST /api/rundowns/{id}/fields
func (h *RundownHandler) ApplyFieldUpdate(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	actor := httputil.GetUserID(r)
	if err := h.authorizer.CanWrite(r.Context(), actor, rundownID); err != nil {
		handleError(w, err)
		return
	}

	var req rundownSvc.FieldUpdateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.RundownID = rundownID
	req.Actor = actor
	req.OriginTag = httputil.GetOriginTag(r)

	result, err := h.mutations.ApplyFieldUpdate(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// ApplyStructuralOp applies one row-sequence mutation
// POST /api/rundowns/{id}/structure
func (h *RundownHandler) ApplyStructuralOp(w http.ResponseWriter, r *http.Request) {
	rundownID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	actor := httputil.GetUserID(r)
	if err := h.authorizer.CanWrite(r.Context(), actor, rundownID); err != nil {
		handleError(w, err)
		return
	}

	var req rundownSvc.StructuralOpRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.RundownID = rundownID
	req.Actor = actor
	req.OriginTag = httputil.GetOriginTag(r)

	result, err := h.mutations.ApplyStructuralOp(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
