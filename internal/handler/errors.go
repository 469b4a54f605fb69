package handler

import (
	"errors"
	"net/http"

	"rundown/internal/domain"
	"rundown/internal/httputil"
)

// handleError converts domain errors to RFC 7807 responses. The two
// conflict shapes carry extras: an unsafe-wipe rejection names the force
// path, a busy rejection tells the client to retry.
func handleError(w http.ResponseWriter, err error) {
	var wipeErr *domain.UnsafeWipeError
	if errors.As(err, &wipeErr) {
		httputil.RespondErrorWithExtras(w, http.StatusConflict, wipeErr.Error(), map[string]interface{}{
			"old_rows": wipeErr.OldRows,
			"force":    "resubmit the structural op with force=true to confirm the wipe",
		})
		return
	}

	var busyErr *domain.BusyError
	if errors.As(err, &busyErr) {
		httputil.RespondErrorWithExtras(w, http.StatusConflict, busyErr.Error(), map[string]interface{}{
			"retryable": true,
		})
		return
	}

	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
