package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	userIDKey    contextKey = "userID"
	originTagKey contextKey = "originTag"
)

// WithUserID adds userID to the request context
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// WithOriginTag adds the client connection tag to the request context.
// The tag is opaque; it exists so broadcasts can be attributed back to
// the connection that issued the write (echo suppression).
func WithOriginTag(r *http.Request, tag string) *http.Request {
	ctx := context.WithValue(r.Context(), originTagKey, tag)
	return r.WithContext(ctx)
}

// GetOriginTag retrieves the client connection tag, empty if not set.
func GetOriginTag(r *http.Request) string {
	tag, _ := r.Context().Value(originTagKey).(string)
	return tag
}
