package sse

import (
	"fmt"
	"net/http"
)

// CommentWriter writes SSE comment lines (": keepalive") to keep a
// subscription connection open through proxies that reap idle streams.
type CommentWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewCommentWriter creates a keep-alive writer over an SSE response.
func NewCommentWriter(w http.ResponseWriter, flusher http.Flusher) *CommentWriter {
	return &CommentWriter{w: w, flusher: flusher}
}

// WriteKeepAlive writes an SSE comment and flushes. Lines starting with
// ":" are ignored by EventSource clients.
func (c *CommentWriter) WriteKeepAlive() error {
	if _, err := fmt.Fprintf(c.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	c.flusher.Flush()

	// Zero-byte write to surface a closed connection
	if _, err := c.w.Write([]byte{}); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}

	return nil
}
