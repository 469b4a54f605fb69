package rundown

import (
	"context"

	models "rundown/internal/domain/models/rundown"
)

// PresenceService tracks who is viewing or editing which cell, and which
// actor controls the shared playback cursor.
type PresenceService interface {
	// Heartbeat upserts the actor's presence and resets its liveness timer.
	Heartbeat(ctx context.Context, req *HeartbeatRequest) error

	// ActivePresence lists presences inside the liveness window.
	ActivePresence(ctx context.Context, rundownID string) ([]models.Presence, error)

	// ClaimControl makes actor the single live controller of the rundown's
	// playback clock, implicitly demoting a previous controller. Control is
	// advisory: demotion never blocks the demoted client's content edits.
	ClaimControl(ctx context.Context, rundownID, actor string) (granted bool, err error)

	// PublishPlayback broadcasts the playback cursor on the low-guarantee
	// channel. No version bump, no updated_at stamp, no snapshot.
	PublishPlayback(ctx context.Context, req *PlaybackRequest) error
}

// HeartbeatRequest is one presence heartbeat.
type HeartbeatRequest struct {
	RundownID  string
	Actor      string
	ActiveCell *string `json:"active_cell,omitempty"`
}

// PlaybackRequest is one playback-cursor update from the controller.
type PlaybackRequest struct {
	RundownID string
	Actor     string
	OriginTag string
	RowID     *string `json:"row_id,omitempty"`
	ElapsedMs int64   `json:"elapsed_ms"`
	Running   bool    `json:"running"`
}

// Notifier fans accepted mutations out to every subscriber of a rundown.
// Implementations must never block the write path: slow subscribers drop.
type Notifier interface {
	Publish(event models.Event)
}
