package rundown

import (
	"encoding/json"
	"fmt"
)

// EventType classifies broadcast events on the per-rundown channel.
type EventType string

const (
	// EventContent carries a committed content mutation and its resulting
	// version.
	EventContent EventType = "content"
	// EventPresence carries presence joins/leaves/heartbeats.
	EventPresence EventType = "presence"
	// EventPlayback carries the live playback cursor. Lower-guarantee
	// channel: never bumps version or updated_at.
	EventPlayback EventType = "playback"
)

// Event is one message on a rundown's subscription channel.
//
// OriginTag identifies the client connection that issued the originating
// write. Each subscriber compares it against its own tag and discards its
// own echoes, so a just-applied local edit is not visibly overwritten.
type Event struct {
	Type      EventType   `json:"type"`
	RundownID string      `json:"rundown_id"`
	Payload   interface{} `json:"payload"`
	OriginTag string      `json:"origin_tag,omitempty"`
	Version   int64       `json:"version,omitempty"`
}

// ContentChange is the payload of an EventContent event: the changed
// fields plus enough context for a client to apply the delta.
type ContentChange struct {
	Op       OpType      `json:"op"`
	RowID    *string     `json:"row_id,omitempty"`
	Field    string      `json:"field,omitempty"`
	NewValue interface{} `json:"new_value,omitempty"`
	Actor    string      `json:"actor"`
}

// PlaybackCursor is the payload of an EventPlayback event.
type PlaybackCursor struct {
	Controller string  `json:"controller"`
	RowID      *string `json:"row_id,omitempty"`
	ElapsedMs  int64   `json:"elapsed_ms"`
	Running    bool    `json:"running"`
}

// EncodeSSE renders the event as a Server-Sent Events frame:
//
//	event: content
//	data: {...}
func (e Event) EncodeSSE() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, data), nil
}
