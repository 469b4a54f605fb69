package rundown

import (
	"time"
)

// Presence is an ephemeral record of one actor's current location in a
// rundown. Upserted on every heartbeat; rows whose heartbeat falls outside
// the liveness window are swept, so a crashed client is forgotten without
// any explicit cleanup message.
type Presence struct {
	RundownID     string    `json:"rundown_id" db:"rundown_id"`
	Actor         string    `json:"actor" db:"actor"`
	ActiveCell    *string   `json:"active_cell" db:"active_cell"`
	Controller    bool      `json:"controller" db:"controller"`
	LastHeartbeat time.Time `json:"last_heartbeat" db:"last_heartbeat"`
}

// Expired reports whether the presence is older than the liveness window.
func (p *Presence) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastHeartbeat) > window
}
