package rundown

import (
	"context"
	"time"

	models "rundown/internal/domain/models/rundown"
)

// PresenceRepository stores ephemeral presence/session records. One record
// per (rundown, actor); liveness is soft expiry by heartbeat age, not
// explicit cancellation.
type PresenceRepository interface {
	// Upsert inserts or refreshes a presence record.
	Upsert(ctx context.Context, p *models.Presence) error

	// ListActive returns presences with a heartbeat at or after cutoff.
	ListActive(ctx context.Context, rundownID string, cutoff time.Time) ([]models.Presence, error)

	// ClaimControl demotes any current controller of the rundown and
	// promotes actor, upserting its presence with a fresh heartbeat.
	ClaimControl(ctx context.Context, rundownID, actor string, now time.Time) error

	// Controller returns the live controller, or ErrNotFound when there is
	// none (never claimed, demoted, or heartbeat lapsed).
	Controller(ctx context.Context, rundownID string, cutoff time.Time) (*models.Presence, error)

	// DeleteExpired sweeps presence records older than cutoff across all
	// rundowns. Returns the number removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
