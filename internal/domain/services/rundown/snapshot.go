package rundown

import (
	"context"

	models "rundown/internal/domain/models/rundown"
)

// SnapshotService lists revision snapshots and restores from them.
type SnapshotService interface {
	// ListSnapshots returns snapshot metadata, newest first.
	ListSnapshots(ctx context.Context, rundownID string) ([]models.SnapshotMeta, error)

	// Restore overwrites the rundown's rows and scalar fields from the
	// chosen snapshot. It first persists a pre_restore snapshot of current
	// state, so a bad restore is itself undoable. Bumps the version, is
	// audited as its own operation, and never touches presence.
	Restore(ctx context.Context, req *RestoreRequest) (*MutationResult, error)
}

// RestoreRequest identifies the snapshot to restore.
type RestoreRequest struct {
	RundownID  string
	SnapshotID string
	Actor      string
	OriginTag  string
}
