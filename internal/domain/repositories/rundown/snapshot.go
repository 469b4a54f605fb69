package rundown

import (
	"context"

	models "rundown/internal/domain/models/rundown"
)

// SnapshotRepository stores immutable full-state revision snapshots.
type SnapshotRepository interface {
	// Create persists a snapshot. The snapshot is never mutated afterwards.
	Create(ctx context.Context, s *models.Snapshot) error

	// GetByID retrieves a full snapshot including its row payload.
	GetByID(ctx context.Context, rundownID, snapshotID string) (*models.Snapshot, error)

	// ListMeta returns snapshot metadata for a rundown, newest first.
	ListMeta(ctx context.Context, rundownID string, limit int) ([]models.SnapshotMeta, error)

	// LatestMeta returns the most recent snapshot's metadata, or
	// ErrNotFound when the rundown has none yet.
	LatestMeta(ctx context.Context, rundownID string) (*models.SnapshotMeta, error)

	// PruneOldest deletes the oldest snapshots beyond keep. Returns the
	// number removed.
	PruneOldest(ctx context.Context, rundownID string, keep int) (int64, error)
}
