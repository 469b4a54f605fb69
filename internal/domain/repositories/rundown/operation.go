package rundown

import (
	"context"
	"time"

	models "rundown/internal/domain/models/rundown"
)

// OperationRepository is the append-only operation log. Entries are never
// updated; DeleteOlderThan is the only delete path (retention sweep).
type OperationRepository interface {
	// Append records one accepted mutation. Called in the same transaction
	// as the mutation it records, so ResultingVersion and the rundown's
	// version can never diverge.
	Append(ctx context.Context, op *models.Operation) error

	// ListPage returns operations for a rundown, newest first.
	ListPage(ctx context.Context, rundownID string, limit, offset int) ([]models.Operation, error)

	// DeleteOlderThan removes operations past the retention horizon.
	// Returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
