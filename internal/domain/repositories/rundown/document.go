package rundown

import (
	"context"

	models "rundown/internal/domain/models/rundown"
)

// DocumentRepository is the durable store for rundowns and their ordered
// row sequences.
//
// Concurrency contract: GetForUpdate locks the rundown's storage row, so
// all writes to one rundown serialize at the storage layer while writes to
// different rundowns stay fully parallel. Mutating methods are expected to
// run inside a transaction (see repositories.TransactionManager); the
// mutator services pair them with BumpVersion and an operation append so
// no intermediate state is externally observable.
type DocumentRepository interface {
	// Create inserts a new rundown with version 1.
	Create(ctx context.Context, r *models.Rundown) error

	// GetByID retrieves the scalar fields and version of a rundown.
	GetByID(ctx context.Context, id string) (*models.Rundown, error)

	// GetForUpdate is GetByID with a row-level write lock. Transaction only.
	GetForUpdate(ctx context.Context, id string) (*models.Rundown, error)

	// SetScalarField writes one document-level field. It does not bump the
	// version; callers pair it with BumpVersion in the same transaction.
	SetScalarField(ctx context.Context, id, field string, value interface{}) error

	// BumpVersion increments the version and stamps last_mutator and
	// updated_at. Returns the new version.
	BumpVersion(ctx context.Context, id, actor string) (int64, error)

	// ListRows returns the row sequence ordered by position.
	ListRows(ctx context.Context, rundownID string) ([]models.Row, error)

	// GetRow retrieves a single row. ErrNotFound when absent.
	GetRow(ctx context.Context, rundownID, rowID string) (*models.Row, error)

	// SetRowField writes one cell of one row. Returns found=false when the
	// row is absent (it may have just been deleted by another actor).
	SetRowField(ctx context.Context, rundownID, rowID, field string, value interface{}) (found bool, err error)

	// CountRows returns the number of rows in the sequence.
	CountRows(ctx context.Context, rundownID string) (int, error)

	// InsertRow inserts at row.Position, shifting later rows down by one.
	InsertRow(ctx context.Context, row *models.Row) error

	// DeleteRow removes a row and compacts positions. Returns found=false
	// when the row is absent.
	DeleteRow(ctx context.Context, rundownID, rowID string) (found bool, err error)

	// MoveRow moves a row to the given position, shifting rows in between.
	MoveRow(ctx context.Context, rundownID, rowID string, toPosition int) (found bool, err error)

	// ReorderRows assigns positions 0..n-1 following orderedIDs. IDs absent
	// from the sequence are ignored; rows absent from orderedIDs keep their
	// relative order after the listed ones.
	ReorderRows(ctx context.Context, rundownID string, orderedIDs []string) error

	// SetRowFloated toggles the floating/suppressed flag.
	SetRowFloated(ctx context.Context, rundownID, rowID string, floated bool) (found bool, err error)

	// ReplaceRows swaps the entire row sequence (import and restore paths).
	ReplaceRows(ctx context.Context, rundownID string, rows []models.Row) error

	// TryStructuralLock try-acquires the per-rundown structural mutation
	// token for the current transaction. Non-blocking: returns false when
	// another structural write holds it. Transaction only.
	TryStructuralLock(ctx context.Context, rundownID string) (bool, error)
}
