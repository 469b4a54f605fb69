package rundown

import (
	"time"
)

// SnapshotReason tags why a revision snapshot was taken.
type SnapshotReason string

const (
	SnapshotInitial         SnapshotReason = "initial"
	SnapshotPreWipe         SnapshotReason = "pre_wipe"
	SnapshotStructureChange SnapshotReason = "structure_change"
	SnapshotUserChange      SnapshotReason = "user_change"
	SnapshotPeriodic        SnapshotReason = "periodic"
	SnapshotPreRestore      SnapshotReason = "pre_restore"
)

// Snapshot is an immutable full copy of a rundown's scalar fields and row
// sequence at a point in time. Never mutated after creation; pruned oldest
// first once a rundown exceeds its retained-snapshot bound.
type Snapshot struct {
	ID        string                 `json:"id" db:"id"`
	RundownID string                 `json:"rundown_id" db:"rundown_id"`
	Reason    SnapshotReason         `json:"reason" db:"reason"`
	Version   int64                  `json:"version" db:"version"`
	Scalars   map[string]interface{} `json:"scalars" db:"scalars"`
	Rows      []Row                  `json:"rows" db:"rows"`
	CreatedBy string                 `json:"created_by" db:"created_by"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// SnapshotMeta is the listing view: everything except the row payload.
type SnapshotMeta struct {
	ID        string         `json:"id"`
	RundownID string         `json:"rundown_id"`
	Reason    SnapshotReason `json:"reason"`
	Version   int64          `json:"version"`
	RowCount  int            `json:"row_count"`
	CreatedBy string         `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
}
