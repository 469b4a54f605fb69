package rundown

import (
	"context"

	models "rundown/internal/domain/models/rundown"
)

// MutationService is the single write path for rundown content. Every
// accepted mutation flows through the same ordered pipeline:
// guard → mutate → operation log → snapshot heuristic → notify.
type MutationService interface {
	// ApplyFieldUpdate applies one field change to a row (RowID set) or to
	// the document itself (RowID nil). Normalized-equal values are accepted
	// as no-ops: no version bump, no operation, NoChanges=true. A missing
	// row is likewise a benign no-op, since another actor may have just
	// deleted it.
	ApplyFieldUpdate(ctx context.Context, req *FieldUpdateRequest) (*MutationResult, error)

	// ApplyStructuralOp mutates the row sequence itself. Structural ops
	// serialize against each other per rundown via a try-acquire token;
	// contention returns domain.ErrBusy. The destructive-write guard runs
	// before anything commits.
	ApplyStructuralOp(ctx context.Context, req *StructuralOpRequest) (*MutationResult, error)
}

// FieldUpdateRequest is one field-level mutation.
type FieldUpdateRequest struct {
	RundownID string      `json:"-"`
	RowID     *string     `json:"row_id,omitempty"` // nil targets the document
	Field     string      `json:"field"`
	Value     interface{} `json:"value"`
	Actor     string      `json:"-"` // from auth context, never the body
	OriginTag string      `json:"-"` // from the X-Client-ID header
}

// StructuralOp enumerates row-sequence mutations.
type StructuralOp string

const (
	StructuralInsert  StructuralOp = "insert"
	StructuralDelete  StructuralOp = "delete"
	StructuralMove    StructuralOp = "move"
	StructuralReorder StructuralOp = "reorder"
	StructuralFloat   StructuralOp = "float"
	StructuralReplace StructuralOp = "replace"
)

// StructuralOpRequest is one row-sequence mutation.
type StructuralOpRequest struct {
	RundownID string       `json:"-"`
	Op        StructuralOp `json:"op"`
	Actor     string       `json:"-"`
	OriginTag string       `json:"-"`

	// Force confirms a write the destructive-write guard would otherwise
	// reject as a probable accidental wipe.
	Force bool `json:"force,omitempty"`

	// Payload, by op:
	RowID    *string                `json:"row_id,omitempty"`   // delete, move, float
	Position *int                   `json:"position,omitempty"` // insert, move
	Kind     models.RowKind         `json:"kind,omitempty"`     // insert
	Fields   map[string]interface{} `json:"fields,omitempty"`   // insert
	Floated  *bool                  `json:"floated,omitempty"`  // float
	Order    []string               `json:"order,omitempty"`    // reorder
	Rows     []RowSpec              `json:"rows,omitempty"`     // replace

	// Scalars carries document-level field updates applied atomically with
	// a replace. A replace that wipes the rows while changing a scalar
	// (retitling for a fresh show) signals intent, so the destructive-write
	// guard lets it through without Force.
	Scalars map[string]interface{} `json:"scalars,omitempty"` // replace
}

// RowSpec describes a row in a replace payload.
type RowSpec struct {
	Kind    models.RowKind         `json:"kind"`
	Floated bool                   `json:"floated"`
	Fields  map[string]interface{} `json:"fields"`
}

// MutationResult reports a committed (or no-op) mutation.
type MutationResult struct {
	Version   int64   `json:"version"`
	NoChanges bool    `json:"no_changes,omitempty"`
	RowID     *string `json:"row_id,omitempty"` // id assigned by insert
}
