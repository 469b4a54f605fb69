package rundown

import (
	"time"
)

// RowKind discriminates timed segments from section headers.
type RowKind string

const (
	// RowKindRegular is a timed segment.
	RowKindRegular RowKind = "regular"
	// RowKindHeader is a section break; it carries no timing data.
	RowKindHeader RowKind = "header"
)

// Valid reports whether k is a known row kind.
func (k RowKind) Valid() bool {
	return k == RowKindRegular || k == RowKindHeader
}

// Row is one element of a rundown's ordered sequence.
//
// The ID is assigned at creation and immutable for the row's lifetime;
// it is never reused, even after deletion. Position is a total order with
// no ties, kept gapless by the structural mutator. Floated rows stay in
// the sequence but are excluded from timing roll-up.
type Row struct {
	ID        string                 `json:"id" db:"id"`
	RundownID string                 `json:"rundown_id" db:"rundown_id"`
	Kind      RowKind                `json:"kind" db:"kind"`
	Position  int                    `json:"position" db:"position"`
	Floated   bool                   `json:"floated" db:"floated"`
	Fields    map[string]interface{} `json:"fields" db:"fields"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// FieldValue returns the named cell value, nil when unset.
func (r *Row) FieldValue(name string) interface{} {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}
