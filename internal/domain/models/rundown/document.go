package rundown

import (
	"time"
)

// Rundown is the unit of collaboration: document-level scalar fields plus
// an ordered row sequence (stored separately, see Row).
//
// Version strictly increases on every accepted content mutation and only
// on content mutations. Presentation-only state (the live playback cursor)
// never touches Version or UpdatedAt: bumping them would defeat client-side
// echo suppression and falsely mark the rundown as recently edited.
type Rundown struct {
	ID              string     `json:"id" db:"id"`
	TeamID          string     `json:"team_id" db:"team_id"`
	Title           string     `json:"title" db:"title"`
	StartTime       *time.Time `json:"start_time" db:"start_time"`
	Timezone        string     `json:"timezone" db:"timezone"`
	NumberingLocked bool       `json:"numbering_locked" db:"numbering_locked"`
	Version         int64      `json:"version" db:"version"`
	LastMutator     string     `json:"last_mutator" db:"last_mutator"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Document-level field names accepted by the field mutator.
const (
	FieldTitle           = "title"
	FieldStartTime       = "start_time"
	FieldTimezone        = "timezone"
	FieldNumberingLocked = "numbering_locked"
)

// DocumentFields returns the names of the document-level scalar fields.
func DocumentFields() []string {
	return []string{FieldTitle, FieldStartTime, FieldTimezone, FieldNumberingLocked}
}

// IsDocumentField reports whether name is a document-level scalar field.
func IsDocumentField(name string) bool {
	switch name {
	case FieldTitle, FieldStartTime, FieldTimezone, FieldNumberingLocked:
		return true
	}
	return false
}

// ScalarFields returns the document-level fields as a map, keyed by field
// name. Used by the destructive-write guard and the snapshot heuristic to
// compare before/after states without enumerating struct members.
func (r *Rundown) ScalarFields() map[string]interface{} {
	var start interface{}
	if r.StartTime != nil {
		start = r.StartTime.UTC().Format(time.RFC3339)
	}
	return map[string]interface{}{
		FieldTitle:           r.Title,
		FieldStartTime:       start,
		FieldTimezone:        r.Timezone,
		FieldNumberingLocked: r.NumberingLocked,
	}
}
