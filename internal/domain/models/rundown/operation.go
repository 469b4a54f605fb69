package rundown

import (
	"time"
)

// OpType classifies one accepted mutation.
type OpType string

const (
	OpSetField    OpType = "set_field"     // row cell edit
	OpSetDocField OpType = "set_doc_field" // document-level scalar edit
	OpInsertRow   OpType = "insert_row"
	OpDeleteRow   OpType = "delete_row"
	OpMoveRow     OpType = "move_row"
	OpReorderRows OpType = "reorder_rows"
	OpFloatRow    OpType = "float_row"
	OpReplaceRows OpType = "replace_rows"
	OpRestore     OpType = "restore"
)

// Operation is one immutable entry in the append-only operation log.
// ResultingVersion always equals the rundown's version immediately after
// the mutation that produced it committed; the two are written in the
// same transaction. Entries are never updated, and deleted only by the
// retention sweep.
type Operation struct {
	ID               int64       `json:"id" db:"id"`
	RundownID        string      `json:"rundown_id" db:"rundown_id"`
	RowID            *string     `json:"row_id" db:"row_id"`
	Type             OpType      `json:"type" db:"op_type"`
	Field            string      `json:"field,omitempty" db:"field"`
	NewValue         interface{} `json:"new_value,omitempty" db:"new_value"`
	Actor            string      `json:"actor" db:"actor"`
	ResultingVersion int64       `json:"resulting_version" db:"resulting_version"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// HistoryEntry is one human-readable batch of consecutive operations by
// the same actor within the history batch window. A single user action
// (pasting a block, say) produces dozens of raw operations; the history
// view coalesces them.
type HistoryEntry struct {
	Actor          string      `json:"actor"`
	Summary        string      `json:"summary"`
	OperationTypes []string    `json:"operation_types"`
	FirstTs        time.Time   `json:"first_ts"`
	LastTs         time.Time   `json:"last_ts"`
	Count          int         `json:"count"`
	Details        []Operation `json:"details,omitempty"`
}
