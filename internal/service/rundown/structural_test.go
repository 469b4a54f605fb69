package rundown

import (
	"context"
	"errors"
	"testing"

	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	rundownSvc "rundown/internal/domain/services/rundown"

	"github.com/google/uuid"
)

func seedManyRows(t *testing.T, f *mutatorFixture, n int) (string, []string) {
	t.Helper()
	fields := make([]map[string]interface{}, n)
	for i := range fields {
		fields[i] = map[string]interface{}{"slug": "seg"}
	}
	return f.seedRundown(t, fields...)
}

func TestStructuralInsertAppends(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, _ := seedManyRows(t, f, 2)

	result, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralInsert,
		Kind:      models.RowKindRegular,
		Fields:    map[string]interface{}{"slug": "new segment"},
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("ApplyStructuralOp: %v", err)
	}
	if result.RowID == nil {
		t.Fatal("insert must return the assigned row id")
	}

	rows, _ := f.docs.ListRows(context.Background(), rundownID)
	if len(rows) != 3 {
		t.Fatalf("row count = %d, want 3", len(rows))
	}
	if rows[2].ID != *result.RowID {
		t.Errorf("appended row should land at the tail, got tail %s", rows[2].ID)
	}
}

func TestStructuralInsertAtPosition(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, rowIDs := seedManyRows(t, f, 3)

	pos := 1
	result, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralInsert,
		Kind:      models.RowKindHeader,
		Position:  &pos,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("ApplyStructuralOp: %v", err)
	}

	rows, _ := f.docs.ListRows(context.Background(), rundownID)
	if rows[1].ID != *result.RowID {
		t.Errorf("row at position 1 = %s, want inserted %s", rows[1].ID, *result.RowID)
	}
	if rows[0].ID != rowIDs[0] || rows[2].ID != rowIDs[1] {
		t.Error("surrounding rows should shift, not vanish")
	}
	// Positions stay gapless
	for i, row := range rows {
		if row.Position != i {
			t.Errorf("row %d has position %d", i, row.Position)
		}
	}
}

func TestStructuralDeleteCompacts(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, rowIDs := seedManyRows(t, f, 3)

	_, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralDelete,
		RowID:     &rowIDs[1],
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("ApplyStructuralOp: %v", err)
	}

	rows, _ := f.docs.ListRows(context.Background(), rundownID)
	if len(rows) != 2 {
		t.Fatalf("row count = %d, want 2", len(rows))
	}
	for i, row := range rows {
		if row.Position != i {
			t.Errorf("row %d has position %d after compaction", i, row.Position)
		}
	}
}

func TestStructuralDeleteMissingRowIsBenign(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, _ := seedManyRows(t, f, 2)
	ghost := uuid.New().String()

	result, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralDelete,
		RowID:     &ghost,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("expected benign no-op, got %v", err)
	}
	if !result.NoChanges {
		t.Error("deleting an already-deleted row should be a no-op")
	}
	if n := f.ops.count(rundownID); n != 0 {
		t.Errorf("no-op delete must not reach the operation log, got %d ops", n)
	}
}

func TestStructuralBusy(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, rowIDs := seedManyRows(t, f, 2)
	f.docs.lockHeld[rundownID] = true

	_, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralDelete,
		RowID:     &rowIDs[0],
		Actor:     "alice",
	})
	if !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy under contention, got %v", err)
	}

	var busy *domain.BusyError
	if !errors.As(err, &busy) || busy.RundownID != rundownID {
		t.Errorf("BusyError should name the rundown, got %v", err)
	}
}

func TestStructuralWipeGuard(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, _ := seedManyRows(t, f, 25)

	_, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralReplace,
		Rows:      nil,
		Actor:     "alice",
	})
	if !errors.Is(err, domain.ErrUnsafeWipe) {
		t.Fatalf("expected ErrUnsafeWipe, got %v", err)
	}

	var wipe *domain.UnsafeWipeError
	if !errors.As(err, &wipe) || wipe.OldRows != 25 {
		t.Errorf("UnsafeWipeError should carry the old row count, got %v", err)
	}

	// Nothing committed: rows, log and snapshots untouched
	if n, _ := f.docs.CountRows(context.Background(), rundownID); n != 25 {
		t.Errorf("row count after rejection = %d, want 25", n)
	}
	if n := f.ops.count(rundownID); n != 0 {
		t.Errorf("rejected write reached the operation log: %d ops", n)
	}
	if n := f.snaps.count(rundownID); n != 0 {
		t.Errorf("rejected write reached the snapshotter: %d snapshots", n)
	}
}

func TestStructuralWipeGuardForceOverride(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, rowIDs := seedManyRows(t, f, 25)

	// A prior edit so the rundown has snapshot history before the wipe
	_, err := f.svc.ApplyFieldUpdate(context.Background(), &rundownSvc.FieldUpdateRequest{
		RundownID: rundownID,
		RowID:     &rowIDs[0],
		Field:     "slug",
		Value:     "cold open",
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("ApplyFieldUpdate: %v", err)
	}

	result, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralReplace,
		Rows:      nil,
		Force:     true,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("forced wipe should pass, got %v", err)
	}
	if result.NoChanges {
		t.Error("forced wipe is a real change")
	}
	if n, _ := f.docs.CountRows(context.Background(), rundownID); n != 0 {
		t.Errorf("row count = %d, want 0", n)
	}
	// The wiped state is preserved: a pre_wipe snapshot of the 25 rows as
	// they stood before the replace, not of the emptied rundown
	meta, err := f.snaps.LatestMeta(context.Background(), rundownID)
	if err != nil {
		t.Fatalf("LatestMeta: %v", err)
	}
	if meta.Reason != models.SnapshotPreWipe {
		t.Errorf("snapshot reason = %q, want %q", meta.Reason, models.SnapshotPreWipe)
	}
	if meta.RowCount != 25 {
		t.Errorf("snapshot row count = %d, want the pre-wipe 25", meta.RowCount)
	}
	snap, err := f.snaps.GetByID(context.Background(), rundownID, meta.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(snap.Rows) != 25 {
		t.Fatalf("snapshot rows = %d, want 25", len(snap.Rows))
	}
	if snap.Rows[0].FieldValue("slug") != "cold open" {
		t.Errorf("snapshot lost the pre-wipe cell content: %v", snap.Rows[0].Fields)
	}
}

func TestStructuralForcedWipeWithoutHistory(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, _ := seedManyRows(t, f, 25)

	// Even with no snapshot history the wiped state must be recoverable
	_, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralReplace,
		Rows:      nil,
		Force:     true,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("forced wipe should pass, got %v", err)
	}

	meta, err := f.snaps.LatestMeta(context.Background(), rundownID)
	if err != nil {
		t.Fatalf("LatestMeta: %v", err)
	}
	if meta.Reason != models.SnapshotPreWipe {
		t.Errorf("snapshot reason = %q, want %q", meta.Reason, models.SnapshotPreWipe)
	}
	if meta.RowCount != 25 {
		t.Errorf("snapshot row count = %d, want 25", meta.RowCount)
	}
}

func TestStructuralReplaceWithTitleChangePassesGuard(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, _ := seedManyRows(t, f, 25)

	// Retitling in the same write signals a deliberate fresh start, so the
	// guard passes without force
	result, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralReplace,
		Rows:      nil,
		Scalars:   map[string]interface{}{"title": "Morning Show"},
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("wipe with title change should pass, got %v", err)
	}
	if result.NoChanges {
		t.Error("replace with title change is a real change")
	}

	if n, _ := f.docs.CountRows(context.Background(), rundownID); n != 0 {
		t.Errorf("row count = %d, want 0", n)
	}
	doc, _ := f.docs.GetByID(context.Background(), rundownID)
	if doc.Title != "Morning Show" {
		t.Errorf("title = %q, want %q", doc.Title, "Morning Show")
	}

	// Both the replace and the title edit land in the log at one version
	var sawReplace, sawTitle bool
	for _, op := range f.ops.ops {
		switch op.Type {
		case models.OpReplaceRows:
			sawReplace = true
		case models.OpSetDocField:
			if op.Field == "title" && op.ResultingVersion == result.Version {
				sawTitle = true
			}
		}
	}
	if !sawReplace || !sawTitle {
		t.Errorf("log missing ops: replace=%v title=%v", sawReplace, sawTitle)
	}

	// The wiped rows are still snapshotted before the replace
	meta, err := f.snaps.LatestMeta(context.Background(), rundownID)
	if err != nil {
		t.Fatalf("LatestMeta: %v", err)
	}
	if meta.Reason != models.SnapshotPreWipe || meta.RowCount != 25 {
		t.Errorf("snapshot = %s/%d rows, want pre_wipe/25", meta.Reason, meta.RowCount)
	}
}

func TestStructuralReplaceIdenticalTitleStillGuarded(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, _ := seedManyRows(t, f, 25)

	// An unchanged title is not a scalar change; the guard still holds
	_, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralReplace,
		Rows:      nil,
		Scalars:   map[string]interface{}{"title": "Evening News"},
		Actor:     "alice",
	})
	if !errors.Is(err, domain.ErrUnsafeWipe) {
		t.Fatalf("expected ErrUnsafeWipe, got %v", err)
	}
	if n, _ := f.docs.CountRows(context.Background(), rundownID); n != 25 {
		t.Errorf("row count after rejection = %d, want 25", n)
	}
}

func TestStructuralMove(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, rowIDs := seedManyRows(t, f, 3)

	to := 0
	_, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralMove,
		RowID:     &rowIDs[2],
		Position:  &to,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("ApplyStructuralOp: %v", err)
	}

	rows, _ := f.docs.ListRows(context.Background(), rundownID)
	if rows[0].ID != rowIDs[2] {
		t.Errorf("head = %s, want moved row %s", rows[0].ID, rowIDs[2])
	}
}

func TestStructuralReorder(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, rowIDs := seedManyRows(t, f, 3)

	_, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralReorder,
		Order:     []string{rowIDs[2], rowIDs[0], rowIDs[1]},
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("ApplyStructuralOp: %v", err)
	}

	rows, _ := f.docs.ListRows(context.Background(), rundownID)
	want := []string{rowIDs[2], rowIDs[0], rowIDs[1]}
	for i, row := range rows {
		if row.ID != want[i] {
			t.Errorf("position %d = %s, want %s", i, row.ID, want[i])
		}
	}
}

func TestStructuralFloat(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, rowIDs := seedManyRows(t, f, 2)

	floated := true
	_, err := f.svc.ApplyStructuralOp(context.Background(), &rundownSvc.StructuralOpRequest{
		RundownID: rundownID,
		Op:        rundownSvc.StructuralFloat,
		RowID:     &rowIDs[0],
		Floated:   &floated,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("ApplyStructuralOp: %v", err)
	}

	row, _ := f.docs.GetRow(context.Background(), rundownID, rowIDs[0])
	if !row.Floated {
		t.Error("row should be floated")
	}
	// Floating keeps the row in the sequence
	if n, _ := f.docs.CountRows(context.Background(), rundownID); n != 2 {
		t.Errorf("row count = %d, want 2", n)
	}
}

func TestStructuralValidation(t *testing.T) {
	f := newMutatorFixture(t)
	rundownID, _ := seedManyRows(t, f, 1)

	tests := []struct {
		name string
		req  rundownSvc.StructuralOpRequest
	}{
		{"unknown op", rundownSvc.StructuralOpRequest{Op: "explode"}},
		{"insert with bad kind", rundownSvc.StructuralOpRequest{Op: rundownSvc.StructuralInsert, Kind: "banner"}},
		{"delete without row id", rundownSvc.StructuralOpRequest{Op: rundownSvc.StructuralDelete}},
		{"move without position", rundownSvc.StructuralOpRequest{Op: rundownSvc.StructuralMove, RowID: strPtr(uuid.New().String())}},
		{"reorder with empty order", rundownSvc.StructuralOpRequest{Op: rundownSvc.StructuralReorder}},
		{"float without flag", rundownSvc.StructuralOpRequest{Op: rundownSvc.StructuralFloat, RowID: strPtr(uuid.New().String())}},
		{"scalars on insert", rundownSvc.StructuralOpRequest{Op: rundownSvc.StructuralInsert, Kind: models.RowKindRegular, Scalars: map[string]interface{}{"title": "x"}}},
		{"scalars with unknown field", rundownSvc.StructuralOpRequest{Op: rundownSvc.StructuralReplace, Scalars: map[string]interface{}{"mood": "tense"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.RundownID = rundownID
			req.Actor = "alice"
			_, err := f.svc.ApplyStructuralOp(context.Background(), &req)
			var valErr *domain.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
