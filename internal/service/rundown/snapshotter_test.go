package rundown

import (
	"log/slog"
	"testing"
	"time"

	models "rundown/internal/domain/models/rundown"
	"rundown/internal/tuning"
)

func testSnapshotter() *Snapshotter {
	cfg := tuning.SnapshotTuning{
		StructureFixedCount: 5,
		StructurePercent:    20,
		PeriodicMinutes:     10,
		MaxPerRundown:       50,
	}
	return NewSnapshotter(nil, nil, cfg, slog.Default())
}

func TestEvaluateFirstWrite(t *testing.T) {
	s := testSnapshotter()

	got := s.Evaluate(ChangeSummary{Actor: "alice"}, nil, time.Now())
	if got != models.SnapshotInitial {
		t.Errorf("Evaluate with no prior snapshot = %q, want %q", got, models.SnapshotInitial)
	}
}

func TestEvaluateRuleOrder(t *testing.T) {
	s := testSnapshotter()
	now := time.Now()
	recent := &models.SnapshotMeta{CreatedAt: now.Add(-time.Minute)}
	stale := &models.SnapshotMeta{CreatedAt: now.Add(-time.Hour)}

	tests := []struct {
		name string
		sum  ChangeSummary
		last *models.SnapshotMeta
		want models.SnapshotReason
	}{
		{
			"populated dropped to zero",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 30, NewRowCount: 0},
			recent,
			models.SnapshotPreWipe,
		},
		{
			// Wipe plus a scalar change is a deliberate reset; the pre_wipe
			// rule steps aside and the structural rule picks it up.
			"wipe with scalar change",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 30, NewRowCount: 0, DocFieldChanged: models.FieldTitle, ScalarsChanged: true},
			recent,
			models.SnapshotStructureChange,
		},
		{
			"large structural delta",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 10, NewRowCount: 20},
			recent,
			models.SnapshotStructureChange,
		},
		{
			"percent threshold on big rundowns",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 100, NewRowCount: 121},
			recent,
			models.SnapshotStructureChange,
		},
		{
			"within percent threshold",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 100, NewRowCount: 115},
			recent,
			"",
		},
		{
			"title changed",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 10, NewRowCount: 10, DocFieldChanged: models.FieldTitle, ScalarsChanged: true},
			recent,
			models.SnapshotUserChange,
		},
		{
			"start time changed",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 10, NewRowCount: 10, DocFieldChanged: models.FieldStartTime, ScalarsChanged: true},
			recent,
			models.SnapshotUserChange,
		},
		{
			"timezone change is not snapshot-worthy",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 10, NewRowCount: 10, DocFieldChanged: models.FieldTimezone, ScalarsChanged: true},
			recent,
			"",
		},
		{
			"actor handoff",
			ChangeSummary{Actor: "bob", PrevActor: "alice", OldRowCount: 10, NewRowCount: 10},
			recent,
			models.SnapshotUserChange,
		},
		{
			"first mutator ever is not a handoff",
			ChangeSummary{Actor: "bob", PrevActor: "", OldRowCount: 10, NewRowCount: 10},
			recent,
			"",
		},
		{
			"periodic floor",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 10, NewRowCount: 10},
			stale,
			models.SnapshotPeriodic,
		},
		{
			"quiet small edit",
			ChangeSummary{Actor: "a", PrevActor: "a", OldRowCount: 10, NewRowCount: 11},
			recent,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Evaluate(tt.sum, tt.last, now)
			if got != tt.want {
				t.Errorf("Evaluate(%+v) = %q, want %q", tt.sum, got, tt.want)
			}
		})
	}
}
