package rundown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	rundownRepo "rundown/internal/domain/repositories/rundown"
	"rundown/internal/tuning"

	"github.com/google/uuid"
)

// ChangeSummary describes one committed content mutation to the snapshot
// heuristic.
type ChangeSummary struct {
	Actor           string
	PrevActor       string // last_mutator before this mutation
	OldRowCount     int
	NewRowCount     int
	DocFieldChanged string // document-level field name, "" for row edits
	ScalarsChanged  bool   // any document-level field changed in this write
}

// Snapshotter decides after every successful content mutation whether to
// persist a full revision snapshot, and persists it in the mutation's own
// transaction so a snapshot can never describe a state that was rolled
// back.
type Snapshotter struct {
	docs   rundownRepo.DocumentRepository
	snaps  rundownRepo.SnapshotRepository
	cfg    tuning.SnapshotTuning
	logger *slog.Logger
}

// NewSnapshotter creates a snapshotter.
func NewSnapshotter(
	docs rundownRepo.DocumentRepository,
	snaps rundownRepo.SnapshotRepository,
	cfg tuning.SnapshotTuning,
	logger *slog.Logger,
) *Snapshotter {
	return &Snapshotter{
		docs:   docs,
		snaps:  snaps,
		cfg:    cfg,
		logger: logger,
	}
}

// WipeImminent reports whether a structural op would take a populated
// rundown down to zero rows. The structural mutator uses it to capture
// the doomed state before mutating, since a snapshot taken afterwards
// would preserve nothing.
func (s *Snapshotter) WipeImminent(oldCount, newCount int) bool {
	return oldCount > s.cfg.StructureFixedCount && newCount == 0
}

// RetentionBound is the per-rundown snapshot cap; listings never exceed it.
func (s *Snapshotter) RetentionBound() int {
	return s.cfg.MaxPerRundown
}

// Evaluate applies the heuristic in order, first match wins. Returns ""
// when no snapshot is warranted.
func (s *Snapshotter) Evaluate(sum ChangeSummary, last *models.SnapshotMeta, now time.Time) models.SnapshotReason {
	// 1. First-ever write.
	if last == nil {
		return models.SnapshotInitial
	}

	// 2. Populated rundown dropped to zero rows with scalars constant.
	// The structural mutator captures this state pre-mutation; the rule
	// stays here so a wipe is never misfiled as a structure_change.
	if s.WipeImminent(sum.OldRowCount, sum.NewRowCount) && !sum.ScalarsChanged {
		return models.SnapshotPreWipe
	}

	// 3. Significant structural change: max(fixed, percent of old count).
	delta := sum.NewRowCount - sum.OldRowCount
	if delta < 0 {
		delta = -delta
	}
	limit := s.cfg.StructureFixedCount
	if pct := sum.OldRowCount * s.cfg.StructurePercent / 100; pct > limit {
		limit = pct
	}
	if delta > limit {
		return models.SnapshotStructureChange
	}

	// 4. Title or declared start time changed.
	if sum.DocFieldChanged == models.FieldTitle || sum.DocFieldChanged == models.FieldStartTime {
		return models.SnapshotUserChange
	}

	// 5. Actor handoff between collaborators.
	if sum.PrevActor != "" && sum.PrevActor != sum.Actor {
		return models.SnapshotUserChange
	}

	// 6. Periodic floor for long unattended sessions.
	if now.Sub(last.CreatedAt) > s.cfg.PeriodicInterval() {
		return models.SnapshotPeriodic
	}

	return ""
}

// CaptureIfNeeded evaluates the heuristic against the rundown's latest
// snapshot and persists a new one when warranted. doc carries the
// post-mutation state. Called inside the mutation transaction.
//
// Failure handling is conservative: a failed heuristic read produces an
// extra snapshot rather than a missing one.
func (s *Snapshotter) CaptureIfNeeded(ctx context.Context, doc *models.Rundown, sum ChangeSummary) error {
	last, err := s.snaps.LatestMeta(ctx, doc.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("snapshot heuristic read failed, snapshotting anyway",
			"rundown_id", doc.ID,
			"error", err,
		)
		last = nil
	}

	reason := s.Evaluate(sum, last, time.Now())
	if reason == "" {
		return nil
	}

	return s.Capture(ctx, doc, reason, sum.Actor)
}

// Capture persists a full snapshot of the rundown's current state and
// enforces the per-rundown retention bound.
func (s *Snapshotter) Capture(ctx context.Context, doc *models.Rundown, reason models.SnapshotReason, actor string) error {
	rows, err := s.docs.ListRows(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("load rows for snapshot: %w", err)
	}

	snap := &models.Snapshot{
		ID:        uuid.New().String(),
		RundownID: doc.ID,
		Reason:    reason,
		Version:   doc.Version,
		Scalars:   doc.ScalarFields(),
		Rows:      rows,
		CreatedBy: actor,
	}
	if err := s.snaps.Create(ctx, snap); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	pruned, err := s.snaps.PruneOldest(ctx, doc.ID, s.cfg.MaxPerRundown)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	s.logger.Debug("snapshot captured",
		"rundown_id", doc.ID,
		"reason", reason,
		"version", doc.Version,
		"rows", len(rows),
		"pruned", pruned,
	)

	return nil
}
