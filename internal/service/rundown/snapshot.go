package rundown

import (
	"context"
	"fmt"
	"log/slog"

	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	"rundown/internal/domain/repositories"
	rundownRepo "rundown/internal/domain/repositories/rundown"
	rundownSvc "rundown/internal/domain/services/rundown"
)

// snapshotService implements the SnapshotService interface
type snapshotService struct {
	docs        rundownRepo.DocumentRepository
	snaps       rundownRepo.SnapshotRepository
	ops         rundownRepo.OperationRepository
	snapshotter *Snapshotter
	txManager   repositories.TransactionManager
	notifier    rundownSvc.Notifier
	logger      *slog.Logger
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(
	docs rundownRepo.DocumentRepository,
	snaps rundownRepo.SnapshotRepository,
	ops rundownRepo.OperationRepository,
	snapshotter *Snapshotter,
	txManager repositories.TransactionManager,
	notifier rundownSvc.Notifier,
	logger *slog.Logger,
) rundownSvc.SnapshotService {
	return &snapshotService{
		docs:        docs,
		snaps:       snaps,
		ops:         ops,
		snapshotter: snapshotter,
		txManager:   txManager,
		notifier:    notifier,
		logger:      logger,
	}
}

// ListSnapshots returns snapshot metadata, newest first. Retention caps
// the stored snapshots per rundown, so the bound doubles as the page size.
func (s *snapshotService) ListSnapshots(ctx context.Context, rundownID string) ([]models.SnapshotMeta, error) {
	if _, err := s.docs.GetByID(ctx, rundownID); err != nil {
		return nil, err
	}
	return s.snaps.ListMeta(ctx, rundownID, s.snapshotter.RetentionBound())
}

// Restore overwrites the rundown from the chosen snapshot. It is itself a
// structural write: it takes the structural token, captures a pre_restore
// snapshot of current state first, and lands in the operation log, so a
// bad restore is both visible and undoable.
func (s *snapshotService) Restore(ctx context.Context, req *rundownSvc.RestoreRequest) (*rundownSvc.MutationResult, error) {
	var result *rundownSvc.MutationResult
	var event *models.Event

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		doc, err := s.docs.GetForUpdate(txCtx, req.RundownID)
		if err != nil {
			return err
		}

		acquired, err := s.docs.TryStructuralLock(txCtx, req.RundownID)
		if err != nil {
			return err
		}
		if !acquired {
			return &domain.BusyError{RundownID: req.RundownID}
		}

		snap, err := s.snaps.GetByID(txCtx, req.RundownID, req.SnapshotID)
		if err != nil {
			return err
		}

		// Current state first, so the restore itself can be undone.
		if err := s.snapshotter.Capture(txCtx, doc, models.SnapshotPreRestore, req.Actor); err != nil {
			return err
		}

		if err := s.restoreScalars(txCtx, doc.ID, snap.Scalars); err != nil {
			return err
		}

		rows := make([]models.Row, len(snap.Rows))
		for i, row := range snap.Rows {
			row.RundownID = doc.ID
			row.Position = i
			rows[i] = row
		}
		if err := s.docs.ReplaceRows(txCtx, doc.ID, rows); err != nil {
			return err
		}

		version, err := s.docs.BumpVersion(txCtx, doc.ID, req.Actor)
		if err != nil {
			return err
		}

		op := &models.Operation{
			RundownID: doc.ID,
			Type:      models.OpRestore,
			NewValue: map[string]interface{}{
				"snapshot_id":      snap.ID,
				"snapshot_version": snap.Version,
			},
			Actor:            req.Actor,
			ResultingVersion: version,
		}
		if err := s.ops.Append(txCtx, op); err != nil {
			return err
		}

		result = &rundownSvc.MutationResult{Version: version}
		event = &models.Event{
			Type:      models.EventContent,
			RundownID: doc.ID,
			OriginTag: req.OriginTag,
			Version:   version,
			Payload: models.ContentChange{
				Op:       models.OpRestore,
				NewValue: op.NewValue,
				Actor:    req.Actor,
			},
		}

		s.logger.Info("rundown restored",
			"rundown_id", doc.ID,
			"snapshot_id", snap.ID,
			"actor", req.Actor,
			"version", version,
		)

		return nil
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		s.notifier.Publish(*event)
	}

	return result, nil
}

// restoreScalars writes a snapshot's document-level fields back to their
// typed columns. Snapshot scalars round-trip through jsonb, so start_time
// comes back as an RFC 3339 string.
func (s *snapshotService) restoreScalars(ctx context.Context, rundownID string, scalars map[string]interface{}) error {
	for _, field := range []string{
		models.FieldTitle,
		models.FieldStartTime,
		models.FieldTimezone,
		models.FieldNumberingLocked,
	} {
		raw, ok := scalars[field]
		if !ok {
			continue
		}

		var value interface{}
		switch field {
		case models.FieldTitle, models.FieldTimezone:
			str, err := stringOrEmpty(raw)
			if err != nil {
				return fmt.Errorf("snapshot scalar %s: %w", field, err)
			}
			value = str
		case models.FieldStartTime:
			parsed, err := timeOrNil(raw)
			if err != nil {
				return fmt.Errorf("snapshot scalar %s: %w", field, err)
			}
			value = parsed
		case models.FieldNumberingLocked:
			flag, err := boolOrFalse(raw)
			if err != nil {
				return fmt.Errorf("snapshot scalar %s: %w", field, err)
			}
			value = flag
		}

		if err := s.docs.SetScalarField(ctx, rundownID, field, value); err != nil {
			return err
		}
	}

	return nil
}
