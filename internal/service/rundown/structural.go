package rundown

import (
	"context"
	"fmt"
	"sort"

	"rundown/internal/config"
	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	rundownSvc "rundown/internal/domain/services/rundown"

	"github.com/google/uuid"
)

// ApplyStructuralOp mutates the row sequence. Structural writes to one
// rundown serialize against each other via a transaction-scoped advisory
// token; a concurrent holder turns into domain.ErrBusy instead of a queue.
func (s *mutationService) ApplyStructuralOp(ctx context.Context, req *rundownSvc.StructuralOpRequest) (*rundownSvc.MutationResult, error) {
	if err := validateStructuralOp(req); err != nil {
		return nil, err
	}

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

		oldCount, err := s.docs.CountRows(txCtx, doc.ID)
		if err != nil {
			return err
		}

		scalarChanges, err := docScalarChanges(doc, req.Scalars)
		if err != nil {
			return err
		}

		newCount := prospectiveRowCount(req, oldCount)
		if wipeRejected(oldCount, newCount, len(scalarChanges) > 0, s.cfg.Guard.WipeThreshold, req.Force) {
			return &domain.UnsafeWipeError{RundownID: req.RundownID, OldRows: oldCount}
		}

		// A wipe snapshots the doomed state before any row is touched;
		// afterwards there would be nothing left to preserve.
		wipe := s.snapshotter.WipeImminent(oldCount, newCount)
		if wipe {
			if err := s.snapshotter.Capture(txCtx, doc, models.SnapshotPreWipe, req.Actor); err != nil {
				return err
			}
		}

		result, event, err = s.applyStructural(txCtx, doc, req, oldCount, newCount, scalarChanges, wipe)
		return err
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		s.notifier.Publish(*event)
	}

	return result, nil
}

// prospectiveRowCount computes the row count the op would leave behind,
// for the guard. Only delete and replace can shrink the sequence.
func prospectiveRowCount(req *rundownSvc.StructuralOpRequest, oldCount int) int {
	switch req.Op {
	case rundownSvc.StructuralInsert:
		return oldCount + 1
	case rundownSvc.StructuralDelete:
		if oldCount > 0 {
			return oldCount - 1
		}
		return 0
	case rundownSvc.StructuralReplace:
		return len(req.Rows)
	default:
		return oldCount
	}
}

// scalarChange is one document-level field update riding on a replace.
type scalarChange struct {
	field  string
	store  interface{} // typed value for the column
	logged interface{} // normalized value for the operation log
}

// docScalarChanges coerces a replace's scalar payload and drops entries
// whose normalized value already matches the document.
func docScalarChanges(doc *models.Rundown, scalars map[string]interface{}) ([]scalarChange, error) {
	if len(scalars) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(scalars))
	for field := range scalars {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var out []scalarChange
	for _, field := range fields {
		store, current, incoming, err := coerceDocField(doc, field, scalars[field])
		if err != nil {
			return nil, err
		}
		if NormalizedEqual(current, incoming) {
			continue
		}
		out = append(out, scalarChange{field: field, store: store, logged: incoming})
	}
	return out, nil
}

// applyStructural dispatches on op after the guard has passed. Runs with
// the rundown row locked and the structural token held. preCaptured means
// a pre_wipe snapshot of the old state already exists, so the post-change
// heuristic is skipped.
func (s *mutationService) applyStructural(ctx context.Context, doc *models.Rundown, req *rundownSvc.StructuralOpRequest, oldCount, newCount int, scalarChanges []scalarChange, preCaptured bool) (*rundownSvc.MutationResult, *models.Event, error) {
	var opType models.OpType
	var rowID *string
	var newValue interface{}

	switch req.Op {
	case rundownSvc.StructuralInsert:
		row := &models.Row{
			ID:        uuid.New().String(),
			RundownID: doc.ID,
			Kind:      req.Kind,
			Position:  oldCount, // append by default
			Fields:    normalizeFields(req.Fields),
		}
		if req.Position != nil {
			row.Position = clampPosition(*req.Position, oldCount)
		}
		if err := s.docs.InsertRow(ctx, row); err != nil {
			return nil, nil, err
		}
		opType = models.OpInsertRow
		rowID = &row.ID
		newValue = map[string]interface{}{"position": row.Position, "kind": string(row.Kind)}

	case rundownSvc.StructuralDelete:
		found, err := s.docs.DeleteRow(ctx, doc.ID, *req.RowID)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			return &rundownSvc.MutationResult{Version: doc.Version, NoChanges: true}, nil, nil
		}
		opType = models.OpDeleteRow
		rowID = req.RowID
		newCount = oldCount - 1

	case rundownSvc.StructuralMove:
		to := clampPosition(*req.Position, oldCount-1)
		found, err := s.docs.MoveRow(ctx, doc.ID, *req.RowID, to)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			return &rundownSvc.MutationResult{Version: doc.Version, NoChanges: true}, nil, nil
		}
		opType = models.OpMoveRow
		rowID = req.RowID
		newValue = map[string]interface{}{"position": to}

	case rundownSvc.StructuralReorder:
		if err := s.docs.ReorderRows(ctx, doc.ID, req.Order); err != nil {
			return nil, nil, err
		}
		opType = models.OpReorderRows
		newValue = req.Order

	case rundownSvc.StructuralFloat:
		found, err := s.docs.SetRowFloated(ctx, doc.ID, *req.RowID, *req.Floated)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			return &rundownSvc.MutationResult{Version: doc.Version, NoChanges: true}, nil, nil
		}
		opType = models.OpFloatRow
		rowID = req.RowID
		newValue = *req.Floated

	case rundownSvc.StructuralReplace:
		rows := make([]models.Row, len(req.Rows))
		for i, spec := range req.Rows {
			rows[i] = models.Row{
				ID:        uuid.New().String(),
				RundownID: doc.ID,
				Kind:      spec.Kind,
				Position:  i,
				Floated:   spec.Floated,
				Fields:    normalizeFields(spec.Fields),
			}
		}
		if err := s.docs.ReplaceRows(ctx, doc.ID, rows); err != nil {
			return nil, nil, err
		}
		opType = models.OpReplaceRows
		replaceValue := map[string]interface{}{"row_count": len(rows)}
		if len(scalarChanges) > 0 {
			scalars := make(map[string]interface{}, len(scalarChanges))
			for _, ch := range scalarChanges {
				scalars[ch.field] = ch.logged
			}
			replaceValue["scalars"] = scalars
		}
		newValue = replaceValue

	default:
		return nil, nil, &domain.ValidationError{Message: fmt.Sprintf("unknown structural op %q", req.Op)}
	}

	for _, ch := range scalarChanges {
		if err := s.docs.SetScalarField(ctx, doc.ID, ch.field, ch.store); err != nil {
			return nil, nil, err
		}
	}

	version, err := s.docs.BumpVersion(ctx, doc.ID, req.Actor)
	if err != nil {
		return nil, nil, err
	}

	op := &models.Operation{
		RundownID:        doc.ID,
		RowID:            rowID,
		Type:             opType,
		NewValue:         newValue,
		Actor:            req.Actor,
		ResultingVersion: version,
	}
	if err := s.ops.Append(ctx, op); err != nil {
		return nil, nil, err
	}
	for _, ch := range scalarChanges {
		if err := s.ops.Append(ctx, &models.Operation{
			RundownID:        doc.ID,
			Type:             models.OpSetDocField,
			Field:            ch.field,
			NewValue:         ch.logged,
			Actor:            req.Actor,
			ResultingVersion: version,
		}); err != nil {
			return nil, nil, err
		}
	}

	if !preCaptured {
		docFieldChanged := ""
		for _, ch := range scalarChanges {
			if ch.field == models.FieldTitle || ch.field == models.FieldStartTime {
				docFieldChanged = ch.field
				break
			}
		}
		after := *doc
		after.Version = version
		after.LastMutator = req.Actor
		if err := s.snapshotter.CaptureIfNeeded(ctx, &after, ChangeSummary{
			Actor:           req.Actor,
			PrevActor:       doc.LastMutator,
			OldRowCount:     oldCount,
			NewRowCount:     newCount,
			DocFieldChanged: docFieldChanged,
			ScalarsChanged:  len(scalarChanges) > 0,
		}); err != nil {
			return nil, nil, err
		}
	}

	event := s.contentEvent(doc.ID, version, req.OriginTag, models.ContentChange{
		Op:       opType,
		RowID:    rowID,
		NewValue: newValue,
		Actor:    req.Actor,
	})

	return &rundownSvc.MutationResult{Version: version, RowID: rowID}, event, nil
}

// validateStructuralOp checks op-specific payload presence up front so the
// dispatch switch can dereference pointers without nil checks.
func validateStructuralOp(req *rundownSvc.StructuralOpRequest) error {
	if len(req.Scalars) > 0 {
		if req.Op != rundownSvc.StructuralReplace {
			return &domain.ValidationError{Message: "scalars are only valid with replace"}
		}
		for field := range req.Scalars {
			if !models.IsDocumentField(field) {
				return &domain.ValidationError{Message: fmt.Sprintf("unknown document field %q", field)}
			}
		}
	}

	switch req.Op {
	case rundownSvc.StructuralInsert:
		if !req.Kind.Valid() {
			return &domain.ValidationError{Message: fmt.Sprintf("invalid row kind %q", req.Kind)}
		}
		for field := range req.Fields {
			if len(field) == 0 || len(field) > config.MaxFieldNameLength || !fieldKeyPattern.MatchString(field) {
				return &domain.ValidationError{Message: fmt.Sprintf("malformed field key %q", field)}
			}
		}

	case rundownSvc.StructuralDelete:
		if err := requireRowID(req.RowID); err != nil {
			return err
		}

	case rundownSvc.StructuralMove:
		if err := requireRowID(req.RowID); err != nil {
			return err
		}
		if req.Position == nil {
			return &domain.ValidationError{Message: "move requires position"}
		}

	case rundownSvc.StructuralReorder:
		if len(req.Order) == 0 {
			return &domain.ValidationError{Message: "reorder requires a non-empty order"}
		}
		for _, id := range req.Order {
			if _, err := uuid.Parse(id); err != nil {
				return &domain.ValidationError{Message: fmt.Sprintf("order contains invalid row id %q", id)}
			}
		}

	case rundownSvc.StructuralFloat:
		if err := requireRowID(req.RowID); err != nil {
			return err
		}
		if req.Floated == nil {
			return &domain.ValidationError{Message: "float requires floated"}
		}

	case rundownSvc.StructuralReplace:
		if len(req.Rows) > config.MaxRowsPerReplace {
			return &domain.ValidationError{
				Message: fmt.Sprintf("replace exceeds %d rows", config.MaxRowsPerReplace),
			}
		}
		for _, spec := range req.Rows {
			if !spec.Kind.Valid() {
				return &domain.ValidationError{Message: fmt.Sprintf("invalid row kind %q", spec.Kind)}
			}
			for field := range spec.Fields {
				if len(field) == 0 || len(field) > config.MaxFieldNameLength || !fieldKeyPattern.MatchString(field) {
					return &domain.ValidationError{Message: fmt.Sprintf("malformed field key %q", field)}
				}
			}
		}

	default:
		return &domain.ValidationError{Message: fmt.Sprintf("unknown structural op %q", req.Op)}
	}

	return nil
}

func requireRowID(rowID *string) error {
	if rowID == nil {
		return &domain.ValidationError{Message: "row_id is required"}
	}
	if _, err := uuid.Parse(*rowID); err != nil {
		return &domain.ValidationError{Message: "row_id must be a UUID"}
	}
	return nil
}

// clampPosition bounds a requested position to [0, max].
func clampPosition(pos, max int) int {
	if pos < 0 {
		return 0
	}
	if pos > max {
		if max < 0 {
			return 0
		}
		return max
	}
	return pos
}

// normalizeFields applies empty-value normalization to a field map,
// dropping keys whose values normalize to nil.
func normalizeFields(fields map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if n := Normalize(v); n != nil {
			out[k] = n
		}
	}
	return out
}
