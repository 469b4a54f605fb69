package rundown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"rundown/internal/config"
	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	"rundown/internal/domain/repositories"
	rundownRepo "rundown/internal/domain/repositories/rundown"
	rundownSvc "rundown/internal/domain/services/rundown"
	"rundown/internal/tuning"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// fieldKeyPattern constrains row field keys: identifiers, not prose.
// Custom fields get the same alphabet as built-in ones.
var fieldKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// mutationService implements the MutationService interface. It is the
// pipeline the design notes call for: guard → mutate → operation log →
// snapshot heuristic → notify, with everything up to the heuristic inside
// one transaction and the broadcast strictly after commit.
type mutationService struct {
	docs        rundownRepo.DocumentRepository
	ops         rundownRepo.OperationRepository
	snapshotter *Snapshotter
	txManager   repositories.TransactionManager
	notifier    rundownSvc.Notifier
	cfg         *tuning.Tuning
	logger      *slog.Logger
}

// NewMutationService creates the single write path for rundown content.
func NewMutationService(
	docs rundownRepo.DocumentRepository,
	ops rundownRepo.OperationRepository,
	snapshotter *Snapshotter,
	txManager repositories.TransactionManager,
	notifier rundownSvc.Notifier,
	cfg *tuning.Tuning,
	logger *slog.Logger,
) rundownSvc.MutationService {
	return &mutationService{
		docs:        docs,
		ops:         ops,
		snapshotter: snapshotter,
		txManager:   txManager,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger,
	}
}

// ApplyFieldUpdate applies one field change to a row or to the document.
// Disjoint-field writes commute; same-field writes are last-write-wins in
// storage commit order, no merge attempted.
func (s *mutationService) ApplyFieldUpdate(ctx context.Context, req *rundownSvc.FieldUpdateRequest) (*rundownSvc.MutationResult, error) {
	if err := validateFieldUpdate(req); err != nil {
		return nil, err
	}

	var result *rundownSvc.MutationResult
	var event *models.Event

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		// Serializes every write to this rundown; writes to other
		// rundowns proceed in parallel.
		doc, err := s.docs.GetForUpdate(txCtx, req.RundownID)
		if err != nil {
			return err
		}

		if req.RowID == nil {
			result, event, err = s.applyDocumentField(txCtx, doc, req)
		} else {
			result, event, err = s.applyRowField(txCtx, doc, req)
		}
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

// applyDocumentField handles document-level scalar fields.
func (s *mutationService) applyDocumentField(ctx context.Context, doc *models.Rundown, req *rundownSvc.FieldUpdateRequest) (*rundownSvc.MutationResult, *models.Event, error) {
	if !models.IsDocumentField(req.Field) {
		return nil, nil, &domain.ValidationError{
			Message: fmt.Sprintf("unknown document field %q", req.Field),
		}
	}

	storeValue, current, incoming, err := coerceDocField(doc, req.Field, req.Value)
	if err != nil {
		return nil, nil, err
	}

	if NormalizedEqual(current, incoming) {
		return &rundownSvc.MutationResult{Version: doc.Version, NoChanges: true}, nil, nil
	}

	if err := s.docs.SetScalarField(ctx, doc.ID, req.Field, storeValue); err != nil {
		return nil, nil, err
	}

	version, err := s.docs.BumpVersion(ctx, doc.ID, req.Actor)
	if err != nil {
		return nil, nil, err
	}

	op := &models.Operation{
		RundownID:        doc.ID,
		Type:             models.OpSetDocField,
		Field:            req.Field,
		NewValue:         incoming,
		Actor:            req.Actor,
		ResultingVersion: version,
	}
	if err := s.ops.Append(ctx, op); err != nil {
		return nil, nil, err
	}

	rowCount, err := s.docs.CountRows(ctx, doc.ID)
	if err != nil {
		return nil, nil, err
	}

	after := *doc
	after.Version = version
	after.LastMutator = req.Actor
	if err := s.snapshotter.CaptureIfNeeded(ctx, &after, ChangeSummary{
		Actor:           req.Actor,
		PrevActor:       doc.LastMutator,
		OldRowCount:     rowCount,
		NewRowCount:     rowCount,
		DocFieldChanged: req.Field,
		ScalarsChanged:  true,
	}); err != nil {
		return nil, nil, err
	}

	event := s.contentEvent(doc.ID, version, req.OriginTag, models.ContentChange{
		Op:       models.OpSetDocField,
		Field:    req.Field,
		NewValue: incoming,
		Actor:    req.Actor,
	})

	return &rundownSvc.MutationResult{Version: version}, event, nil
}

// applyRowField handles one cell of one row. A missing row is a benign
// no-op: another actor may have deleted it between the client's read and
// this write.
func (s *mutationService) applyRowField(ctx context.Context, doc *models.Rundown, req *rundownSvc.FieldUpdateRequest) (*rundownSvc.MutationResult, *models.Event, error) {
	row, err := s.docs.GetRow(ctx, doc.ID, *req.RowID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &rundownSvc.MutationResult{Version: doc.Version, NoChanges: true}, nil, nil
		}
		return nil, nil, err
	}

	incoming := Normalize(req.Value)
	if NormalizedEqual(row.FieldValue(req.Field), incoming) {
		return &rundownSvc.MutationResult{Version: doc.Version, NoChanges: true}, nil, nil
	}

	found, err := s.docs.SetRowField(ctx, doc.ID, row.ID, req.Field, incoming)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return &rundownSvc.MutationResult{Version: doc.Version, NoChanges: true}, nil, nil
	}

	version, err := s.docs.BumpVersion(ctx, doc.ID, req.Actor)
	if err != nil {
		return nil, nil, err
	}

	op := &models.Operation{
		RundownID:        doc.ID,
		RowID:            &row.ID,
		Type:             models.OpSetField,
		Field:            req.Field,
		NewValue:         incoming,
		Actor:            req.Actor,
		ResultingVersion: version,
	}
	if err := s.ops.Append(ctx, op); err != nil {
		return nil, nil, err
	}

	rowCount, err := s.docs.CountRows(ctx, doc.ID)
	if err != nil {
		return nil, nil, err
	}

	after := *doc
	after.Version = version
	after.LastMutator = req.Actor
	if err := s.snapshotter.CaptureIfNeeded(ctx, &after, ChangeSummary{
		Actor:       req.Actor,
		PrevActor:   doc.LastMutator,
		OldRowCount: rowCount,
		NewRowCount: rowCount,
	}); err != nil {
		return nil, nil, err
	}

	event := s.contentEvent(doc.ID, version, req.OriginTag, models.ContentChange{
		Op:       models.OpSetField,
		RowID:    &row.ID,
		Field:    req.Field,
		NewValue: incoming,
		Actor:    req.Actor,
	})

	return &rundownSvc.MutationResult{Version: version}, event, nil
}

func (s *mutationService) contentEvent(rundownID string, version int64, originTag string, change models.ContentChange) *models.Event {
	return &models.Event{
		Type:      models.EventContent,
		RundownID: rundownID,
		Payload:   change,
		OriginTag: originTag,
		Version:   version,
	}
}

// validateFieldUpdate rejects malformed requests before any storage work.
func validateFieldUpdate(req *rundownSvc.FieldUpdateRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Field,
			validation.Required,
			validation.Length(1, config.MaxFieldNameLength),
			validation.Match(fieldKeyPattern),
		),
	)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}

	if req.RowID != nil {
		if _, err := uuid.Parse(*req.RowID); err != nil {
			return &domain.ValidationError{Message: "row_id must be a UUID"}
		}
	}

	if req.Value != nil {
		encoded, err := json.Marshal(req.Value)
		if err != nil {
			return &domain.ValidationError{Message: "value is not JSON-encodable"}
		}
		if len(encoded) > config.MaxFieldValueBytes {
			return &domain.ValidationError{
				Message: fmt.Sprintf("value exceeds %d bytes", config.MaxFieldValueBytes),
			}
		}
	}

	return nil
}

// coerceDocField converts an incoming document-field value to its typed
// storage form and returns (storeValue, currentNormalized,
// incomingNormalized). Document fields are typed columns, unlike the
// free-form row cells.
func coerceDocField(doc *models.Rundown, field string, value interface{}) (interface{}, interface{}, interface{}, error) {
	switch field {
	case models.FieldTitle, models.FieldTimezone:
		str, err := stringOrEmpty(value)
		if err != nil {
			return nil, nil, nil, err
		}
		current := doc.Title
		if field == models.FieldTimezone {
			current = doc.Timezone
		}
		return str, current, str, nil

	case models.FieldStartTime:
		parsed, err := timeOrNil(value)
		if err != nil {
			return nil, nil, nil, err
		}
		var current, incoming interface{}
		if doc.StartTime != nil {
			current = doc.StartTime.UTC().Format(time.RFC3339)
		}
		if parsed != nil {
			incoming = parsed.UTC().Format(time.RFC3339)
		}
		return parsed, current, incoming, nil

	case models.FieldNumberingLocked:
		flag, err := boolOrFalse(value)
		if err != nil {
			return nil, nil, nil, err
		}
		return flag, doc.NumberingLocked, flag, nil
	}

	return nil, nil, nil, &domain.ValidationError{
		Message: fmt.Sprintf("unknown document field %q", field),
	}
}

func stringOrEmpty(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", &domain.ValidationError{Message: "expected a string value"}
	}
}

func timeOrNil(value interface{}) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, &domain.ValidationError{Message: "start_time must be RFC 3339"}
		}
		return &parsed, nil
	default:
		return nil, &domain.ValidationError{Message: "start_time must be an RFC 3339 string"}
	}
}

func boolOrFalse(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, &domain.ValidationError{Message: "expected a boolean value"}
	}
}
