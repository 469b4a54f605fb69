package rundown

import (
	"context"
	"log/slog"
	"time"

	"rundown/internal/config"
	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	rundownRepo "rundown/internal/domain/repositories/rundown"
	rundownSvc "rundown/internal/domain/services/rundown"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// documentService implements the DocumentService interface
type documentService struct {
	docs   rundownRepo.DocumentRepository
	logger *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(docs rundownRepo.DocumentRepository, logger *slog.Logger) rundownSvc.DocumentService {
	return &documentService{docs: docs, logger: logger}
}

// CreateRundown creates an empty rundown at version 1.
func (s *documentService) CreateRundown(ctx context.Context, req *rundownSvc.CreateRundownRequest) (*models.Rundown, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.TeamID, validation.Required),
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxTitleLength)),
	)
	if err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	var startTime *time.Time
	if req.StartTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return nil, &domain.ValidationError{Message: "start_time must be RFC 3339"}
		}
		startTime = &parsed
	}

	r := &models.Rundown{
		ID:          uuid.New().String(),
		TeamID:      req.TeamID,
		Title:       req.Title,
		StartTime:   startTime,
		Timezone:    req.Timezone,
		LastMutator: req.Actor,
	}
	if err := s.docs.Create(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("rundown created",
		"rundown_id", r.ID,
		"team_id", r.TeamID,
		"actor", req.Actor,
	)

	return r, nil
}

// GetRundown returns the document scalars and the ordered row sequence.
func (s *documentService) GetRundown(ctx context.Context, rundownID string) (*rundownSvc.RundownState, error) {
	doc, err := s.docs.GetByID(ctx, rundownID)
	if err != nil {
		return nil, err
	}

	rows, err := s.docs.ListRows(ctx, rundownID)
	if err != nil {
		return nil, err
	}

	return &rundownSvc.RundownState{Rundown: doc, Rows: rows}, nil
}
