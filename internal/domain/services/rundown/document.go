package rundown

import (
	"context"

	models "rundown/internal/domain/models/rundown"
)

// DocumentService handles rundown lifecycle and reads.
type DocumentService interface {
	// CreateRundown creates an empty rundown owned by the actor's team.
	CreateRundown(ctx context.Context, req *CreateRundownRequest) (*models.Rundown, error)

	// GetRundown returns the scalar fields, version and ordered rows.
	GetRundown(ctx context.Context, rundownID string) (*RundownState, error)
}

// CreateRundownRequest seeds a new rundown.
type CreateRundownRequest struct {
	TeamID    string `json:"team_id"`
	Title     string `json:"title"`
	Timezone  string `json:"timezone,omitempty"`
	StartTime string `json:"start_time,omitempty"` // RFC 3339
	Actor     string `json:"-"`
}

// RundownState is the full client-facing view of one rundown.
type RundownState struct {
	Rundown *models.Rundown `json:"rundown"`
	Rows    []models.Row    `json:"rows"`
}
