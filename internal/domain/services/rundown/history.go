package rundown

import (
	"context"

	models "rundown/internal/domain/models/rundown"
)

// HistoryService reads the operation log as human-readable batches.
type HistoryService interface {
	// History returns one page of batched entries, newest first.
	// windowSeconds bounds the gap that keeps consecutive same-actor
	// operations in one batch; zero means the configured default.
	History(ctx context.Context, req *HistoryRequest) ([]models.HistoryEntry, error)
}

// HistoryRequest selects a history page.
type HistoryRequest struct {
	RundownID     string
	WindowSeconds int
	Page          int
	PageSize      int
}
