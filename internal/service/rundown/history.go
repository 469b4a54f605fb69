package rundown

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"rundown/internal/config"
	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	rundownRepo "rundown/internal/domain/repositories/rundown"
	rundownSvc "rundown/internal/domain/services/rundown"
	"rundown/internal/tuning"
)

// historyService implements the HistoryService interface
type historyService struct {
	docs   rundownRepo.DocumentRepository
	ops    rundownRepo.OperationRepository
	cfg    tuning.HistoryTuning
	logger *slog.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(
	docs rundownRepo.DocumentRepository,
	ops rundownRepo.OperationRepository,
	cfg tuning.HistoryTuning,
	logger *slog.Logger,
) rundownSvc.HistoryService {
	return &historyService{docs: docs, ops: ops, cfg: cfg, logger: logger}
}

// History returns one page of the operation log batched into
// human-readable entries, newest first. Batching runs per page, so a run
// of edits straddling a page boundary shows as two entries.
func (s *historyService) History(ctx context.Context, req *rundownSvc.HistoryRequest) ([]models.HistoryEntry, error) {
	if _, err := s.docs.GetByID(ctx, req.RundownID); err != nil {
		return nil, err
	}

	window := time.Duration(req.WindowSeconds) * time.Second
	if req.WindowSeconds <= 0 {
		window = s.cfg.BatchWindow()
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}
	if pageSize > config.MaxHistoryPageSize {
		pageSize = config.MaxHistoryPageSize
	}
	page := req.Page
	if page < 0 {
		return nil, &domain.ValidationError{Message: "page must be non-negative"}
	}

	ops, err := s.ops.ListPage(ctx, req.RundownID, pageSize, page*pageSize)
	if err != nil {
		return nil, err
	}

	return batchOperations(ops, window), nil
}

// batchOperations coalesces a newest-first operation slice into history
// entries. A batch breaks on actor change or when the gap between two
// consecutive operations exceeds window.
func batchOperations(ops []models.Operation, window time.Duration) []models.HistoryEntry {
	entries := []models.HistoryEntry{}
	if len(ops) == 0 {
		return entries
	}

	var batch []models.Operation
	flush := func() {
		if len(batch) == 0 {
			return
		}
		entries = append(entries, summarizeBatch(batch))
		batch = nil
	}

	for _, op := range ops {
		if len(batch) > 0 {
			prev := batch[len(batch)-1]
			// ops arrive newest first, so prev is the later operation
			if op.Actor != prev.Actor || prev.CreatedAt.Sub(op.CreatedAt) > window {
				flush()
			}
		}
		batch = append(batch, op)
	}
	flush()

	return entries
}

// summarizeBatch builds one entry from a non-empty newest-first batch.
func summarizeBatch(batch []models.Operation) models.HistoryEntry {
	typeCounts := map[models.OpType]int{}
	fieldSet := map[string]struct{}{}
	for _, op := range batch {
		typeCounts[op.Type]++
		if op.Field != "" {
			fieldSet[op.Field] = struct{}{}
		}
	}

	types := make([]string, 0, len(typeCounts))
	for t := range typeCounts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	newest := batch[0]
	oldest := batch[len(batch)-1]

	return models.HistoryEntry{
		Actor:          newest.Actor,
		Summary:        summarize(typeCounts, fieldSet, len(batch)),
		OperationTypes: types,
		FirstTs:        oldest.CreatedAt,
		LastTs:         newest.CreatedAt,
		Count:          len(batch),
		Details:        batch,
	}
}

// summarize renders a batch as a short sentence. Homogeneous batches get a
// specific phrasing; mixed batches fall back to a count. Row and document
// field edits are one category here, since both read as "edited X".
func summarize(typeCounts map[models.OpType]int, fields map[string]struct{}, total int) string {
	if typeCounts[models.OpSetField]+typeCounts[models.OpSetDocField] == total {
		if len(fields) == 1 {
			for f := range fields {
				return fmt.Sprintf("Edited %s", f)
			}
		}
		return fmt.Sprintf("Edited %d fields", len(fields))
	}

	if len(typeCounts) != 1 {
		return fmt.Sprintf("Made %d changes", total)
	}

	for opType, n := range typeCounts {
		switch opType {
		case models.OpInsertRow:
			return pluralize("Added %d row", "Added %d rows", n)
		case models.OpDeleteRow:
			return pluralize("Deleted %d row", "Deleted %d rows", n)
		case models.OpMoveRow, models.OpReorderRows:
			return pluralize("Moved %d row", "Moved %d rows", n)
		case models.OpFloatRow:
			return pluralize("Floated or unfloated %d row", "Floated or unfloated %d rows", n)
		case models.OpReplaceRows:
			return "Replaced all rows"
		case models.OpRestore:
			return "Restored from a snapshot"
		}
	}

	return fmt.Sprintf("Made %d changes", total)
}

func pluralize(singular, plural string, n int) string {
	if n == 1 {
		return fmt.Sprintf(singular, n)
	}
	return fmt.Sprintf(plural, n)
}
