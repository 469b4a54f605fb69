package rundown

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	rundownRepo "rundown/internal/domain/repositories/rundown"

	"rundown/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) rundownRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// scalarColumn maps a document-level field name to its column. Field names
// are validated upstream; the default case is a guard against a routing
// bug, not user input.
func scalarColumn(field string) (string, error) {
	switch field {
	case models.FieldTitle:
		return "title", nil
	case models.FieldStartTime:
		return "start_time", nil
	case models.FieldTimezone:
		return "timezone", nil
	case models.FieldNumberingLocked:
		return "numbering_locked", nil
	default:
		return "", fmt.Errorf("unknown document field %q: %w", field, domain.ErrValidation)
	}
}

// Create inserts a new rundown with version 1.
func (r *PostgresDocumentRepository) Create(ctx context.Context, rd *models.Rundown) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, team_id, title, start_time, timezone, numbering_locked, version, last_mutator, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, NOW(), NOW())
		RETURNING version, created_at, updated_at
	`, r.tables.Rundowns)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		rd.ID,
		rd.TeamID,
		rd.Title,
		rd.StartTime,
		rd.Timezone,
		rd.NumberingLocked,
		rd.LastMutator,
	).Scan(&rd.Version, &rd.CreatedAt, &rd.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create rundown: %w", err)
	}

	return nil
}

// GetByID retrieves a rundown's scalar fields and version.
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Rundown, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate retrieves a rundown with a row-level write lock, serializing
// all writers of this rundown behind the caller's transaction.
func (r *PostgresDocumentRepository) GetForUpdate(ctx context.Context, id string) (*models.Rundown, error) {
	return r.get(ctx, id, true)
}

func (r *PostgresDocumentRepository) get(ctx context.Context, id string, forUpdate bool) (*models.Rundown, error) {
	query := fmt.Sprintf(`
		SELECT id, team_id, title, start_time, timezone, numbering_locked, version, last_mutator, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Rundowns)
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var rd models.Rundown
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&rd.ID,
		&rd.TeamID,
		&rd.Title,
		&rd.StartTime,
		&rd.Timezone,
		&rd.NumberingLocked,
		&rd.Version,
		&rd.LastMutator,
		&rd.CreatedAt,
		&rd.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("rundown %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get rundown: %w", err)
	}

	return &rd, nil
}

// SetScalarField writes one document-level column. The version bump is a
// separate call so the mutator controls exactly when (and whether) the
// version moves.
func (r *PostgresDocumentRepository) SetScalarField(ctx context.Context, id, field string, value interface{}) error {
	column, err := scalarColumn(field)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2`, r.tables.Rundowns, column)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("set rundown field %s: %w", field, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("rundown %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// BumpVersion increments the version counter and stamps the writer.
func (r *PostgresDocumentRepository) BumpVersion(ctx context.Context, id, actor string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET version = version + 1, last_mutator = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING version
	`, r.tables.Rundowns)

	var version int64
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id, actor).Scan(&version)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return 0, fmt.Errorf("rundown %s: %w", id, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("bump version: %w", err)
	}

	return version, nil
}

// ListRows returns the ordered row sequence.
func (r *PostgresDocumentRepository) ListRows(ctx context.Context, rundownID string) ([]models.Row, error) {
	query := fmt.Sprintf(`
		SELECT id, rundown_id, kind, position, floated, fields, created_at, updated_at
		FROM %s
		WHERE rundown_id = $1
		ORDER BY position ASC
	`, r.tables.Rows)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, rundownID)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	var result []models.Row
	for rows.Next() {
		var row models.Row
		err := rows.Scan(
			&row.ID,
			&row.RundownID,
			&row.Kind,
			&row.Position,
			&row.Floated,
			&row.Fields,
			&row.CreatedAt,
			&row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	// Return empty slice instead of nil
	if result == nil {
		result = []models.Row{}
	}

	return result, nil
}

// GetRow retrieves a single row.
func (r *PostgresDocumentRepository) GetRow(ctx context.Context, rundownID, rowID string) (*models.Row, error) {
	query := fmt.Sprintf(`
		SELECT id, rundown_id, kind, position, floated, fields, created_at, updated_at
		FROM %s
		WHERE rundown_id = $1 AND id = $2
	`, r.tables.Rows)

	var row models.Row
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, rundownID, rowID).Scan(
		&row.ID,
		&row.RundownID,
		&row.Kind,
		&row.Position,
		&row.Floated,
		&row.Fields,
		&row.CreatedAt,
		&row.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("row %s: %w", rowID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get row: %w", err)
	}

	return &row, nil
}

// SetRowField writes one cell of one row. A nil value removes the key,
// keeping the fields map free of empty sentinels.
func (r *PostgresDocumentRepository) SetRowField(ctx context.Context, rundownID, rowID, field string, value interface{}) (bool, error) {
	executor := postgres.GetExecutor(ctx, r.pool)

	var query string
	var args []interface{}
	if value == nil {
		query = fmt.Sprintf(`
			UPDATE %s
			SET fields = fields - $3, updated_at = NOW()
			WHERE rundown_id = $1 AND id = $2
		`, r.tables.Rows)
		args = []interface{}{rundownID, rowID, field}
	} else {
		encoded, err := json.Marshal(value)
		if err != nil {
			return false, fmt.Errorf("encode field value: %w", err)
		}
		query = fmt.Sprintf(`
			UPDATE %s
			SET fields = jsonb_set(COALESCE(fields, '{}'::jsonb), ARRAY[$3], $4::jsonb, true), updated_at = NOW()
			WHERE rundown_id = $1 AND id = $2
		`, r.tables.Rows)
		args = []interface{}{rundownID, rowID, field, string(encoded)}
	}

	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("set row field %s: %w", field, err)
	}

	return result.RowsAffected() > 0, nil
}

// CountRows returns the row count of the sequence.
func (r *PostgresDocumentRepository) CountRows(ctx context.Context, rundownID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE rundown_id = $1`, r.tables.Rows)

	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, rundownID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}

	return count, nil
}

// InsertRow inserts at row.Position, shifting later rows down by one.
// Callers hold the structural lock, so the shift and insert cannot
// interleave with another structural write.
func (r *PostgresDocumentRepository) InsertRow(ctx context.Context, row *models.Row) error {
	executor := postgres.GetExecutor(ctx, r.pool)

	shift := fmt.Sprintf(`
		UPDATE %s SET position = position + 1
		WHERE rundown_id = $1 AND position >= $2
	`, r.tables.Rows)
	if _, err := executor.Exec(ctx, shift, row.RundownID, row.Position); err != nil {
		return fmt.Errorf("shift rows for insert: %w", err)
	}

	fields, err := json.Marshal(row.Fields)
	if err != nil {
		return fmt.Errorf("encode row fields: %w", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, rundown_id, kind, position, floated, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, NOW(), NOW())
		RETURNING created_at, updated_at
	`, r.tables.Rows)
	err = executor.QueryRow(ctx, insert,
		row.ID,
		row.RundownID,
		row.Kind,
		row.Position,
		row.Floated,
		string(fields),
	).Scan(&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert row: %w", err)
	}

	return nil
}

// DeleteRow removes a row and compacts positions after it.
func (r *PostgresDocumentRepository) DeleteRow(ctx context.Context, rundownID, rowID string) (bool, error) {
	executor := postgres.GetExecutor(ctx, r.pool)

	del := fmt.Sprintf(`
		DELETE FROM %s WHERE rundown_id = $1 AND id = $2
		RETURNING position
	`, r.tables.Rows)

	var position int
	err := executor.QueryRow(ctx, del, rundownID, rowID).Scan(&position)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete row: %w", err)
	}

	compact := fmt.Sprintf(`
		UPDATE %s SET position = position - 1
		WHERE rundown_id = $1 AND position > $2
	`, r.tables.Rows)
	if _, err := executor.Exec(ctx, compact, rundownID, position); err != nil {
		return false, fmt.Errorf("compact rows after delete: %w", err)
	}

	return true, nil
}

// MoveRow moves a row to toPosition, shifting the rows in between.
func (r *PostgresDocumentRepository) MoveRow(ctx context.Context, rundownID, rowID string, toPosition int) (bool, error) {
	executor := postgres.GetExecutor(ctx, r.pool)

	var from int
	sel := fmt.Sprintf(`SELECT position FROM %s WHERE rundown_id = $1 AND id = $2`, r.tables.Rows)
	if err := executor.QueryRow(ctx, sel, rundownID, rowID).Scan(&from); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return false, nil
		}
		return false, fmt.Errorf("get row position: %w", err)
	}

	if from == toPosition {
		return true, nil
	}

	var shift string
	if from < toPosition {
		shift = fmt.Sprintf(`
			UPDATE %s SET position = position - 1
			WHERE rundown_id = $1 AND position > $2 AND position <= $3
		`, r.tables.Rows)
	} else {
		shift = fmt.Sprintf(`
			UPDATE %s SET position = position + 1
			WHERE rundown_id = $1 AND position >= $3 AND position < $2
		`, r.tables.Rows)
	}
	if _, err := executor.Exec(ctx, shift, rundownID, from, toPosition); err != nil {
		return false, fmt.Errorf("shift rows for move: %w", err)
	}

	place := fmt.Sprintf(`
		UPDATE %s SET position = $3, updated_at = NOW()
		WHERE rundown_id = $1 AND id = $2
	`, r.tables.Rows)
	if _, err := executor.Exec(ctx, place, rundownID, rowID, toPosition); err != nil {
		return false, fmt.Errorf("place moved row: %w", err)
	}

	return true, nil
}

// ReorderRows assigns positions following orderedIDs. Unknown ids are
// ignored; rows missing from the list keep their relative order after the
// listed ones.
func (r *PostgresDocumentRepository) ReorderRows(ctx context.Context, rundownID string, orderedIDs []string) error {
	existing, err := r.ListRows(ctx, rundownID)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(existing))
	for _, row := range existing {
		known[row.ID] = true
	}

	final := make([]string, 0, len(existing))
	listed := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if known[id] && !listed[id] {
			final = append(final, id)
			listed[id] = true
		}
	}
	for _, row := range existing {
		if !listed[row.ID] {
			final = append(final, row.ID)
		}
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s AS t
		SET position = u.ord - 1, updated_at = NOW()
		FROM unnest($2::uuid[]) WITH ORDINALITY AS u(id, ord)
		WHERE t.rundown_id = $1 AND t.id = u.id
	`, r.tables.Rows)
	if _, err := executor.Exec(ctx, query, rundownID, final); err != nil {
		return fmt.Errorf("reorder rows: %w", err)
	}

	return nil
}

// SetRowFloated toggles the floating/suppressed flag.
func (r *PostgresDocumentRepository) SetRowFloated(ctx context.Context, rundownID, rowID string, floated bool) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET floated = $3, updated_at = NOW()
		WHERE rundown_id = $1 AND id = $2
	`, r.tables.Rows)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, rundownID, rowID, floated)
	if err != nil {
		return false, fmt.Errorf("set row floated: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ReplaceRows swaps the entire row sequence.
func (r *PostgresDocumentRepository) ReplaceRows(ctx context.Context, rundownID string, newRows []models.Row) error {
	executor := postgres.GetExecutor(ctx, r.pool)

	clear := fmt.Sprintf(`DELETE FROM %s WHERE rundown_id = $1`, r.tables.Rows)
	if _, err := executor.Exec(ctx, clear, rundownID); err != nil {
		return fmt.Errorf("clear rows for replace: %w", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, rundown_id, kind, position, floated, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, NOW(), NOW())
	`, r.tables.Rows)

	for i := range newRows {
		row := &newRows[i]
		fields, err := json.Marshal(row.Fields)
		if err != nil {
			return fmt.Errorf("encode row fields: %w", err)
		}
		if _, err := executor.Exec(ctx, insert,
			row.ID,
			row.RundownID,
			row.Kind,
			row.Position,
			row.Floated,
			string(fields),
		); err != nil {
			return fmt.Errorf("insert replacement row: %w", err)
		}
	}

	return nil
}

// TryStructuralLock try-acquires the per-rundown structural token as a
// transaction-scoped advisory lock. Released automatically at commit or
// rollback, so there is no unlock path to forget.
func (r *PostgresDocumentRepository) TryStructuralLock(ctx context.Context, rundownID string) (bool, error) {
	var acquired bool
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx,
		`SELECT pg_try_advisory_xact_lock(hashtextextended($1, 0))`,
		rundownID,
	).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("acquire structural lock: %w", err)
	}

	return acquired, nil
}
