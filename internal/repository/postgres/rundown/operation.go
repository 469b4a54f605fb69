package rundown

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	models "rundown/internal/domain/models/rundown"
	rundownRepo "rundown/internal/domain/repositories/rundown"

	"rundown/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOperationRepository implements the OperationRepository interface
type PostgresOperationRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewOperationRepository creates a new operation log repository
func NewOperationRepository(config *postgres.RepositoryConfig) rundownRepo.OperationRepository {
	return &PostgresOperationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Append records one accepted mutation. Runs inside the mutation's own
// transaction so resulting_version can never drift from the rundown's
// version counter.
func (r *PostgresOperationRepository) Append(ctx context.Context, op *models.Operation) error {
	encoded, err := json.Marshal(op.NewValue)
	if err != nil {
		return fmt.Errorf("encode operation value: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (rundown_id, row_id, op_type, field, new_value, actor, resulting_version, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, NOW())
		RETURNING id, created_at
	`, r.tables.Operations)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		op.RundownID,
		op.RowID,
		op.Type,
		op.Field,
		string(encoded),
		op.Actor,
		op.ResultingVersion,
	).Scan(&op.ID, &op.CreatedAt)
	if err != nil {
		return fmt.Errorf("append operation: %w", err)
	}

	return nil
}

// ListPage returns operations for a rundown, newest first.
func (r *PostgresOperationRepository) ListPage(ctx context.Context, rundownID string, limit, offset int) ([]models.Operation, error) {
	query := fmt.Sprintf(`
		SELECT id, rundown_id, row_id, op_type, field, new_value, actor, resulting_version, created_at
		FROM %s
		WHERE rundown_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, r.tables.Operations)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, rundownID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		var op models.Operation
		err := rows.Scan(
			&op.ID,
			&op.RundownID,
			&op.RowID,
			&op.Type,
			&op.Field,
			&op.NewValue,
			&op.Actor,
			&op.ResultingVersion,
			&op.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}

	// Return empty slice instead of nil
	if ops == nil {
		ops = []models.Operation{}
	}

	return ops, nil
}

// DeleteOlderThan is the retention sweep. The log is append-only from the
// application's perspective; this is the single sanctioned delete path.
func (r *PostgresOperationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, r.tables.Operations)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep operations: %w", err)
	}

	return result.RowsAffected(), nil
}
