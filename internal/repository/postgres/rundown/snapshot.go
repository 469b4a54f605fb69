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

// PostgresSnapshotRepository implements the SnapshotRepository interface
type PostgresSnapshotRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(config *postgres.RepositoryConfig) rundownRepo.SnapshotRepository {
	return &PostgresSnapshotRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create persists an immutable snapshot.
func (r *PostgresSnapshotRepository) Create(ctx context.Context, s *models.Snapshot) error {
	scalars, err := json.Marshal(s.Scalars)
	if err != nil {
		return fmt.Errorf("encode snapshot scalars: %w", err)
	}
	rowsPayload, err := json.Marshal(s.Rows)
	if err != nil {
		return fmt.Errorf("encode snapshot rows: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, rundown_id, reason, version, scalars, rows, row_count, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, NOW())
		RETURNING created_at
	`, r.tables.Snapshots)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		s.ID,
		s.RundownID,
		s.Reason,
		s.Version,
		string(scalars),
		string(rowsPayload),
		len(s.Rows),
		s.CreatedBy,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	return nil
}

// GetByID retrieves a full snapshot including its row payload.
func (r *PostgresSnapshotRepository) GetByID(ctx context.Context, rundownID, snapshotID string) (*models.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, rundown_id, reason, version, scalars, rows, created_by, created_at
		FROM %s
		WHERE rundown_id = $1 AND id = $2
	`, r.tables.Snapshots)

	var s models.Snapshot
	var scalars, rowsPayload []byte
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, rundownID, snapshotID).Scan(
		&s.ID,
		&s.RundownID,
		&s.Reason,
		&s.Version,
		&scalars,
		&rowsPayload,
		&s.CreatedBy,
		&s.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("snapshot %s: %w", snapshotID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	if err := json.Unmarshal(scalars, &s.Scalars); err != nil {
		return nil, fmt.Errorf("decode snapshot scalars: %w", err)
	}
	if err := json.Unmarshal(rowsPayload, &s.Rows); err != nil {
		return nil, fmt.Errorf("decode snapshot rows: %w", err)
	}

	return &s, nil
}

// ListMeta returns snapshot metadata newest first.
func (r *PostgresSnapshotRepository) ListMeta(ctx context.Context, rundownID string, limit int) ([]models.SnapshotMeta, error) {
	query := fmt.Sprintf(`
		SELECT id, rundown_id, reason, version, row_count, created_by, created_at
		FROM %s
		WHERE rundown_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, r.tables.Snapshots)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, rundownID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var metas []models.SnapshotMeta
	for rows.Next() {
		var m models.SnapshotMeta
		err := rows.Scan(
			&m.ID,
			&m.RundownID,
			&m.Reason,
			&m.Version,
			&m.RowCount,
			&m.CreatedBy,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot meta: %w", err)
		}
		metas = append(metas, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	// Return empty slice instead of nil
	if metas == nil {
		metas = []models.SnapshotMeta{}
	}

	return metas, nil
}

// LatestMeta returns the most recent snapshot's metadata.
func (r *PostgresSnapshotRepository) LatestMeta(ctx context.Context, rundownID string) (*models.SnapshotMeta, error) {
	query := fmt.Sprintf(`
		SELECT id, rundown_id, reason, version, row_count, created_by, created_at
		FROM %s
		WHERE rundown_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, r.tables.Snapshots)

	var m models.SnapshotMeta
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, rundownID).Scan(
		&m.ID,
		&m.RundownID,
		&m.Reason,
		&m.Version,
		&m.RowCount,
		&m.CreatedBy,
		&m.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("latest snapshot for %s: %w", rundownID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	return &m, nil
}

// PruneOldest enforces the per-rundown retention bound, oldest first.
func (r *PostgresSnapshotRepository) PruneOldest(ctx context.Context, rundownID string, keep int) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE rundown_id = $1 AND id NOT IN (
			SELECT id FROM %s
			WHERE rundown_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		)
	`, r.tables.Snapshots, r.tables.Snapshots)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, rundownID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}

	return result.RowsAffected(), nil
}
