package rundown

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	rundownRepo "rundown/internal/domain/repositories/rundown"

	"rundown/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPresenceRepository implements the PresenceRepository interface
type PostgresPresenceRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewPresenceRepository creates a new presence repository
func NewPresenceRepository(config *postgres.RepositoryConfig) rundownRepo.PresenceRepository {
	return &PostgresPresenceRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Upsert inserts or refreshes a presence record. The controller flag is
// deliberately left alone on refresh: heartbeats keep a controller alive,
// only ClaimControl reassigns control.
func (r *PostgresPresenceRepository) Upsert(ctx context.Context, p *models.Presence) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (rundown_id, actor, active_cell, controller, last_heartbeat)
		VALUES ($1, $2, $3, false, $4)
		ON CONFLICT (rundown_id, actor)
		DO UPDATE SET active_cell = EXCLUDED.active_cell, last_heartbeat = EXCLUDED.last_heartbeat
	`, r.tables.Presence)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, p.RundownID, p.Actor, p.ActiveCell, p.LastHeartbeat); err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}

	return nil
}

// ListActive returns presences with a heartbeat at or after cutoff.
func (r *PostgresPresenceRepository) ListActive(ctx context.Context, rundownID string, cutoff time.Time) ([]models.Presence, error) {
	query := fmt.Sprintf(`
		SELECT rundown_id, actor, active_cell, controller, last_heartbeat
		FROM %s
		WHERE rundown_id = $1 AND last_heartbeat >= $2
		ORDER BY actor ASC
	`, r.tables.Presence)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, rundownID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list active presence: %w", err)
	}
	defer rows.Close()

	var presences []models.Presence
	for rows.Next() {
		var p models.Presence
		err := rows.Scan(
			&p.RundownID,
			&p.Actor,
			&p.ActiveCell,
			&p.Controller,
			&p.LastHeartbeat,
		)
		if err != nil {
			return nil, fmt.Errorf("scan presence: %w", err)
		}
		presences = append(presences, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presence: %w", err)
	}

	// Return empty slice instead of nil
	if presences == nil {
		presences = []models.Presence{}
	}

	return presences, nil
}

// ClaimControl demotes any current controller and promotes actor in one
// statement pair. Callers wrap it in a transaction so the two cannot be
// observed apart.
func (r *PostgresPresenceRepository) ClaimControl(ctx context.Context, rundownID, actor string, now time.Time) error {
	executor := postgres.GetExecutor(ctx, r.pool)

	demote := fmt.Sprintf(`
		UPDATE %s SET controller = false
		WHERE rundown_id = $1 AND controller = true
	`, r.tables.Presence)
	if _, err := executor.Exec(ctx, demote, rundownID); err != nil {
		return fmt.Errorf("demote controller: %w", err)
	}

	promote := fmt.Sprintf(`
		INSERT INTO %s (rundown_id, actor, active_cell, controller, last_heartbeat)
		VALUES ($1, $2, NULL, true, $3)
		ON CONFLICT (rundown_id, actor)
		DO UPDATE SET controller = true, last_heartbeat = EXCLUDED.last_heartbeat
	`, r.tables.Presence)
	if _, err := executor.Exec(ctx, promote, rundownID, actor, now); err != nil {
		return fmt.Errorf("promote controller: %w", err)
	}

	return nil
}

// Controller returns the live controller, if any.
func (r *PostgresPresenceRepository) Controller(ctx context.Context, rundownID string, cutoff time.Time) (*models.Presence, error) {
	query := fmt.Sprintf(`
		SELECT rundown_id, actor, active_cell, controller, last_heartbeat
		FROM %s
		WHERE rundown_id = $1 AND controller = true AND last_heartbeat >= $2
	`, r.tables.Presence)

	var p models.Presence
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, rundownID, cutoff).Scan(
		&p.RundownID,
		&p.Actor,
		&p.ActiveCell,
		&p.Controller,
		&p.LastHeartbeat,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("controller for %s: %w", rundownID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get controller: %w", err)
	}

	return &p, nil
}

// DeleteExpired sweeps presence rows older than cutoff, everywhere. A
// crashed client disappears here with no special-case cleanup.
func (r *PostgresPresenceRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE last_heartbeat < $1`, r.tables.Presence)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep presence: %w", err)
	}

	return result.RowsAffected(), nil
}
