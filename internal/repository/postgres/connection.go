package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"rundown/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Rundowns   string
	Rows       string
	Operations string
	Snapshots  string
	Presence   string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Rundowns:   fmt.Sprintf("%srundowns", prefix),
		Rows:       fmt.Sprintf("%srundown_rows", prefix),
		Operations: fmt.Sprintf("%srundown_ops", prefix),
		Snapshots:  fmt.Sprintf("%srundown_snapshots", prefix),
		Presence:   fmt.Sprintf("%srundown_presence", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// Query execution mode: pgx defaults to prepared statements
// (QueryExecModeCacheStatement), which PgBouncer in transaction pooling
// mode (port 6543) does not support. When that port is detected and the
// user has not overridden the mode via the connection string
// (?default_query_exec_mode=...), switch to QueryExecModeCacheDescribe:
// extended protocol (required for JSONB encoding of map[string]interface{}
// field values) without server-side prepared statements.
//
// Dynamic table prefixes (dev_/test_/prod_) are interpolated into SQL
// before it reaches the server, so each environment gets its own
// statements; this stays safe with prepared statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	// Configure pool size
	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
// This enables repositories to automatically participate in transactions when they exist.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
