package main

import (
	"context"
	"flag"
	"log"

	"rundown/internal/config"
	"rundown/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before creating the schema (fresh start)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	log.Printf("Setting up schema (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")
}

// dropAllTables drops the rundown tables in dependency order.
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	drops := []string{
		`DROP TABLE IF EXISTS ` + tables.Presence + ` CASCADE`,
		`DROP TABLE IF EXISTS ` + tables.Snapshots + ` CASCADE`,
		`DROP TABLE IF EXISTS ` + tables.Operations + ` CASCADE`,
		`DROP TABLE IF EXISTS ` + tables.Rows + ` CASCADE`,
		`DROP TABLE IF EXISTS ` + tables.Rundowns + ` CASCADE`,
	}
	for _, dropSQL := range drops {
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
	}
	return nil
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	_, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")
	if err != nil {
		return err
	}

	// Create rundowns table
	createRundowns := `
		CREATE TABLE IF NOT EXISTS ` + tables.Rundowns + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			team_id UUID NOT NULL,
			title TEXT NOT NULL,
			start_time TIMESTAMPTZ,
			timezone TEXT NOT NULL DEFAULT '',
			numbering_locked BOOLEAN NOT NULL DEFAULT false,
			version BIGINT NOT NULL DEFAULT 1,
			last_mutator TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createRundowns); err != nil {
		return err
	}

	// Create rows table. Position is gapless per rundown; the structural
	// token serializes the shift updates that maintain it.
	createRows := `
		CREATE TABLE IF NOT EXISTS ` + tables.Rows + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			rundown_id UUID NOT NULL REFERENCES ` + tables.Rundowns + `(id) ON DELETE CASCADE,
			kind TEXT NOT NULL DEFAULT 'regular',
			position INTEGER NOT NULL,
			floated BOOLEAN NOT NULL DEFAULT false,
			fields JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createRows); err != nil {
		return err
	}

	// Create operations table (append-only log)
	createOperations := `
		CREATE TABLE IF NOT EXISTS ` + tables.Operations + ` (
			id BIGSERIAL PRIMARY KEY,
			rundown_id UUID NOT NULL REFERENCES ` + tables.Rundowns + `(id) ON DELETE CASCADE,
			row_id UUID,
			op_type TEXT NOT NULL,
			field TEXT NOT NULL DEFAULT '',
			new_value JSONB,
			actor TEXT NOT NULL,
			resulting_version BIGINT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createOperations); err != nil {
		return err
	}

	// Create snapshots table (immutable full copies)
	createSnapshots := `
		CREATE TABLE IF NOT EXISTS ` + tables.Snapshots + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			rundown_id UUID NOT NULL REFERENCES ` + tables.Rundowns + `(id) ON DELETE CASCADE,
			reason TEXT NOT NULL,
			version BIGINT NOT NULL,
			scalars JSONB NOT NULL,
			rows JSONB NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			created_by TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createSnapshots); err != nil {
		return err
	}

	// Create presence table
	createPresence := `
		CREATE TABLE IF NOT EXISTS ` + tables.Presence + ` (
			rundown_id UUID NOT NULL REFERENCES ` + tables.Rundowns + `(id) ON DELETE CASCADE,
			actor TEXT NOT NULL,
			active_cell TEXT,
			controller BOOLEAN NOT NULL DEFAULT false,
			last_heartbeat TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (rundown_id, actor)
		)
	`
	if _, err := pool.Exec(ctx, createPresence); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `rundown_rows_rundown_position ON ` + tables.Rows + `(rundown_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `rundown_ops_rundown_id ON ` + tables.Operations + `(rundown_id, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `rundown_ops_created_at ON ` + tables.Operations + `(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `rundown_snapshots_rundown_created ON ` + tables.Snapshots + `(rundown_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `rundown_presence_heartbeat ON ` + tables.Presence + `(last_heartbeat)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}
