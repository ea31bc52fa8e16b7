package infra

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"mediastudio/internal/sqlinline"
)

// Migrate applies the idempotent schema for the configured driver. Postgres is
// reached through database/sql with lib/pq so migrations do not need a pool.
func Migrate(ctx context.Context, cfg *Config, logger Logger) error {
	switch cfg.DatabaseDriver {
	case DriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		return ApplySchema(ctx, db, sqlinline.SchemaPostgres, logger)
	case DriverSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		return ApplySchema(ctx, db, sqlinline.SchemaSQLite, logger)
	case DriverMemory:
		logger.Info().Msg("memory driver has no schema")
		return nil
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// ApplySchema runs each statement in order, stopping at the first failure.
func ApplySchema(ctx context.Context, db *sql.DB, statements []string, logger Logger) error {
	for _, stmt := range statements {
		marker, trimmed, err := extractMarker(stmt)
		if err != nil {
			return fmt.Errorf("schema statement: %w", err)
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("schema statement %s: %w", marker, err)
		}
		logger.Debug().Msgf("sql[%s] schema ok", marker)
	}
	logger.Info().Int("statements", len(statements)).Msg("schema applied")
	return nil
}
