package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"recordapi/internal/config"
	"recordapi/internal/logging"
)

type migrationStep struct {
	Name string
	SQL  string
}

var postgresSteps = []migrationStep{
	{
		Name: "create_table_recordings",
		SQL: `CREATE TABLE IF NOT EXISTS recordings (
  id            BIGSERIAL   PRIMARY KEY,
  filename      TEXT        NOT NULL UNIQUE,
  original_name TEXT,
  size          BIGINT      NOT NULL CHECK (size >= 0),
  mimetype      TEXT,
  path          TEXT,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_recordings_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_recordings_created_at ON recordings (created_at);`,
	},
}

var sqliteSteps = []migrationStep{
	{
		Name: "create_table_recordings",
		SQL: `CREATE TABLE IF NOT EXISTS recordings (
  id            INTEGER  PRIMARY KEY AUTOINCREMENT,
  filename      TEXT     NOT NULL UNIQUE,
  original_name TEXT,
  size          INTEGER  NOT NULL CHECK (size >= 0),
  mimetype      TEXT,
  path          TEXT,
  created_at    DATETIME NOT NULL,
  updated_at    DATETIME NOT NULL
);`,
	},
	{
		Name: "create_index_recordings_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_recordings_created_at ON recordings (created_at);`,
	},
}

const (
	postgresSentinel = "SELECT to_regclass('public.recordings') IS NOT NULL"
	sqliteSentinel   = "SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'recordings')"
)

// EnsureMigrated checks if the 'recordings' table exists and runs migrations if it doesn't.
// dialect is config.DialectPostgres or config.DialectSQLite; dbLabel identifies the database in logs.
func EnsureMigrated(ctx context.Context, db *sql.DB, dialect string, log *logging.Logger, dbLabel string) error {
	start := time.Now()

	steps, sentinel, err := stepsFor(dialect)
	if err != nil {
		return err
	}

	log.Log(map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"dialect":   dialect,
		"db":        dbLabel,
	})

	var exists bool
	if err := db.QueryRowContext(ctx, sentinel).Scan(&exists); err != nil {
		log.Log(map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db":            dbLabel,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Log(map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db":          dbLabel,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	log.Log(map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db":        dbLabel,
	})

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Log(map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db":               dbLabel,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Log(map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db":               dbLabel,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	log.Log(map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db":          dbLabel,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func stepsFor(dialect string) ([]migrationStep, string, error) {
	switch dialect {
	case config.DialectPostgres:
		return postgresSteps, postgresSentinel, nil
	case config.DialectSQLite:
		return sqliteSteps, sqliteSentinel, nil
	default:
		return nil, "", fmt.Errorf("unsupported dialect: %q", dialect)
	}
}
