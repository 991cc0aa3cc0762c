package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Migration is one schema step. Up and Down run inside a transaction
// together with the schema_migrations bookkeeping.
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// migrations are applied in slice order; versions are 1-based and dense.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema with projects and regions",
		Up: `
CREATE TABLE IF NOT EXISTS projects (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    video_path TEXT NOT NULL,
    duration   REAL NOT NULL,
    native_w   INTEGER NOT NULL,
    native_h   INTEGER NOT NULL,
    display_w  REAL NOT NULL,
    display_h  REAL NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- ordinal is the z-order within a project
CREATE TABLE IF NOT EXISTS regions (
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    ordinal    INTEGER NOT NULL,
    id         TEXT NOT NULL,
    x          REAL NOT NULL,
    y          REAL NOT NULL,
    width      REAL NOT NULL,
    height     REAL NOT NULL,
    start_time REAL NOT NULL,
    end_time   REAL NOT NULL,
    PRIMARY KEY (project_id, ordinal),
    UNIQUE (project_id, id)
);

CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);`,
		Down: `
DROP INDEX IF EXISTS idx_projects_updated;
DROP TABLE IF EXISTS regions;
DROP TABLE IF EXISTS projects;`,
	},
	{
		Version:     2,
		Description: "Add region time window index",
		Up:          `CREATE INDEX IF NOT EXISTS idx_regions_window ON regions(project_id, start_time, end_time);`,
		Down:        `DROP INDEX IF EXISTS idx_regions_window;`,
	},
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER PRIMARY KEY,
    applied_at  INTEGER NOT NULL,
    description TEXT
)`

// schemaVersion is the highest applied version, 0 on a fresh database.
func schemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("get current version: %w", err)
	}
	return v, nil
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// MigrateDB brings the schema up to the latest version.
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec(createMigrationsTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	current, err := schemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations[min(current, len(migrations)):] {
		err := inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Up); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
			}
			_, err := tx.Exec(
				"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
				m.Version, time.Now().UnixNano(), m.Description,
			)
			if err != nil {
				return fmt.Errorf("record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RollbackMigration reverts the most recently applied migration.
func RollbackMigration(db *sql.DB) error {
	current, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if current == 0 {
		return errors.New("no migrations to roll back")
	}
	if current > len(migrations) {
		return fmt.Errorf("migration %d not found", current)
	}
	m := migrations[current-1]

	return inTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(m.Down); err != nil {
			return fmt.Errorf("roll back migration %d: %w", current, err)
		}
		if _, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", current); err != nil {
			return fmt.Errorf("remove migration record: %w", err)
		}
		return nil
	})
}

// MigrationStatus describes which migrations have been applied.
type MigrationStatus struct {
	CurrentVersion int
	LatestVersion  int
	Pending        []Migration
	Applied        []AppliedMigration
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version     int
	AppliedAt   time.Time
	Description string
}

// GetMigrationStatus reports applied and pending migrations. A database
// that was never migrated reports everything pending.
func GetMigrationStatus(db *sql.DB) (*MigrationStatus, error) {
	status := &MigrationStatus{LatestVersion: len(migrations)}

	rows, err := db.Query("SELECT version, applied_at, description FROM schema_migrations ORDER BY version")
	if err != nil {
		status.Pending = migrations
		return status, nil
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var (
			am AppliedMigration
			ns int64
		)
		if err := rows.Scan(&am.Version, &ns, &am.Description); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		am.AppliedAt = time.Unix(0, ns)
		status.Applied = append(status.Applied, am)
		applied[am.Version] = true
		status.CurrentVersion = max(status.CurrentVersion, am.Version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	for _, m := range migrations {
		if !applied[m.Version] {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}

// ValidateSchema checks that the tables the store reads exist.
func ValidateSchema(db *sql.DB) error {
	for _, table := range []string{"projects", "regions", "schema_migrations"} {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
		if err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if n == 0 {
			return fmt.Errorf("missing required table: %s", table)
		}
	}
	return nil
}
