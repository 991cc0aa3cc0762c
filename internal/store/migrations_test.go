package store

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "raw.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateDB(t *testing.T) {
	db := openRawDB(t)

	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}
	if err := ValidateSchema(db); err != nil {
		t.Errorf("ValidateSchema failed: %v", err)
	}

	// Running again is a no-op.
	if err := MigrateDB(db); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}

	status, err := GetMigrationStatus(db)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != len(migrations) || status.LatestVersion != len(migrations) {
		t.Errorf("status = %d/%d, want %d", status.CurrentVersion, status.LatestVersion, len(migrations))
	}
	if len(status.Pending) != 0 {
		t.Errorf("expected no pending migrations, got %d", len(status.Pending))
	}
	if len(status.Applied) != len(migrations) {
		t.Errorf("expected %d applied, got %d", len(migrations), len(status.Applied))
	}
}

func TestMigrationStatusBeforeMigrate(t *testing.T) {
	db := openRawDB(t)
	status, err := GetMigrationStatus(db)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != 0 || len(status.Pending) != len(migrations) {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestRollbackMigration(t *testing.T) {
	db := openRawDB(t)
	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}

	if err := RollbackMigration(db); err != nil {
		t.Fatalf("RollbackMigration failed: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_regions_window'").Scan(&n); err != nil {
		t.Fatalf("check index: %v", err)
	}
	if n != 0 {
		t.Error("idx_regions_window should be dropped")
	}

	if err := RollbackMigration(db); err != nil {
		t.Fatalf("second RollbackMigration failed: %v", err)
	}
	if err := ValidateSchema(db); err == nil {
		t.Error("ValidateSchema should fail once projects is dropped")
	}
	if err := RollbackMigration(db); err == nil {
		t.Error("expected error with nothing to roll back")
	}

	if err := MigrateDB(db); err != nil {
		t.Fatalf("re-migrate failed: %v", err)
	}
	if err := ValidateSchema(db); err != nil {
		t.Errorf("ValidateSchema after re-migrate: %v", err)
	}
}
