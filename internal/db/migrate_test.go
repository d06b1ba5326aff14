package db

import (
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestMigrateAppliesSchema(t *testing.T) {
	database := openTestDB(t)

	if err := Migrate(database.DB); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	m := NewMigrator(database.DB)
	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("Expected version %d, got %d", len(migrations), version)
	}

	// Schema usable after migration
	if _, err := database.Exec(`INSERT INTO scan_events
		(id, record_id, name, event, raw, outcome, last_error, scanned_at, updated_at)
		VALUES ('x', '', '', '', '', 'pending', '', 1, 1)`); err != nil {
		t.Errorf("Expected scan_events table to accept rows: %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := openTestDB(t)

	if err := Migrate(database.DB); err != nil {
		t.Fatalf("First Migrate failed: %v", err)
	}
	if err := Migrate(database.DB); err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}

	m := NewMigrator(database.DB)
	applied, err := m.GetAppliedMigrations()
	if err != nil {
		t.Fatalf("GetAppliedMigrations failed: %v", err)
	}
	if len(applied) != len(migrations) {
		t.Errorf("Expected %d applied migrations, got %d", len(migrations), len(applied))
	}
	for _, mig := range applied {
		if len(mig.Checksum) != 64 {
			t.Errorf("Expected 64-char checksum, got %q", mig.Checksum)
		}
		if mig.Description == "" {
			t.Error("Expected non-empty description")
		}
	}
}

func TestCurrentVersionBeforeMigrations(t *testing.T) {
	database := openTestDB(t)

	m := NewMigrator(database.DB)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("Expected version 0, got %d", version)
	}
}
