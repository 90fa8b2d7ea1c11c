package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTest opens a migrated write/read pool pair in t.TempDir() and
// registers cleanup. Tests that don't care about the split can use the
// write pool for everything.
func OpenTest(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")

	writeDB, readDB, err := OpenPair(path, 4)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := RunMigrations(writeDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return writeDB, readDB
}
