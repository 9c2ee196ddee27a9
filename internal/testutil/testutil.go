// Package testutil provides shared test helpers for setting up databases and file roots.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/flipdesk/internal/models"
	"github.com/starford/flipdesk/internal/storage"
	"github.com/starford/flipdesk/internal/store"
)

// TestStore creates a temporary SQLite record store that is automatically cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "flipdesk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(context.Background(), store.DriverSQLite, dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFS creates a temporary directory with a storage.FS rooted at it.
func TestFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// SeedLead inserts a lead with the given address, status and estimated value.
func SeedLead(t *testing.T, db *store.DB, address, status string, value *float64) models.Lead {
	t.Helper()
	l := models.Lead{Address: address, Status: status, EstimatedValue: value}
	if err := db.CreateLead(context.Background(), &l); err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return l
}

// Money returns a pointer to v.
func Money(v float64) *float64 { return &v }
