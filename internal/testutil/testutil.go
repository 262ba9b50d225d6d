// Package testutil provides shared test helpers for setting up vaults and stores.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/solo/internal/search"
	"github.com/starford/solo/internal/storage"
	"github.com/starford/solo/internal/store"
)

// TestLogger returns a logger that discards all output.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *search.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "solo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := search.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	fs, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, fs
}

// TestStore creates a store over a temporary vault and loads the
// initial (empty) structure.
func TestStore(t *testing.T, opts ...store.Option) (string, *store.Store) {
	t.Helper()
	vaultDir, fs := TestVault(t)
	st := store.New(fs, TestLogger(), opts...)
	if err := st.LoadFromStorage(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return vaultDir, st
}
