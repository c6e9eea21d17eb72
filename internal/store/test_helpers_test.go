package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/reel/internal/ir"
)

// createTestStore creates a new file-backed SQLite store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBadger creates a new in-memory Badger store for testing.
func createTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachBackend runs fn once per backend implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, b Backend)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, createTestStore(t)) })
	t.Run("badger", func(t *testing.T) { fn(t, createTestBadger(t)) })
}

type counter struct {
	N int `json:"n"`
}

func testRecord(addr ir.Address, body string) Record {
	return Record{Address: addr, Kind: ir.KindUser, Body: []byte(body)}
}
