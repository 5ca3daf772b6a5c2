// Package testutil provides shared test helpers for setting up stores
// and user directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halvard/munin/internal/session"
	"github.com/halvard/munin/internal/store"
	"github.com/halvard/munin/internal/userdir"
)

// TestSQLiteStore creates a temporary SQLite store that is
// automatically cleaned up.
func TestSQLiteStore(t *testing.T) *store.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "munin-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	st, err := store.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestFileStore creates a file store backed by a temp directory.
func TestFileStore(t *testing.T) *store.File {
	t.Helper()
	st, err := store.NewFile(filepath.Join(t.TempDir(), "munin.json"))
	if err != nil {
		t.Fatal(err)
	}
	return st
}

// TestUsers loads the built-in demo user directory.
func TestUsers(t *testing.T) *userdir.Directory {
	t.Helper()
	users, err := userdir.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return users
}

// TestCodec creates a session codec with a fixed test secret.
func TestCodec(t *testing.T, ttl time.Duration) *session.Codec {
	t.Helper()
	return session.NewCodec([]byte("test-secret-0123456789abcdef"), ttl)
}
