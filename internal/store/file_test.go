package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "munin.json")

	st, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := st.Create(ctx, entryAt("e1", "u1", "persisted", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A second instance on the same path sees the entry.
	st2, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile again: %v", err)
	}
	got, err := st2.Get(ctx, "u1", "e1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "persisted" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestFileMissingDocumentIsEmpty(t *testing.T) {
	st, err := NewFile(filepath.Join(t.TempDir(), "never-written.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	entries, err := st.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len = %d, want 0", len(entries))
	}
}

func TestFileCorruptDocumentIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "munin.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	ctx := context.Background()

	entries, err := st.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len = %d, want 0", len(entries))
	}

	// Writing repairs the document.
	now := time.Now().UTC()
	if err := st.Create(ctx, entryAt("e1", "u1", "fresh", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document still corrupt: %v", err)
	}
	if len(doc.Entries) != 1 {
		t.Errorf("document entries = %d, want 1", len(doc.Entries))
	}
}

func TestFileWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFile(filepath.Join(dir, "munin.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()
	for _, id := range []string{"a", "b", "c"} {
		if err := st.Create(ctx, entryAt(id, "u1", id, now)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if strings.HasPrefix(f.Name(), ".munin-tmp-") {
			t.Errorf("leftover temp file %s", f.Name())
		}
	}
	if len(files) != 1 {
		t.Errorf("dir has %d files, want just the document", len(files))
	}
}
