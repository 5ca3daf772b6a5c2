package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/models"
)

// withEachBackend runs fn against every Store implementation so all
// backends honor the same contract.
func withEachBackend(t *testing.T, fn func(t *testing.T, st Store)) {
	t.Helper()

	backends := map[string]func(t *testing.T) Store{
		BackendMemory: func(t *testing.T) Store { return NewMemory() },
		BackendFile: func(t *testing.T) Store {
			st, err := NewFile(filepath.Join(t.TempDir(), "munin.json"))
			if err != nil {
				t.Fatal(err)
			}
			return st
		},
		BackendSQLite: func(t *testing.T) Store {
			dbFile, err := os.CreateTemp("", "munin-store-test-*.db")
			if err != nil {
				t.Fatal(err)
			}
			dbFile.Close()
			t.Cleanup(func() { os.Remove(dbFile.Name()) })
			st, err := OpenSQLite(dbFile.Name())
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { st.Close() })
			return st
		},
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, newStore(t))
		})
	}
}

func entryAt(id, userID, title string, created time.Time) models.Entry {
	return models.Entry{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Content:   "content of " + title,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestCreateListOrdering(t *testing.T) {
	withEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		for i, id := range []string{"e1", "e2", "e3"} {
			e := entryAt(id, "u1", "note "+id, base.Add(time.Duration(i)*time.Minute))
			if err := st.Create(ctx, e); err != nil {
				t.Fatalf("Create %s: %v", id, err)
			}
		}

		entries, err := st.List(ctx, "u1")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("len = %d, want 3", len(entries))
		}
		// Most recently created first.
		for i, want := range []string{"e3", "e2", "e1"} {
			if entries[i].ID != want {
				t.Errorf("entries[%d].ID = %q, want %q", i, entries[i].ID, want)
			}
		}
	})
}

func TestOwnershipScoping(t *testing.T) {
	withEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Second)

		if err := st.Create(ctx, entryAt("shared-id", "alice", "alice note", now)); err != nil {
			t.Fatalf("Create: %v", err)
		}

		// Reads, updates, and deletes by another user must report
		// not-found, never the entry.
		if _, err := st.Get(ctx, "bob", "shared-id"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Get as bob: err = %v, want ErrNotFound", err)
		}
		if _, err := st.Update(ctx, "bob", "shared-id", models.Draft{Title: "x", Content: "y"}, now); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Update as bob: err = %v, want ErrNotFound", err)
		}
		if err := st.Delete(ctx, "bob", "shared-id"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Delete as bob: err = %v, want ErrNotFound", err)
		}

		entries, err := st.List(ctx, "bob")
		if err != nil {
			t.Fatalf("List bob: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("bob sees %d entries, want 0", len(entries))
		}

		// Alice's entry survived all of it.
		if _, err := st.Get(ctx, "alice", "shared-id"); err != nil {
			t.Errorf("Get as alice: %v", err)
		}
	})
}

func TestUpdateImmutableFields(t *testing.T) {
	withEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		later := created.Add(time.Hour)

		if err := st.Create(ctx, entryAt("e1", "u1", "before", created)); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := st.Update(ctx, "u1", "e1", models.Draft{Title: "after", Content: "new"}, later)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Title != "after" || got.Content != "new" {
			t.Errorf("mutable fields not replaced: %+v", got)
		}
		if got.ID != "e1" || got.UserID != "u1" {
			t.Errorf("identity changed: %+v", got)
		}
		if !got.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
		}
		if !got.UpdatedAt.Equal(later) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
		}
	})
}

func TestDeleteTwice(t *testing.T) {
	withEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Second)

		if err := st.Create(ctx, entryAt("e1", "u1", "bye", now)); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := st.Delete(ctx, "u1", "e1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		entries, err := st.List(ctx, "u1")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("len = %d after delete, want 0", len(entries))
		}

		if err := st.Delete(ctx, "u1", "e1"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("second Delete: err = %v, want ErrNotFound", err)
		}
	})
}

func TestLastModified(t *testing.T) {
	withEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		last, err := st.LastModified(ctx, "u1")
		if err != nil {
			t.Fatalf("LastModified empty: %v", err)
		}
		if !last.IsZero() {
			t.Errorf("empty store LastModified = %v, want zero", last)
		}

		created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		if err := st.Create(ctx, entryAt("e1", "u1", "a", created)); err != nil {
			t.Fatal(err)
		}
		bumped := created.Add(2 * time.Hour)
		if _, err := st.Update(ctx, "u1", "e1", models.Draft{Title: "a", Content: "b"}, bumped); err != nil {
			t.Fatal(err)
		}

		last, err = st.LastModified(ctx, "u1")
		if err != nil {
			t.Fatalf("LastModified: %v", err)
		}
		if !last.Equal(bumped) {
			t.Errorf("LastModified = %v, want %v", last, bumped)
		}
	})
}

func TestAttachmentsRoundTrip(t *testing.T) {
	withEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		e := entryAt("e1", "u1", "with file", now)
		e.Attachments = []models.Attachment{{
			ID:         "a1",
			Filename:   "photo.png",
			MimeType:   "image/png",
			Size:       4,
			Data:       []byte{0x89, 'P', 'N', 'G'},
			UploadedAt: now,
		}}
		if err := st.Create(ctx, e); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := st.Get(ctx, "u1", "e1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got.Attachments) != 1 {
			t.Fatalf("attachments = %d, want 1", len(got.Attachments))
		}
		a := got.Attachments[0]
		if a.Filename != "photo.png" || a.MimeType != "image/png" || string(a.Data) != "\x89PNG" {
			t.Errorf("attachment = %+v", a)
		}

		// Updating with an empty draft clears them.
		if _, err := st.Update(ctx, "u1", "e1", models.Draft{Title: "t", Content: "c"}, now.Add(time.Minute)); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, _ = st.Get(ctx, "u1", "e1")
		if len(got.Attachments) != 0 {
			t.Errorf("attachments after clearing update = %d, want 0", len(got.Attachments))
		}
	})
}
