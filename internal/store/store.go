// Package store persists user-owned entries. One backend is selected at
// startup and used for the whole process lifetime; there is no
// per-call probing or fallback between backends.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/halvard/munin/internal/models"
)

// Backend names as they appear in configuration and API responses.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Store is the interface all backends implement. Every operation is
// scoped by user id; lookups by (id, userID) return apperr.ErrNotFound
// when the id is absent or owned by another user, indistinguishably.
type Store interface {
	// List returns the user's entries, most recently created first.
	List(ctx context.Context, userID string) ([]models.Entry, error)
	// Get returns one entry by (id, userID).
	Get(ctx context.Context, userID, id string) (models.Entry, error)
	// Create inserts a fully-populated entry. The caller assigns the
	// id and timestamps.
	Create(ctx context.Context, e models.Entry) error
	// Update replaces title/content/attachments of the entry keyed by
	// (id, userID) and sets UpdatedAt to now. ID, UserID, and
	// CreatedAt are immutable.
	Update(ctx context.Context, userID, id string, draft models.Draft, now time.Time) (models.Entry, error)
	// Delete removes the entry keyed by (id, userID).
	Delete(ctx context.Context, userID, id string) error
	// LastModified returns the newest UpdatedAt among the user's
	// entries, or the zero time when the user has none.
	LastModified(ctx context.Context, userID string) (time.Time, error)
	// Name identifies the backend ("sqlite", "file", "memory").
	Name() string
	Close() error
}

// applyDraft is the shared update semantics: mutable fields replaced,
// identity and creation time preserved.
func applyDraft(e models.Entry, draft models.Draft, now time.Time) models.Entry {
	e.Title = draft.Title
	e.Content = draft.Content
	e.Attachments = draft.Attachments
	e.UpdatedAt = now
	return e
}

// sortNewestFirst orders entries by CreatedAt descending. The
// most-recent-first ordering is a display contract, so it is applied
// explicitly rather than relying on insertion position.
func sortNewestFirst(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
