package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/models"
)

// document is the on-disk layout of the file backend: one JSON document
// holding every user's entries.
type document struct {
	Entries      []models.Entry `json:"entries"`
	LastModified time.Time      `json:"lastModified"`
}

// File is a Store backed by a single JSON document. Writes go through a
// temp file and an atomic rename so concurrent readers never observe a
// partial document. One process-wide mutex serializes read-modify-write
// cycles; cross-process writers are not coordinated.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile creates a file store at path, creating the parent directory
// if needed. The document itself is created lazily on first write.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("store: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir: %w", err)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute path of the backing document.
func (f *File) Path() string { return f.path }

// load reads the document. A missing or corrupt file is an empty
// collection, not an error.
func (f *File) load() document {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("store: read document failed, treating as empty",
				slog.String("path", f.path), slog.String("error", err.Error()))
		}
		return document{}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("store: corrupt document, treating as empty",
			slog.String("path", f.path), slog.String("error", err.Error()))
		return document{}
	}
	return doc
}

// save atomically writes the document: tmp file → fsync → rename.
func (f *File) save(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal document: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".munin-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	success = true
	return nil
}

func (f *File) List(_ context.Context, userID string) ([]models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	out := make([]models.Entry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *File) Get(_ context.Context, userID, id string) (models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	for _, e := range doc.Entries {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return models.Entry{}, apperr.ErrNotFound
}

func (f *File) Create(_ context.Context, e models.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	doc.Entries = append(doc.Entries, e)
	doc.LastModified = e.CreatedAt
	return f.save(doc)
}

func (f *File) Update(_ context.Context, userID, id string, draft models.Draft, now time.Time) (models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	for i, e := range doc.Entries {
		if e.ID == id && e.UserID == userID {
			doc.Entries[i] = applyDraft(e, draft, now)
			doc.LastModified = now
			if err := f.save(doc); err != nil {
				return models.Entry{}, err
			}
			return doc.Entries[i], nil
		}
	}
	return models.Entry{}, apperr.ErrNotFound
}

func (f *File) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	for i, e := range doc.Entries {
		if e.ID == id && e.UserID == userID {
			doc.Entries = append(doc.Entries[:i:i], doc.Entries[i+1:]...)
			doc.LastModified = time.Now().UTC()
			return f.save(doc)
		}
	}
	return apperr.ErrNotFound
}

func (f *File) LastModified(_ context.Context, userID string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last time.Time
	for _, e := range f.load().Entries {
		if e.UserID == userID && e.UpdatedAt.After(last) {
			last = e.UpdatedAt
		}
	}
	return last, nil
}

func (f *File) Name() string { return BackendFile }

func (f *File) Close() error { return nil }
