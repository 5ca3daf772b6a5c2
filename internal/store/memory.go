package store

import (
	"context"
	"sync"
	"time"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/models"
)

// Memory is an in-process Store. Entries live in a map keyed by user
// id and vanish with the process. Used for tests and demo runs.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]models.Entry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]models.Entry)}
}

func (m *Memory) List(_ context.Context, userID string) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Entry, 0, len(m.entries[userID]))
	for _, e := range m.entries[userID] {
		if e.UserID != userID {
			continue
		}
		out = append(out, e)
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) Get(_ context.Context, userID, id string) (models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries[userID] {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return models.Entry{}, apperr.ErrNotFound
}

func (m *Memory) Create(_ context.Context, e models.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.UserID] = append(m.entries[e.UserID], e)
	return nil
}

func (m *Memory) Update(_ context.Context, userID, id string, draft models.Draft, now time.Time) (models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.entries[userID]
	for i, e := range list {
		if e.ID == id && e.UserID == userID {
			list[i] = applyDraft(e, draft, now)
			return list[i], nil
		}
	}
	return models.Entry{}, apperr.ErrNotFound
}

func (m *Memory) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.entries[userID]
	for i, e := range list {
		if e.ID == id && e.UserID == userID {
			m.entries[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *Memory) LastModified(_ context.Context, userID string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last time.Time
	for _, e := range m.entries[userID] {
		if e.UpdatedAt.After(last) {
			last = e.UpdatedAt
		}
	}
	return last, nil
}

func (m *Memory) Name() string { return BackendMemory }

func (m *Memory) Close() error { return nil }
