// Package entryservice implements the business rules around entries:
// payload limits, ownership scoping, id and timestamp assignment.
package entryservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/events"
	"github.com/halvard/munin/internal/models"
	"github.com/halvard/munin/internal/store"
)

// Payload limits, enforced before any storage access.
const (
	MaxTitleLen       = 100
	MaxContentLen     = 5000
	MaxAttachments    = 5
	MaxAttachmentSize = 5 << 20 // 5 MiB decoded
)

// globalScope is the owner id used for every entry when the service
// runs in global mode (one shared collection for all users).
const globalScope = "global"

// Service coordinates validation, storage, and change events.
type Service struct {
	store  store.Store
	broker *events.Broker
	global bool
}

// NewService creates a new entry service. broker may be nil when no
// event stream is wanted (tests, MCP mode). When global is true all
// users read and write one shared collection instead of per-user ones.
func NewService(st store.Store, broker *events.Broker, global bool) *Service {
	return &Service{store: st, broker: broker, global: global}
}

// IsGlobal reports whether the service runs in shared-collection mode.
func (s *Service) IsGlobal() bool { return s.global }

// Scope maps a requesting user to the owner id entries are filed
// under. Ownership scoping still applies in global mode; the scope is
// just the same for everyone.
func (s *Service) Scope(userID string) string {
	if s.global {
		return globalScope
	}
	return userID
}

// List returns the user's entries, most recently created first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Entry, error) {
	return s.store.List(ctx, s.Scope(userID))
}

// Get returns one entry owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (models.Entry, error) {
	return s.store.Get(ctx, s.Scope(userID), id)
}

// Create validates the draft and inserts a new entry with a fresh id
// and CreatedAt == UpdatedAt.
func (s *Service) Create(ctx context.Context, userID string, draft models.Draft) (models.Entry, error) {
	clean, err := normalizeDraft(draft)
	if err != nil {
		return models.Entry{}, err
	}
	now := time.Now().UTC()
	entry := models.Entry{
		ID:          uuid.NewString(),
		UserID:      s.Scope(userID),
		Title:       clean.Title,
		Content:     clean.Content,
		Attachments: clean.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return models.Entry{}, err
	}
	s.publish(events.KindCreated, entry.UserID, entry.ID)
	return entry, nil
}

// Update validates the draft and replaces the mutable fields of the
// entry keyed by (id, userID). The id, owner, and creation time never
// change.
func (s *Service) Update(ctx context.Context, userID, id string, draft models.Draft) (models.Entry, error) {
	if id == "" {
		return models.Entry{}, apperr.Validation("id is required")
	}
	clean, err := normalizeDraft(draft)
	if err != nil {
		return models.Entry{}, err
	}
	entry, err := s.store.Update(ctx, s.Scope(userID), id, clean, time.Now().UTC())
	if err != nil {
		return models.Entry{}, err
	}
	s.publish(events.KindUpdated, entry.UserID, id)
	return entry, nil
}

// Delete removes the entry keyed by (id, userID).
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if id == "" {
		return apperr.Validation("id is required")
	}
	scope := s.Scope(userID)
	if err := s.store.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.publish(events.KindDeleted, scope, id)
	return nil
}

// LastModified returns the newest UpdatedAt among the user's entries.
func (s *Service) LastModified(ctx context.Context, userID string) (time.Time, error) {
	return s.store.LastModified(ctx, s.Scope(userID))
}

// StorageName reports the active backend for API responses.
func (s *Service) StorageName() string {
	return s.store.Name()
}

func (s *Service) publish(kind, userID, entryID string) {
	if s.broker != nil {
		s.broker.PublishEntryEvent(kind, userID, entryID)
	}
}

// normalizeDraft trims, validates, and stamps the draft's attachments.
// Attachment sizes are recomputed from the decoded payload, never
// trusted from the client.
func normalizeDraft(d models.Draft) (models.Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Content = strings.TrimSpace(d.Content)

	err := validation.Errors{
		"title":   validation.Validate(d.Title, validation.Required, validation.RuneLength(1, MaxTitleLen)),
		"content": validation.Validate(d.Content, validation.Required, validation.RuneLength(1, MaxContentLen)),
	}.Filter()
	if err != nil {
		return models.Draft{}, apperr.Validation(err.Error())
	}

	if len(d.Attachments) > MaxAttachments {
		return models.Draft{}, apperr.Validation(
			fmt.Sprintf("at most %d attachments per entry", MaxAttachments))
	}
	now := time.Now().UTC()
	for i := range d.Attachments {
		a := &d.Attachments[i]
		a.Filename = strings.TrimSpace(a.Filename)
		if a.Filename == "" {
			return models.Draft{}, apperr.Validation("attachment filename is required")
		}
		if len(a.Data) == 0 {
			return models.Draft{}, apperr.Validation(
				fmt.Sprintf("attachment %q has no content", a.Filename))
		}
		if len(a.Data) > MaxAttachmentSize {
			return models.Draft{}, apperr.Validation(
				fmt.Sprintf("attachment %q exceeds %d bytes", a.Filename, MaxAttachmentSize))
		}
		a.Size = int64(len(a.Data))
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.UploadedAt.IsZero() {
			a.UploadedAt = now
		}
		if a.MimeType == "" {
			a.MimeType = "application/octet-stream"
		}
	}
	return d, nil
}
