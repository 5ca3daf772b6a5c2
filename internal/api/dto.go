package api

import (
	"time"

	"github.com/halvard/munin/internal/chat"
	"github.com/halvard/munin/internal/models"
)

// UserPayload is the client-facing view of a user. Password hashes
// never leave the server.
type UserPayload struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    UserPayload `json:"user"`
}

// VerifyRequest is the body of POST /auth/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse is the body of a successful verification.
type VerifyResponse struct {
	Success bool        `json:"success"`
	User    UserPayload `json:"user"`
}

// AttachmentPayload is an attachment in transit. Data is base64 on the
// wire (standard encoding/json []byte handling).
type AttachmentPayload struct {
	ID         string    `json:"id,omitempty"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mimeType,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Data       []byte    `json:"data"`
	UploadedAt time.Time `json:"uploadedAt,omitempty"`
}

// CreateEntryRequest is the body of POST /content. Token is accepted in
// the body for compatibility with clients that do not set headers.
type CreateEntryRequest struct {
	Title       string              `json:"title"`
	Content     string              `json:"content"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
	Token       string              `json:"token,omitempty"`
}

// UpdateEntryRequest is the body of PUT /content.
type UpdateEntryRequest struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Content     string              `json:"content"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
	Token       string              `json:"token,omitempty"`
}

// DeleteEntryRequest is the body of DELETE /content.
type DeleteEntryRequest struct {
	ID    string `json:"id"`
	Token string `json:"token,omitempty"`
}

// EntryResponse wraps a single entry.
type EntryResponse struct {
	Success bool         `json:"success"`
	Entry   models.Entry `json:"entry"`
}

// ContentResponse is the body of GET /content.
type ContentResponse struct {
	Success      bool           `json:"success"`
	Entries      []models.Entry `json:"entries"`
	Count        int            `json:"count"`
	LastModified *time.Time     `json:"lastModified,omitempty"`
	Storage      string         `json:"storage"`
	IsGlobal     bool           `json:"isGlobal"`
}

// SuccessResponse is the body of DELETE /content.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ChatEnabledResponse is the body of GET /chat/enabled.
type ChatEnabledResponse struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string         `json:"message"`
	History []chat.Message `json:"history,omitempty"`
	Token   string         `json:"token,omitempty"`
}

// ChatResponse is the body of a successful chat relay.
type ChatResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
}

func toUserPayload(id, username, name string, role models.Role) UserPayload {
	return UserPayload{ID: id, Username: username, Name: name, Role: role}
}

func toAttachments(in []AttachmentPayload) []models.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Attachment, len(in))
	for i, a := range in {
		out[i] = models.Attachment{
			ID:         a.ID,
			Filename:   a.Filename,
			MimeType:   a.MimeType,
			Size:       a.Size,
			Data:       a.Data,
			UploadedAt: a.UploadedAt,
		}
	}
	return out
}
