// Package models defines the domain types for Munin.
package models

import "time"

// Entry is a user-owned note with optional embedded attachments.
type Entry struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Attachment is a file embedded in an entry. Data is the raw file
// content; it travels base64-encoded over the API. Attachments have no
// lifecycle of their own: they are created and discarded only as part
// of their owning entry's mutation.
type Attachment struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	Data       []byte    `json:"data"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Draft holds the mutable fields of an entry as submitted by a client.
type Draft struct {
	Title       string
	Content     string
	Attachments []Attachment
}
