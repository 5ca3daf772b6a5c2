// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes one user's entries as tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/entryservice"
	"github.com/halvard/munin/internal/models"
)

// Server wraps the MCP server with entry tools. All tools act on behalf
// of the single configured user; the usual ownership scoping applies.
type Server struct {
	mcp  *server.MCPServer
	svc  *entryservice.Service
	user models.User
}

// New creates a new MCP server with all entry tools registered.
func New(svc *entryservice.Service, user models.User) *Server {
	s := &Server{svc: svc, user: user}

	s.mcp = server.NewMCPServer(
		"Munin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the user's entries, most recent first."),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read one entry by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("create_entry",
		mcp.WithDescription("Create a new entry. Title is limited to 100 characters, content to 5000."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Entry title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Entry content")),
	), s.createEntry)

	s.mcp.AddTool(mcp.NewTool("update_entry",
		mcp.WithDescription("Replace the title and content of an existing entry."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New content")),
	), s.updateEntry)

	s.mcp.AddTool(mcp.NewTool("delete_entry",
		mcp.WithDescription("Delete an entry by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
	), s.deleteEntry)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// entrySummary keeps tool output small: attachment bytes stay out of
// the transcript.
type entrySummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content,omitempty"`
	Attachments int    `json:"attachments,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func summarize(e models.Entry, withContent bool) entrySummary {
	out := entrySummary{
		ID:          e.ID,
		Title:       e.Title,
		Attachments: len(e.Attachments),
		CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:   e.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if withContent {
		out.Content = e.Content
	}
	return out
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.List(ctx, s.user.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summaries := make([]entrySummary, len(entries))
	for i, e := range entries {
		summaries[i] = summarize(e, false)
	}
	out, _ := json.MarshalIndent(summaries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.svc.Get(ctx, s.user.ID, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(summarize(entry, true), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.svc.Create(ctx, s.user.ID, models.Draft{Title: title, Content: content})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", entry.ID)), nil
}

func (s *Server) updateEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Carry existing attachments over: MCP tools only edit text.
	existing, err := s.svc.Get(ctx, s.user.ID, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.svc.Update(ctx, s.user.ID, id, models.Draft{
		Title:       title,
		Content:     content,
		Attachments: existing.Attachments,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", entry.ID)), nil
}

func (s *Server) deleteEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, s.user.ID, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}
