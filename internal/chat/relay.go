// Package chat relays user messages to an OpenAI-compatible
// chat-completions endpoint. The feature is enabled only when an API
// key is configured; upstream error details never reach clients.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const systemPrompt = "You are a concise assistant inside a personal notes app. " +
	"Help the user think through and organize their notes. Keep replies short."

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("chat is not configured")

// Message is one turn of a conversation, in the wire format of
// OpenAI-compatible APIs.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Relay forwards chat requests upstream.
type Relay struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewRelay creates a relay. An empty apiKey yields a disabled relay
// whose Complete always fails with ErrDisabled.
func NewRelay(apiKey, baseURL, model string) *Relay {
	return &Relay{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the relay has an upstream configured.
func (r *Relay) Enabled() bool { return r.apiKey != "" }

// StatusMessage is the human-readable probe message for the client.
func (r *Relay) StatusMessage() string {
	if r.Enabled() {
		return "Chat assistant is available."
	}
	return "Chat assistant is not configured on this server."
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the history plus the new user message upstream and
// returns the assistant's reply.
func (r *Relay) Complete(ctx context.Context, message string, history []Message) (string, error) {
	if !r.Enabled() {
		return "", ErrDisabled
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: "system", Content: systemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: "user", Content: message})

	body, err := json.Marshal(completionRequest{Model: r.model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: upstream request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("chat: read response: %w", err)
	}

	var cr completionResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// Log the upstream detail, return a generic error.
		detail := ""
		if cr.Error != nil {
			detail = cr.Error.Message
		}
		slog.Error("chat upstream error",
			slog.Int("status", resp.StatusCode), slog.String("detail", detail))
		return "", fmt.Errorf("chat: upstream returned %d", resp.StatusCode)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("chat: upstream returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}
