// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultListTimeout bounds the model-list request.
	DefaultListTimeout = 15 * time.Second

	// maxErrorBody is how much of a rejected response body is kept for the
	// error message.
	maxErrorBody = 2 * 1024

	userAgent = "llmchat/1.0"
)

var (
	// sharedListClient is used for short request/response calls.
	sharedListClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultListTimeout,
	}

	// sharedStreamingClient has no client timeout; streams are bounded by
	// the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// =============================================================================
// TYPES
// =============================================================================

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is a single message in a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewChatMessage creates a request message with the given role.
func NewChatMessage(role, content string) ChatMessage {
	return ChatMessage{Role: role, Content: content}
}

// CompletionRequest is the body of a streamed chat completion.
type CompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// Model describes one model offered by the service.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// DisplayName is the model id's last path segment with dashes shown as
// spaces ("deepseek-ai/DeepSeek-V3-0324" -> "DeepSeek V3 0324").
func (m Model) DisplayName() string {
	return DisplayName(m.ID)
}

// DisplayName formats a model id for display.
func DisplayName(id string) string {
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
	}
	return strings.ReplaceAll(id, "-", " ")
}

// =============================================================================
// ERRORS
// =============================================================================

// TransportError reports a request that did not yield a usable response:
// the connection failed, or the service answered with a non-2xx status.
type TransportError struct {
	Op         string // "list models" or "chat completion"
	StatusCode int    // 0 when no response was received
	Body       string // excerpt of the rejected response body
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": transport failure"
	}
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an OpenAI-compatible service.
type Client struct {
	baseURL     string
	apiKey      string
	listTimeout time.Duration
	httpClient  *http.Client
	models      *openai.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithListTimeout bounds the model-list request.
func WithListTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.listTimeout = d
		}
	}
}

// WithHTTPClient replaces the streaming HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client rooted at baseURL, e.g. "https://host/v1".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		listTimeout: DefaultListTimeout,
		httpClient:  sharedStreamingClient,
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(c.apiKey)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = sharedListClient
	c.models = openai.NewClientWithConfig(cfg)
	return c
}

// BaseURL returns the service root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListModels fetches the models the service offers.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	list, err := c.models.ListModels(ctx)
	if err != nil {
		return nil, listError(err)
	}

	models := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, Model{
			ID:      m.ID,
			Object:  m.Object,
			Created: m.CreatedAt,
			OwnedBy: m.OwnedBy,
		})
	}
	return models, nil
}

func listError(err error) error {
	te := &TransportError{Op: "list models", Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		te.StatusCode = apiErr.HTTPStatusCode
		te.Body = apiErr.Message
	case errors.As(err, &reqErr):
		te.StatusCode = reqErr.HTTPStatusCode
	}
	return te
}

// StartCompletion issues a streamed chat completion and returns the
// response body once the service has accepted the request. The caller owns
// the body and must close it. Reading it to completion yields io.EOF.
//
// A non-2xx status is returned as a *TransportError carrying the status
// and a body excerpt; the body is already closed in that case.
func (c *Client) StartCompletion(ctx context.Context, req CompletionRequest) (io.ReadCloser, error) {
	const op = "chat completion"
	req.Stream = true

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}

	return resp.Body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
