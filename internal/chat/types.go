// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/llmchat/internal/api"
)

// =============================================================================
// STATE
// =============================================================================

// State is the orchestrator's request state.
type State int

const (
	// StateIdle accepts a new message.
	StateIdle State = iota
	// StateSending has appended the user message and is waiting for the
	// service to accept the request.
	StateSending
	// StateStreaming is applying deltas to the assistant placeholder.
	StateStreaming
	// StateFailed is writing the error message; it always returns to Idle.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Busy reports whether a request is outstanding.
func (s State) Busy() bool {
	return s != StateIdle
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies an Event.
type EventKind int

const (
	// EventStateChanged carries the new State.
	EventStateChanged EventKind = iota
	// EventDelta carries the assistant content accumulated so far.
	EventDelta
	// EventCompleted carries the final assistant content.
	EventCompleted
	// EventFailed carries the error that ended the request.
	EventFailed
	// EventModelsLoaded carries the model list.
	EventModelsLoaded
	// EventModelsFailed carries the model-list error.
	EventModelsFailed
	// EventModelSelected carries the newly selected model id.
	EventModelSelected
)

// Event is published to subscribers.
type Event struct {
	Kind      EventKind
	SessionID string
	State     State
	Content   string
	Model     string
	Models    []api.Model
	Err       error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned by Send while another request is outstanding.
	ErrBusy = errors.New("a response is still streaming")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoModel is returned by Send when no model is selected and no
	// preferred model is configured.
	ErrNoModel = errors.New("no model selected")
)

// =============================================================================
// TRANSPORT
// =============================================================================

// Transport is the subset of *api.Client the orchestrator uses.
type Transport interface {
	ListModels(ctx context.Context) ([]api.Model, error)
	StartCompletion(ctx context.Context, req api.CompletionRequest) (io.ReadCloser, error)
}

var _ Transport = (*api.Client)(nil)
