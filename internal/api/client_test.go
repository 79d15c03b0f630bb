// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MODEL LIST TESTS
// =============================================================================

func TestListModels_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[
			{"id":"deepseek-ai/DeepSeek-V3-0324","object":"model","created":1700000000,"owned_by":"deepseek"},
			{"id":"meta/llama-3","object":"model","created":1700000001,"owned_by":"meta"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/v1/")
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)

	assert.Equal(t, "deepseek-ai/DeepSeek-V3-0324", models[0].ID)
	assert.Equal(t, "model", models[0].Object)
	assert.Equal(t, int64(1700000000), models[0].Created)
	assert.Equal(t, "deepseek", models[0].OwnedBy)
	assert.Equal(t, "DeepSeek V3 0324", models[0].DisplayName())
}

func TestListModels_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).ListModels(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te), "expected TransportError, got %T", err)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, "list models", te.Op)
}

func TestListModels_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, WithListTimeout(50*time.Millisecond))
	_, err := client.ListModels(context.Background())
	require.Error(t, err)

	var te *TransportError
	assert.True(t, errors.As(err, &te))
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"deepseek-ai/DeepSeek-V3-0324": "DeepSeek V3 0324",
		"gpt-4o":                       "gpt 4o",
		"org/sub/model-x":              "model x",
		"":                             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, DisplayName(in), "DisplayName(%q)", in)
	}
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestStartCompletion_SendsStreamingRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "org/model", req.Model)
		assert.True(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleUser, req.Messages[0].Role)
		assert.Equal(t, RoleAssistant, req.Messages[1].Role)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v1", WithAPIKey("sk-test"))
	body, err := client.StartCompletion(context.Background(), CompletionRequest{
		Model:    "org/model",
		Messages: []ChatMessage{NewChatMessage(RoleUser, "hello"), NewChatMessage(RoleAssistant, "earlier")},
	})
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "data: [DONE]")
}

func TestStartCompletion_NoKeyNoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte("data: [DONE]\n"))
	}))
	defer server.Close()

	body, err := NewClient(server.URL).StartCompletion(context.Background(), CompletionRequest{Model: "m"})
	require.NoError(t, err)
	body.Close()
}

func TestStartCompletion_RejectedStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad request", http.StatusBadRequest},
		{"unauthorized", http.StatusUnauthorized},
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			body, err := NewClient(server.URL).StartCompletion(context.Background(), CompletionRequest{Model: "m"})
			require.Error(t, err)
			assert.Nil(t, body)

			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tc.status, te.StatusCode)
			assert.Equal(t, `{"error":"nope"}`, te.Body)
			assert.Contains(t, te.Error(), "chat completion")
		})
	}
}

func TestStartCompletion_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url).StartCompletion(context.Background(), CompletionRequest{Model: "m"})
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestStartCompletion_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).StartCompletion(ctx, CompletionRequest{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
