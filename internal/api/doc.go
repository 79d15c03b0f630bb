// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the transport client for an OpenAI-compatible completion
// service.
//
// It exposes exactly two operations: listing the models the service offers
// and opening a streamed chat completion. Decoding of the stream is left to
// package stream; this package hands back the raw response body.
//
// # Key Types
//
//   - Client: endpoint, API key and HTTP clients
//   - ChatMessage: role/content pair sent in a completion request
//   - Model: one entry of the model list
//   - TransportError: request that never produced a usable stream
//
// # Usage
//
//	client := api.NewClient(cfg.API.BaseURL, api.WithAPIKey(cfg.API.APIKey))
//	body, err := client.StartCompletion(ctx, api.CompletionRequest{
//	    Model:    "deepseek-ai/DeepSeek-V3-0324",
//	    Messages: []api.ChatMessage{api.NewChatMessage(api.RoleUser, "Hello")},
//	})
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//
// No retries happen at this layer.
package api
