// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives one conversation turn at a time: it sends the user's
// message, consumes the streamed reply and reconciles it into the session
// store.
//
// # State Machine
//
//	Idle -> Sending -> Streaming -> Idle
//	           |           |
//	           +-> Failed <+--> Idle
//
// Only one request is outstanding at a time; Send returns ErrBusy
// otherwise. Every transition, delta and model-list result is published as
// an Event to subscribers, which are expected to be presentation layers
// that only read.
//
// # Usage
//
//	o := chat.New(store, apiClient, chat.WithMetrics(m))
//	unsubscribe := o.Subscribe(func(e chat.Event) { ... })
//	defer unsubscribe()
//	err := o.Send(ctx, "Tell me about quantum computing")
package chat
