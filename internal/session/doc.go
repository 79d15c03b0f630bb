// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the collection of chat threads and the pointer to
// the current one.
//
// Every mutation replaces the collection copy-on-write, persists the whole
// collection through a storage.Persister and then notifies subscribers with
// an immutable Snapshot. A failed save is logged; the in-memory collection
// remains the source of truth for the running process.
//
// Operations on an id that no longer exists return ErrSessionNotFound and
// change nothing. A deleted session is never recreated by a late write.
//
// # Usage
//
//	store := session.Open(ctx, persister)
//	s := store.Create("deepseek-ai/DeepSeek-V3-0324")
//	_ = store.AppendMessage(s.ID, session.UserMessage("Hello"))
package session
