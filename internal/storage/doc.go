// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the encoded chat history for llmchat.
//
// The session store serializes its whole collection and hands the bytes to
// a Persister, which keeps them under a single key. Backends differ only in
// where that key lives.
//
// # Backends
//
//   - file: ~/.llmchat/ai-chat-history.json, replaced atomically
//   - sqlite: ~/.llmchat/llmchat.db, one row in a key/value table
//   - badger: ~/.llmchat/badger/, one key
//   - postgres: one row in llmchat_kv
//   - memory: process-local, for tests and --store=memory
//
// # Usage
//
//	p, err := storage.Open(ctx, storage.Options{Backend: "sqlite", DataDir: dir})
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//	data, err := p.Load(ctx) // nil, nil when nothing was saved yet
package storage
