// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// HistoryKey is the key the chat history is stored under in every backend.
const HistoryKey = "ai-chat-history"

// Persister loads and saves one opaque blob. Load returns (nil, nil) when
// nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Backends lists every backend name Open accepts.
var Backends = []string{BackendFile, BackendSQLite, BackendBadger, BackendPostgres, BackendMemory}

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Options selects and configures a backend.
type Options struct {
	Backend     string
	DataDir     string
	PostgresURL string
	Logger      *slog.Logger
}

// Open creates the Persister named by opts.Backend.
func Open(ctx context.Context, opts Options) (Persister, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendFile
	}
	if backend != BackendMemory && backend != BackendPostgres && opts.DataDir == "" {
		return nil, fmt.Errorf("storage backend %q requires a data directory", backend)
	}

	switch backend {
	case BackendFile:
		return NewFilePersister(filepath.Join(opts.DataDir, HistoryKey+".json")), nil
	case BackendSQLite:
		return OpenSQLite(ctx, filepath.Join(opts.DataDir, "llmchat.db"))
	case BackendBadger:
		return OpenBadger(filepath.Join(opts.DataDir, "badger"), opts.Logger)
	case BackendPostgres:
		return OpenPostgres(ctx, opts.PostgresURL)
	case BackendMemory:
		return NewMemoryPersister(), nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownBackend, opts.Backend, strings.Join(Backends, ", "))
	}
}
