// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPersister keeps the history under one key in a BadgerDB directory.
type BadgerPersister struct {
	db  *badger.DB
	key []byte
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens a BadgerDB at dir; an empty dir opens an in-memory
// database. A nil logger silences Badger's own logging.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerPersister, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerPersister{db: db, key: []byte(HistoryKey)}, nil
}

// Load returns the stored blob, or nil if the key is absent.
func (p *BadgerPersister) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(p.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badger load: %w", err)
	}
	return data, nil
}

// Save writes the blob.
func (p *BadgerPersister) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(p.key, data)
	})
	if err != nil {
		return fmt.Errorf("badger save: %w", err)
	}
	return nil
}

// Close closes the database.
func (p *BadgerPersister) Close() error {
	return p.db.Close()
}
