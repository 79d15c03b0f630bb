// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jeranaias/llmchat/internal/util"
)

// FilePersister keeps the history in a single JSON file, replaced
// atomically on every save.
type FilePersister struct {
	path string
}

// NewFilePersister returns a persister for path. The file and its parent
// directory are created on first save.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the backing file path.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the file. A missing file is not an error.
func (p *FilePersister) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	return data, nil
}

// Save replaces the file contents with data (0600).
func (p *FilePersister) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := util.AtomicWriteFileWithDir(p.path, data, 0600, 0700); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (p *FilePersister) Close() error {
	return nil
}
