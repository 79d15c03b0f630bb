// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"
)

// MemoryPersister keeps the history in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryPersister returns an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Load returns a copy of the last saved blob, or nil.
func (p *MemoryPersister) Load(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		return nil, nil
	}
	return append([]byte(nil), p.data...), nil
}

// Save stores a copy of data.
func (p *MemoryPersister) Save(ctx context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = append([]byte(nil), data...)
	p.saves++
	return nil
}

// Saves returns how many times Save was called.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// Close is a no-op.
func (p *MemoryPersister) Close() error {
	return nil
}
