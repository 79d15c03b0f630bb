// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"sync"
)

// cancelManager holds the cancel function of the in-flight request. It is
// shared by pointer because Update may run on copies of the model.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// start derives a request context from parent and remembers its cancel.
func (cm *cancelManager) start(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	cm.mu.Lock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.cancelFunc = cancel
	cm.mu.Unlock()
	return ctx
}

// cancel stops the in-flight request, if any. Safe to call repeatedly.
func (cm *cancelManager) cancel() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc == nil {
		return false
	}
	cm.cancelFunc()
	cm.cancelFunc = nil
	return true
}

// active reports whether a request is outstanding.
func (cm *cancelManager) active() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.cancelFunc != nil
}
