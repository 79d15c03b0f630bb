// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// mailbox is an unbounded queue between store/orchestrator callbacks and
// the Bubble Tea loop. put never blocks, so callbacks fired from inside
// Update cannot deadlock the program.
type mailbox struct {
	mu     sync.Mutex
	queue  []tea.Msg
	notify chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (b *mailbox) put(msg tea.Msg) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// take returns everything queued, or nil once closed and empty.
func (b *mailbox) take() []tea.Msg {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			msgs := b.queue
			b.queue = nil
			b.mu.Unlock()
			return msgs
		}
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return nil
		}
		<-b.notify
	}
}

func (b *mailbox) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// mailMsg carries a drained batch into Update.
type mailMsg []tea.Msg

// listen waits for the next batch.
func (b *mailbox) listen() tea.Cmd {
	return func() tea.Msg {
		msgs := b.take()
		if msgs == nil {
			return nil
		}
		return mailMsg(msgs)
	}
}
