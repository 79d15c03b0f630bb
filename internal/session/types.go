// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"strings"
	"time"
)

// =============================================================================
// MESSAGE
// =============================================================================

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// DefaultTitle is the title of a session before its first message.
const DefaultTitle = "New Chat"

// ChatSession is one conversation thread. CreatedAt is Unix milliseconds.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Model     string    `json:"model"`
	CreatedAt int64     `json:"createdAt"`
}

// Created returns CreatedAt as a time.
func (c ChatSession) Created() time.Time {
	return time.UnixMilli(c.CreatedAt)
}

// Clone returns a copy that shares no memory with c.
func (c ChatSession) Clone() ChatSession {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	return out
}

// LastMessage returns the final message, if any.
func (c ChatSession) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Snapshot is an immutable view of the store after a mutation. Sessions
// must not be modified by observers.
type Snapshot struct {
	Sessions  []ChatSession
	CurrentID string
}

// Current returns the current session from the snapshot.
func (s Snapshot) Current() (ChatSession, bool) {
	for _, c := range s.Sessions {
		if c.ID == s.CurrentID {
			return c, true
		}
	}
	return ChatSession{}, false
}

// =============================================================================
// TITLE RULE
// =============================================================================

// DefaultTitleWords is how many words of the first message form a title.
const DefaultTitleWords = 4

// DeriveTitle builds a title from the first n whitespace-separated words
// of text followed by "...".
func DeriveTitle(text string, n int) string {
	if n <= 0 {
		n = DefaultTitleWords
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ") + "..."
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned for an id that is not in the collection.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptySession is returned by ReplaceLastMessage on a session with no
	// messages.
	ErrEmptySession = errors.New("session has no messages")

	// ErrEmptyTitle is returned by Rename for a blank title.
	ErrEmptyTitle = errors.New("title must not be empty")
)
