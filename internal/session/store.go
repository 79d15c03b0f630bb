// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/llmchat/internal/storage"
)

// =============================================================================
// STORE
// =============================================================================

// Store owns the session collection and the current-session pointer. It is
// safe for concurrent use; subscribers are called outside the lock.
type Store struct {
	mu        sync.Mutex
	sessions  []ChatSession
	currentID string

	persister   storage.Persister
	saveTimeout time.Duration
	log         *slog.Logger
	now         func() time.Time
	newID       func() string

	listenersMu sync.Mutex
	listeners   map[int]func(Snapshot)
	nextToken   int

	onSave func(error)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides session id generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithSaveHook registers a function called after every save attempt with
// its result.
func WithSaveHook(fn func(error)) Option {
	return func(s *Store) { s.onSave = fn }
}

// Open loads the collection from p. Missing, corrupt or unreadable data
// yields an empty collection. Sessions are ordered newest first and the
// newest becomes current.
func Open(ctx context.Context, p storage.Persister, opts ...Option) *Store {
	s := &Store{
		persister:   p,
		saveTimeout: 10 * time.Second,
		log:         slog.Default(),
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
		listeners:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := p.Load(ctx)
	if err != nil {
		s.log.Error("chat history is unreadable, starting empty", "error", err)
		data = nil
	}
	s.sessions = s.decode(data)
	if len(s.sessions) > 0 {
		s.currentID = s.sessions[0].ID
	}
	return s
}

// decode parses persisted bytes, tolerating corruption, duplicates and
// missing fields.
func (s *Store) decode(data []byte) []ChatSession {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []ChatSession{}
	}

	var raw []ChatSession
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("chat history is corrupt, starting empty", "error", err, "bytes", len(data))
		return []ChatSession{}
	}

	seen := make(map[string]bool, len(raw))
	out := make([]ChatSession, 0, len(raw))
	for _, c := range raw {
		if c.ID == "" || seen[c.ID] {
			s.log.Warn("dropping session with missing or duplicate id", "id", c.ID)
			continue
		}
		seen[c.ID] = true
		if c.Messages == nil {
			c.Messages = []Message{}
		}
		if c.Title == "" {
			c.Title = DefaultTitle
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// =============================================================================
// READS
// =============================================================================

// Sessions returns a deep copy of the collection, newest first.
func (s *Store) Sessions() []ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatSession, len(s.sessions))
	for i, c := range s.sessions {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Get returns a copy of the session with id.
func (s *Store) Get(id string) (ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return ChatSession{}, false
}

// Current returns a copy of the current session.
func (s *Store) Current() (ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(s.currentID); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return ChatSession{}, false
}

// CurrentID returns the current session id, or "" when there is none.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Snapshot returns the present state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	// s.sessions is replaced, never modified in place, so sharing it is safe.
	return Snapshot{Sessions: s.sessions, CurrentID: s.currentID}
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create prepends a new empty session and makes it current.
func (s *Store) Create(model string) ChatSession {
	created := ChatSession{
		ID:        s.newID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		Model:     model,
		CreatedAt: s.now().UnixMilli(),
	}

	_ = s.mutate(true, func() error {
		next := make([]ChatSession, 0, len(s.sessions)+1)
		next = append(next, created)
		next = append(next, s.sessions...)
		s.sessions = next
		s.currentID = created.ID
		return nil
	})
	return created.Clone()
}

// Select makes id current. It returns false and changes nothing when id is
// unknown. The current pointer is not persisted.
func (s *Store) Select(id string) bool {
	err := s.mutate(false, func() error {
		if s.indexLocked(id) < 0 {
			return ErrSessionNotFound
		}
		s.currentID = id
		return nil
	})
	return err == nil
}

// Delete removes a session. If it was current, the first remaining session
// (or none) becomes current.
func (s *Store) Delete(id string) error {
	return s.mutate(true, func() error {
		i := s.indexLocked(id)
		if i < 0 {
			return ErrSessionNotFound
		}
		next := make([]ChatSession, 0, len(s.sessions)-1)
		next = append(next, s.sessions[:i]...)
		next = append(next, s.sessions[i+1:]...)
		s.sessions = next
		if s.currentID == id {
			s.currentID = ""
			if len(next) > 0 {
				s.currentID = next[0].ID
			}
		}
		return nil
	})
}

// Rename replaces a session's title.
func (s *Store) Rename(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	return s.update(id, func(c *ChatSession) error {
		c.Title = title
		return nil
	})
}

// ApplyTitle sets the title derived from the first n words of
// firstMessage.
func (s *Store) ApplyTitle(id, firstMessage string, n int) error {
	title := DeriveTitle(firstMessage, n)
	return s.update(id, func(c *ChatSession) error {
		c.Title = title
		return nil
	})
}

// SetModel changes the model a session uses for future requests.
func (s *Store) SetModel(id, model string) error {
	return s.update(id, func(c *ChatSession) error {
		c.Model = model
		return nil
	})
}

// AppendMessage adds msg to the end of the session.
func (s *Store) AppendMessage(id string, msg Message) error {
	return s.update(id, func(c *ChatSession) error {
		c.Messages = append(c.Messages, msg)
		return nil
	})
}

// ReplaceLastMessage swaps the final message for msg. Replacing a message
// with an identical one changes nothing and saves nothing.
func (s *Store) ReplaceLastMessage(id string, msg Message) error {
	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		if last, ok := s.sessions[i].LastMessage(); ok && last == msg {
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()

	return s.update(id, func(c *ChatSession) error {
		if len(c.Messages) == 0 {
			return ErrEmptySession
		}
		c.Messages[len(c.Messages)-1] = msg
		return nil
	})
}

// update applies fn to a private copy of session id and swaps it in.
func (s *Store) update(id string, fn func(*ChatSession) error) error {
	return s.mutate(true, func() error {
		i := s.indexLocked(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		updated := s.sessions[i].Clone()
		if err := fn(&updated); err != nil {
			return err
		}
		next := make([]ChatSession, len(s.sessions))
		copy(next, s.sessions)
		next[i] = updated
		s.sessions = next
		return nil
	})
}

// mutate runs fn under the lock, persists when asked, then notifies
// subscribers. Nothing is saved or published if fn fails.
func (s *Store) mutate(persist bool, fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	if persist {
		s.persistLocked()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// persistLocked saves the whole collection. Failures are logged only.
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.sessions)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
		err = s.persister.Save(ctx, data)
		cancel()
	}
	if err != nil {
		s.log.Error("failed to persist chat history", "error", err, "sessions", len(s.sessions))
	}
	if s.onSave != nil {
		s.onSave(err)
	}
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn to receive a Snapshot after every mutation and
// returns a function that removes it. fn runs on the mutating goroutine
// and must not block; it may call back into the store.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.listenersMu.Lock()
	token := s.nextToken
	s.nextToken++
	s.listeners[token] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, token)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) notify(snap Snapshot) {
	s.listenersMu.Lock()
	tokens := make([]int, 0, len(s.listeners))
	for t := range s.listeners {
		tokens = append(tokens, t)
	}
	sort.Ints(tokens)
	fns := make([]func(Snapshot), 0, len(tokens))
	for _, t := range tokens {
		fns = append(fns, s.listeners[t])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Close closes the underlying persister.
func (s *Store) Close() error {
	return s.persister.Close()
}
