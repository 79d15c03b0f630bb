// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/llmchat/internal/api"
	"github.com/jeranaias/llmchat/internal/config"
	"github.com/jeranaias/llmchat/internal/logger"
	"github.com/jeranaias/llmchat/internal/session"
	"github.com/jeranaias/llmchat/internal/stream"
	"github.com/jeranaias/llmchat/internal/telemetry"
)

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs requests against a Transport and writes the results
// into a session.Store.
type Orchestrator struct {
	store     *session.Store
	transport Transport

	titleWords     int
	errorMessage   string
	defaultModel   string
	preferredModel string
	metrics        *telemetry.Metrics
	log            *slog.Logger

	mu     sync.Mutex
	state  State
	model  string
	models []api.Model

	listenersMu sync.Mutex
	listeners   map[int]func(Event)
	nextToken   int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTitleWords sets how many words of the first message form a title.
func WithTitleWords(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.titleWords = n
		}
	}
}

// WithErrorMessage replaces the assistant text written when a request fails.
func WithErrorMessage(msg string) Option {
	return func(o *Orchestrator) {
		if msg != "" {
			o.errorMessage = msg
		}
	}
}

// WithDefaultModel sets the model used when the current session has none.
func WithDefaultModel(id string) Option {
	return func(o *Orchestrator) { o.defaultModel = id }
}

// WithPreferredModel sets the model selected automatically when a model
// list arrives, nothing is selected yet and the list contains it.
func WithPreferredModel(id string) Option {
	return func(o *Orchestrator) { o.preferredModel = id }
}

// WithMetrics records request and frame metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// New creates an orchestrator. The selected model starts as the current
// session's model, falling back to the default model.
func New(store *session.Store, transport Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		transport:    transport,
		titleWords:   session.DefaultTitleWords,
		errorMessage: config.DefaultErrorMessage,
		log:          slog.Default(),
		listeners:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.model = o.defaultModel
	if cur, ok := store.Current(); ok && cur.Model != "" {
		o.model = cur.Model
	}
	return o
}

// Store returns the session store the orchestrator writes to.
func (o *Orchestrator) Store() *session.Store {
	return o.store
}

// State returns the current request state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Model returns the selected model id.
func (o *Orchestrator) Model() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.model
}

// Models returns the last model list fetched by RefreshModels.
func (o *Orchestrator) Models() []api.Model {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]api.Model(nil), o.models...)
}

// =============================================================================
// SEND
// =============================================================================

// Send appends text as a user message to the current session (creating one
// if there is none), streams the reply into an assistant message and
// returns when the request has finished.
//
// On any failure after the user message is stored, the assistant message
// becomes the fixed error message and the cause is returned. If the session
// is deleted while the reply streams, Send stops and returns an error
// matching session.ErrSessionNotFound without recreating it.
func (o *Orchestrator) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	model := o.model
	if model == "" {
		model = o.preferredModel
	}
	if model == "" {
		o.mu.Unlock()
		return ErrNoModel
	}
	o.state = StateSending
	o.mu.Unlock()

	cur, ok := o.store.Current()
	if !ok {
		cur = o.store.Create(model)
	}
	id := cur.ID
	o.emit(Event{Kind: EventStateChanged, SessionID: id, State: StateSending})

	t := &turn{
		o:     o,
		id:    id,
		model: model,
		log:   logger.NewRequestLoggerFrom(o.log).With("session_id", id, "model", model),
		start: time.Now(),
	}
	return t.run(ctx, text, len(cur.Messages) > 0)
}

// turn is the state of one Send call.
type turn struct {
	o           *Orchestrator
	id          string
	model       string
	log         *slog.Logger
	start       time.Time
	placeholder bool
	draft       *stream.Draft
}

func (t *turn) run(ctx context.Context, text string, hadMessages bool) error {
	o := t.o

	if err := o.store.AppendMessage(t.id, session.UserMessage(text)); err != nil {
		return t.abandon(err)
	}
	if !hadMessages {
		if err := o.store.ApplyTitle(t.id, text, o.titleWords); err != nil {
			return t.abandon(err)
		}
	}

	cur, ok := o.store.Get(t.id)
	if !ok {
		return t.abandon(session.ErrSessionNotFound)
	}
	req := api.CompletionRequest{
		Model:    t.model,
		Messages: make([]api.ChatMessage, 0, len(cur.Messages)),
		Stream:   true,
	}
	for _, m := range cur.Messages {
		req.Messages = append(req.Messages, api.NewChatMessage(string(m.Role), m.Content))
	}

	t.log.Info("starting completion", "messages", len(req.Messages))
	o.metrics.RequestStarted()
	t.draft = stream.NewDraft()

	body, err := o.transport.StartCompletion(ctx, req)
	if err != nil {
		return t.fail(err)
	}
	defer body.Close()

	if err := o.store.AppendMessage(t.id, session.AssistantMessage("")); err != nil {
		return t.abandon(err)
	}
	t.placeholder = true
	o.setState(t.id, StateStreaming)

	dec := stream.NewDecoder(stream.WithLogger(t.log))
	err = dec.Consume(ctx, body, t.apply)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return t.abandon(err)
		}
		return t.fail(err)
	}

	t.draft.Finalize()
	content := t.draft.Content()
	if err := o.store.ReplaceLastMessage(t.id, session.AssistantMessage(content)); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return t.abandon(err)
		}
		return t.fail(err)
	}

	lines, bad := dec.Stats()
	t.log.Info("completion finished",
		"deltas", t.draft.Deltas(),
		"chars", len(content),
		"lines", lines,
		"unparseable", bad,
		"elapsed", time.Since(t.start))
	o.metrics.ObserveRequest(telemetry.OutcomeCompleted, time.Since(t.start), t.draft.TimeToFirstDelta())
	o.emit(Event{Kind: EventCompleted, SessionID: t.id, Content: content})
	o.setState(t.id, StateIdle)
	return nil
}

// apply folds one frame into the draft and mirrors the draft into the
// store whenever it changes.
func (t *turn) apply(f stream.Frame) error {
	t.o.metrics.ObserveFrame(f.Kind.String())

	changed, err := t.draft.Apply(f)
	if err != nil || !changed {
		return nil
	}
	t.o.metrics.ObserveDelta(len(f.Text))

	content := t.draft.Content()
	if err := t.o.store.ReplaceLastMessage(t.id, session.AssistantMessage(content)); err != nil {
		return err
	}
	t.o.emit(Event{Kind: EventDelta, SessionID: t.id, Content: content})
	return nil
}

// fail writes the fixed error message into the session and returns to
// Idle. No further deltas are applied.
func (t *turn) fail(cause error) error {
	o := t.o
	t.log.Error("completion failed", "error", cause, "elapsed", time.Since(t.start))
	o.setState(t.id, StateFailed)

	msg := session.AssistantMessage(o.errorMessage)
	var err error
	if t.placeholder {
		err = o.store.ReplaceLastMessage(t.id, msg)
	} else {
		err = o.store.AppendMessage(t.id, msg)
	}
	if err != nil {
		t.log.Warn("could not record error message", "error", err)
	}

	var ttfd time.Duration
	if t.draft != nil {
		ttfd = t.draft.TimeToFirstDelta()
	}
	o.metrics.ObserveRequest(telemetry.OutcomeFailed, time.Since(t.start), ttfd)
	o.emit(Event{Kind: EventFailed, SessionID: t.id, Content: o.errorMessage, Err: cause})
	o.setState(t.id, StateIdle)
	return cause
}

// abandon stops a request whose session no longer exists.
func (t *turn) abandon(cause error) error {
	o := t.o
	t.log.Info("session deleted during request, abandoning", "error", cause)
	if t.draft != nil {
		o.metrics.ObserveRequest(telemetry.OutcomeAbandoned, time.Since(t.start), t.draft.TimeToFirstDelta())
	}
	o.setState(t.id, StateIdle)
	if errors.Is(cause, session.ErrSessionNotFound) {
		return cause
	}
	return fmt.Errorf("%w: %v", session.ErrSessionNotFound, cause)
}

func (o *Orchestrator) setState(id string, s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.emit(Event{Kind: EventStateChanged, SessionID: id, State: s})
}

// =============================================================================
// SESSIONS
// =============================================================================

// NewSession creates an empty session with the selected model and makes it
// current.
func (o *Orchestrator) NewSession() session.ChatSession {
	return o.store.Create(o.Model())
}

// SelectSession makes id current and adopts its model.
func (o *Orchestrator) SelectSession(id string) error {
	if !o.store.Select(id) {
		return fmt.Errorf("%w: %s", session.ErrSessionNotFound, id)
	}
	o.adoptModel(id)
	return nil
}

// adoptModel makes session id's model the selected one. Sessions without
// a model leave the selection alone.
func (o *Orchestrator) adoptModel(id string) {
	c, ok := o.store.Get(id)
	if !ok || c.Model == "" {
		return
	}
	o.mu.Lock()
	changed := o.model != c.Model
	o.model = c.Model
	o.mu.Unlock()
	if changed {
		o.emit(Event{Kind: EventModelSelected, SessionID: id, Model: c.Model})
	}
}

// DeleteSession removes a session. When it was current, the session that
// becomes current lends its model to future requests. Deleting the session
// a reply is streaming into ends that request without recreating the
// session.
func (o *Orchestrator) DeleteSession(id string) error {
	before := o.store.CurrentID()
	if err := o.store.Delete(id); err != nil {
		return err
	}
	if after := o.store.CurrentID(); after != before && after != "" {
		o.adoptModel(after)
	}
	return nil
}

// RenameSession replaces a session's title.
func (o *Orchestrator) RenameSession(id, title string) error {
	return o.store.Rename(id, title)
}

// =============================================================================
// MODELS
// =============================================================================

// SelectModel sets the model for future requests and records it on the
// current session. A request already streaming keeps the model it was
// issued with.
func (o *Orchestrator) SelectModel(id string) {
	o.mu.Lock()
	o.model = id
	o.mu.Unlock()

	cur := o.store.CurrentID()
	if cur != "" {
		if err := o.store.SetModel(cur, id); err != nil {
			o.log.Warn("could not record model on session", "session_id", cur, "error", err)
		}
	}
	o.emit(Event{Kind: EventModelSelected, SessionID: cur, Model: id})
}

// RefreshModels fetches the model list. A failure is published as
// EventModelsFailed and returned; it does not affect the selected model.
// When nothing is selected and the list contains the preferred model, it
// is selected.
func (o *Orchestrator) RefreshModels(ctx context.Context) ([]api.Model, error) {
	models, err := o.transport.ListModels(ctx)
	o.metrics.ObserveModelList(err)
	if err != nil {
		o.log.Warn("failed to fetch model list", "error", err)
		o.emit(Event{Kind: EventModelsFailed, Err: err})
		return nil, err
	}

	sort.SliceStable(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	o.mu.Lock()
	o.models = models
	pick := o.model == "" && o.preferredModel != "" && containsModel(models, o.preferredModel)
	o.mu.Unlock()

	o.log.Debug("model list loaded", "count", len(models))
	o.emit(Event{Kind: EventModelsLoaded, Models: append([]api.Model(nil), models...)})
	if pick {
		o.SelectModel(o.preferredModel)
	}
	return models, nil
}

func containsModel(models []api.Model, id string) bool {
	for _, m := range models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn for every Event and returns a function that
// removes it. fn runs on the goroutine that produced the event and must
// not block.
func (o *Orchestrator) Subscribe(fn func(Event)) (unsubscribe func()) {
	o.listenersMu.Lock()
	token := o.nextToken
	o.nextToken++
	o.listeners[token] = fn
	o.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.listenersMu.Lock()
			delete(o.listeners, token)
			o.listenersMu.Unlock()
		})
	}
}

func (o *Orchestrator) emit(e Event) {
	o.listenersMu.Lock()
	tokens := make([]int, 0, len(o.listeners))
	for t := range o.listeners {
		tokens = append(tokens, t)
	}
	sort.Ints(tokens)
	fns := make([]func(Event), 0, len(tokens))
	for _, t := range tokens {
		fns = append(fns, o.listeners[t])
	}
	o.listenersMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
