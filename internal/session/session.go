// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/askai/internal/document"
	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/provider"
	"github.com/jeranaias/askai/internal/stream"
	"github.com/jeranaias/askai/internal/telemetry"
)

// ErrBusy is returned when a request is made while another is running.
var ErrBusy = errors.New("session: a request is already in progress")

// ErrNoNotes is returned by attachment operations when no note source is
// configured.
var ErrNoNotes = errors.New("session: no notes directory configured")

// ConfigSource supplies provider settings at call time. *config.Config
// satisfies it.
type ConfigSource interface {
	ChatProvider() provider.ProviderConfig
	CompletionProvider() provider.ProviderConfig
}

// NoteSource reads attachments. *vault.Vault satisfies it.
type NoteSource interface {
	Read(name string) (model.Attachment, error)
	ReadActive() (model.Attachment, error)
}

// Options configures New.
type Options struct {
	Registry *provider.Registry
	Config   ConfigSource
	Notes    NoteSource
	Recorder telemetry.Recorder
	Logger   zerolog.Logger
	Persona  string
}

// Result describes one finished request.
type Result struct {
	Text string
	Job  stream.Info
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one chat with its attachments and at most one running job.
type Session struct {
	registry *provider.Registry
	config   ConfigSource
	notes    NoteSource
	recorder telemetry.Recorder
	logger   zerolog.Logger

	mu   sync.Mutex
	conv *model.Conversation
	job  *stream.Job
	// generation increments on Reset so output of a job started before
	// the reset is dropped.
	generation uint64
}

// New creates a session with a fresh conversation.
func New(opts Options) *Session {
	return &Session{
		registry: opts.Registry,
		config:   opts.Config,
		notes:    opts.Notes,
		recorder: opts.Recorder,
		logger:   opts.Logger.With().Str("component", "session").Logger(),
		conv:     model.NewConversation(opts.Persona),
	}
}

// ConversationID returns the ID of the current conversation.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.ID
}

// Turns returns a copy of the conversation.
func (s *Session) Turns() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Snapshot()
}

// LastReply returns the most recent assistant turn.
func (s *Session) LastReply() (model.Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.LastAssistant()
}

// Busy reports whether a job is running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job != nil
}

// Cancel aborts the running job, if any. It reports whether there was one.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job == nil {
		return false
	}
	job.Cancel()
	return true
}

// begin claims the busy slot.
func (s *Session) begin(job *stream.Job) (uint64, error) {
	if s.job != nil {
		return 0, ErrBusy
	}
	s.job = job
	return s.generation, nil
}

// end releases the busy slot and reports whether the conversation is still
// the one the job started on.
func (s *Session) end(job *stream.Job, generation uint64) bool {
	if s.job == job {
		s.job = nil
	}
	return s.generation == generation
}

// =============================================================================
// CHAT
// =============================================================================

// Send appends input as a user turn and streams the reply into target.
// Blank input returns model.ErrEmptyInput without touching the provider.
// The reply, complete or partial, is appended to the conversation whenever
// a stream was opened; the returned error reports why it stopped early.
func (s *Session) Send(ctx context.Context, input string, target stream.Publisher) (Result, error) {
	pc := s.config.ChatProvider()
	job := stream.NewJob(stream.KindChat, pc.Provider, pc.Model).WithLogger(s.logger)

	s.mu.Lock()
	generation, err := s.begin(job)
	if err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	if err := s.conv.AppendUser(input); err != nil {
		s.end(job, generation)
		s.mu.Unlock()
		return Result{}, err
	}
	s.conv.MaterializeAttachments()
	turns := s.conv.Snapshot()
	convID := s.conv.ID
	s.mu.Unlock()

	text, err := s.runChat(ctx, job, pc, turns, target)

	s.mu.Lock()
	current := s.end(job, generation)
	if current && job.Opened() {
		s.conv.AppendAssistant(text)
	}
	s.mu.Unlock()

	if !current {
		s.logger.Debug().Str("job", job.ID).Msg("conversation reset during job, reply dropped")
	}
	s.record(convID, job)
	return Result{Text: text, Job: job.Info()}, err
}

func (s *Session) runChat(ctx context.Context, job *stream.Job, pc provider.ProviderConfig, turns []model.Turn, target stream.Publisher) (string, error) {
	adapter, err := s.registry.Lookup(pc.Provider)
	if err != nil {
		return "", err
	}
	req, err := adapter.BuildRequest(turns, pc)
	if err != nil {
		return "", err
	}
	if req.Model != "" {
		job.Model = req.Model
	}
	return job.Run(ctx, func(ctx context.Context) (provider.Stream, error) {
		return adapter.Stream(ctx, req)
	}, stream.NewReconciler(stream.NewAppendSink(target)))
}

// =============================================================================
// INLINE EXPANSION
// =============================================================================

// Expand continues the document in editor at its cursor using the
// completion provider. The document is rewritten on every fragment; the
// conversation is not touched.
func (s *Session) Expand(ctx context.Context, editor stream.DocumentEditor) (Result, error) {
	pc := s.config.CompletionProvider()
	job := stream.NewJob(stream.KindCompletion, pc.Provider, pc.Model).WithLogger(s.logger)

	s.mu.Lock()
	generation, err := s.begin(job)
	convID := s.conv.ID
	s.mu.Unlock()
	if err != nil {
		return Result{}, err
	}

	text, err := s.runCompletion(ctx, job, pc, editor)

	s.mu.Lock()
	s.end(job, generation)
	s.mu.Unlock()

	s.record(convID, job)
	return Result{Text: text, Job: job.Info()}, err
}

func (s *Session) runCompletion(ctx context.Context, job *stream.Job, pc provider.ProviderConfig, editor stream.DocumentEditor) (string, error) {
	adapter, completer, err := s.registry.LookupCompleter(pc.Provider)
	if err != nil {
		return "", err
	}
	text := editor.Text()
	in := document.CompletionPrompt(text, stream.ClampOffset(text, editor.CursorOffset()))
	req, err := completer.BuildCompletion(in, pc)
	if err != nil {
		return "", err
	}
	if req.Model != "" {
		job.Model = req.Model
	}
	return job.Run(ctx, func(ctx context.Context) (provider.Stream, error) {
		return adapter.Stream(ctx, req)
	}, stream.NewReconciler(stream.NewSpliceSink(editor)))
}

func (s *Session) record(convID string, job *stream.Job) {
	if s.recorder == nil {
		return
	}
	info := job.Info()
	if info.Started.IsZero() {
		return
	}
	if err := s.recorder.Record(context.Background(), telemetry.FromJob(convID, info)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record usage")
	}
}

// =============================================================================
// CONVERSATION STATE
// =============================================================================

// Attach reads a note and attaches it, replacing an attachment of the same
// name.
func (s *Session) Attach(name string) (model.Attachment, error) {
	if s.notes == nil {
		return model.Attachment{}, ErrNoNotes
	}
	att, err := s.notes.Read(name)
	if err != nil {
		return model.Attachment{}, err
	}
	s.AttachText(att)
	return att, nil
}

// AttachActive attaches the note currently active in the notes source.
func (s *Session) AttachActive() (model.Attachment, error) {
	if s.notes == nil {
		return model.Attachment{}, ErrNoNotes
	}
	att, err := s.notes.ReadActive()
	if err != nil {
		return model.Attachment{}, err
	}
	s.AttachText(att)
	return att, nil
}

// AttachText attaches text that did not come from the notes source.
func (s *Session) AttachText(att model.Attachment) {
	s.mu.Lock()
	s.conv.Attach(att.Name, att.Content)
	s.mu.Unlock()
	s.logger.Debug().Str("attachment", att.Name).Int("bytes", len(att.Content)).Msg("attached")
}

// Detach removes an attachment. Context turns already sent stay in the
// history.
func (s *Session) Detach(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Detach(name)
}

// Attachments lists current attachments by name.
func (s *Session) Attachments() []model.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Attachments()
}

// Reset returns the conversation to the persona turn and drops
// attachments. A running job is cancelled and its reply discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	s.conv.Reset()
	s.generation++
	job := s.job
	s.job = nil
	s.mu.Unlock()

	if job != nil {
		job.Cancel()
	}
}

// Edit propagates an edit of a rendered reply. It reports whether a stored
// turn matched.
func (s *Session) Edit(rendered, edited string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.EditAssistantTurn(rendered, edited)
}
