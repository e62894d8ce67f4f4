// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/askai/internal/provider"
)

// =============================================================================
// JOB STATUS
// =============================================================================

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// String returns the status name.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the job can no longer change state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Kind says which sink a job feeds.
type Kind string

const (
	KindChat       Kind = "chat"
	KindCompletion Kind = "completion"
)

// ErrJobStarted is returned when Run is called on a job that already ran.
var ErrJobStarted = errors.New("stream: job already started")

// Opener opens the provider stream. It receives the job's context so
// cancelling the job also aborts connection setup.
type Opener func(ctx context.Context) (provider.Stream, error)

// =============================================================================
// JOB
// =============================================================================

// Job is one cancellable streaming request.
type Job struct {
	ID       string
	Kind     Kind
	Provider string
	Model    string

	mu        sync.RWMutex
	status    Status
	started   time.Time
	finished  time.Time
	opened    bool
	text      string
	fragments int
	err       error
	cancel    context.CancelFunc

	logger zerolog.Logger
}

// NewJob creates a pending job.
func NewJob(kind Kind, providerName, modelName string) *Job {
	return &Job{
		ID:       uuid.New().String(),
		Kind:     kind,
		Provider: providerName,
		Model:    modelName,
		status:   StatusPending,
		logger:   zerolog.Nop(),
	}
}

// WithLogger sets the logger used for lifecycle events.
func (j *Job) WithLogger(logger zerolog.Logger) *Job {
	j.logger = logger.With().Str("job", j.ID).Str("kind", string(j.Kind)).Logger()
	return j
}

func (j *Job) setStatus(to Status) error {
	if !validTransition(j.status, to) {
		return fmt.Errorf("stream: invalid status transition from %s to %s", j.status, to)
	}
	j.status = to
	return nil
}

// validTransition allows pending -> running|cancelled and
// running -> completed|failed|cancelled.
func validTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusCancelled
	case StatusRunning:
		return to.IsTerminal()
	default:
		return false
	}
}

// Run opens the stream and drains it through r. The returned text is
// whatever was accumulated, also when err is non-nil. A job runs once.
func (j *Job) Run(ctx context.Context, open Opener, r *Reconciler) (string, error) {
	j.mu.Lock()
	if j.status == StatusCancelled {
		j.mu.Unlock()
		return "", context.Canceled
	}
	if j.status != StatusPending {
		j.mu.Unlock()
		return "", ErrJobStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	j.cancel = cancel
	j.started = time.Now()
	_ = j.setStatus(StatusRunning)
	j.mu.Unlock()

	j.logger.Debug().Str("provider", j.Provider).Str("model", j.Model).Msg("job started")

	var text string
	s, err := open(runCtx)
	if err == nil {
		j.mu.Lock()
		j.opened = true
		j.mu.Unlock()
		text, err = r.Run(s)
	}

	j.finish(runCtx, text, r.Fragments(), err)
	return text, err
}

func (j *Job) finish(runCtx context.Context, text string, fragments int, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.text = text
	j.fragments = fragments
	j.err = err
	j.finished = time.Now()
	j.cancel = nil

	switch {
	case err == nil:
		_ = j.setStatus(StatusCompleted)
	case runCtx.Err() != nil || errors.Is(err, context.Canceled):
		_ = j.setStatus(StatusCancelled)
	default:
		_ = j.setStatus(StatusFailed)
	}

	event := j.logger.Debug()
	if j.status == StatusFailed {
		event = j.logger.Warn().Err(err).Str("error_kind", provider.KindOf(err).String())
	}
	event.Str("status", string(j.status)).
		Int("chars", len(text)).
		Int("fragments", fragments).
		Dur("elapsed", j.finished.Sub(j.started)).
		Msg("job finished")
}

// Cancel aborts the job. A pending job will refuse to run; a running job
// stops at the next read and keeps its partial text.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.status {
	case StatusPending:
		_ = j.setStatus(StatusCancelled)
	case StatusRunning:
		if j.cancel != nil {
			j.cancel()
		}
	}
}

// Status returns the current state.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Opened reports whether a stream was obtained from the provider.
func (j *Job) Opened() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.opened
}

// Info is a read-only summary of a finished or running job.
type Info struct {
	ID        string
	Kind      Kind
	Provider  string
	Model     string
	Status    Status
	Started   time.Time
	Finished  time.Time
	Chars     int
	Fragments int
	Err       error
}

// Duration returns the elapsed run time, or zero if the job has not
// finished.
func (i Info) Duration() time.Duration {
	if i.Started.IsZero() || i.Finished.IsZero() {
		return 0
	}
	return i.Finished.Sub(i.Started)
}

// Info returns a snapshot of the job.
func (j *Job) Info() Info {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Info{
		ID:        j.ID,
		Kind:      j.Kind,
		Provider:  j.Provider,
		Model:     j.Model,
		Status:    j.status,
		Started:   j.started,
		Finished:  j.finished,
		Chars:     len(j.text),
		Fragments: j.fragments,
		Err:       j.err,
	}
}
