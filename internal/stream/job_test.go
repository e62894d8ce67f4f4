// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askai/internal/provider"
)

func discard() *Reconciler {
	return NewReconciler(NewAppendSink(PublisherFunc(func(string) {})))
}

func TestJob_Completes(t *testing.T) {
	job := NewJob(KindChat, "openai", "gpt-3.5-turbo")
	assert.Equal(t, StatusPending, job.Status())
	assert.NotEmpty(t, job.ID)

	text, err := job.Run(context.Background(), func(context.Context) (provider.Stream, error) {
		return fragments("a", "b"), nil
	}, discard())
	require.NoError(t, err)

	assert.Equal(t, "ab", text)
	info := job.Info()
	assert.Equal(t, StatusCompleted, info.Status)
	assert.Equal(t, 2, info.Chars)
	assert.Equal(t, 2, info.Fragments)
	assert.True(t, job.Opened())
}

func TestJob_OpenFailureIsNotOpened(t *testing.T) {
	job := NewJob(KindChat, "google", "gemini-pro")
	_, err := job.Run(context.Background(), func(context.Context) (provider.Stream, error) {
		return nil, provider.Missing("google", "api_key")
	}, discard())

	assert.True(t, errors.Is(err, provider.ErrInvalidConfiguration))
	assert.False(t, job.Opened())
	assert.Equal(t, StatusFailed, job.Status())
}

func TestJob_FailureKeepsPartial(t *testing.T) {
	job := NewJob(KindChat, "openai", "m")
	s, _ := failingStream(&provider.Error{Kind: provider.KindTransport, Provider: "openai"}, "Hello")

	text, err := job.Run(context.Background(), func(context.Context) (provider.Stream, error) {
		return s, nil
	}, discard())

	assert.Equal(t, "Hello", text)
	assert.True(t, errors.Is(err, provider.ErrTransport))
	assert.True(t, job.Opened())
	assert.Equal(t, StatusFailed, job.Status())
}

func TestJob_CancelWhileRunning(t *testing.T) {
	job := NewJob(KindChat, "openai", "m")
	first := make(chan struct{})

	done := make(chan struct{})
	var text string
	var err error
	go func() {
		defer close(done)
		text, err = job.Run(context.Background(), func(ctx context.Context) (provider.Stream, error) {
			sent := false
			return provider.NewStream(func() (string, error) {
				if !sent {
					sent = true
					close(first)
					return "partial", nil
				}
				<-ctx.Done()
				return "", provider.Classify("openai", ctx.Err())
			}, nil), nil
		}, discard())
	}()

	<-first
	job.Cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop after Cancel")
	}

	assert.Equal(t, "partial", text)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StatusCancelled, job.Status())
}

func TestJob_CancelBeforeRun(t *testing.T) {
	job := NewJob(KindCompletion, "cloudflare", "m")
	job.Cancel()

	opened := false
	_, err := job.Run(context.Background(), func(context.Context) (provider.Stream, error) {
		opened = true
		return provider.NewSingleStream("x"), nil
	}, discard())

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, opened)
	assert.Equal(t, StatusCancelled, job.Status())
}

func TestJob_RunsOnce(t *testing.T) {
	job := NewJob(KindChat, "openai", "m")
	open := func(context.Context) (provider.Stream, error) { return provider.NewSingleStream("x"), nil }
	_, err := job.Run(context.Background(), open, discard())
	require.NoError(t, err)

	_, err = job.Run(context.Background(), open, discard())
	assert.ErrorIs(t, err, ErrJobStarted)
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusPending, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCancelled, StatusCancelled, true},
	}
	for _, tc := range tests {
		if got := validTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("validTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
