// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"io"
	"strings"
	"sync"
)

// Stream is a lazy, finite, non-restartable sequence of text fragments.
// Recv returns io.EOF once the backend is done; after any error, including
// io.EOF, every further Recv returns io.EOF.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// funcStream adapts a fragment function to the Stream interface.
type funcStream struct {
	next    func() (string, error)
	closeFn func() error

	done      bool
	closeOnce sync.Once
	closeErr  error
}

// NewStream returns a Stream backed by next. closeFn may be nil.
func NewStream(next func() (string, error), closeFn func() error) Stream {
	return &funcStream{next: next, closeFn: closeFn}
}

// Recv returns the next fragment.
func (s *funcStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	fragment, err := s.next()
	if err != nil {
		s.done = true
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}
	return fragment, nil
}

// Close releases the underlying response. It is safe to call twice.
func (s *funcStream) Close() error {
	s.closeOnce.Do(func() {
		s.done = true
		if s.closeFn != nil {
			s.closeErr = s.closeFn()
		}
	})
	return s.closeErr
}

// NewSingleStream returns a Stream that yields text once. It models
// backends that answer with one full body.
func NewSingleStream(text string) Stream {
	sent := false
	return NewStream(func() (string, error) {
		if sent {
			return "", io.EOF
		}
		sent = true
		return text, nil
	}, nil)
}

// Collect drains a stream and returns everything it produced, including
// the partial text when the stream fails.
func Collect(s Stream) (string, error) {
	defer s.Close()
	var b strings.Builder
	for {
		fragment, err := s.Recv()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(fragment)
	}
}
