// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"io"
	"strings"
	"sync/atomic"

	"github.com/jeranaias/askai/internal/provider"
)

// ErrReconcilerUsed is returned when a Reconciler is run a second time.
var ErrReconcilerUsed = errors.New("stream: reconciler already used")

// Reconciler binds one stream to one sink. It is single use.
type Reconciler struct {
	sink Sink
	used atomic.Bool

	buf       strings.Builder
	fragments int
}

// NewReconciler creates a reconciler for sink.
func NewReconciler(sink Sink) *Reconciler {
	return &Reconciler{sink: sink}
}

// Run drains s into the sink and closes s. It returns the accumulated text
// together with the first error, so a failed stream still yields its
// partial reply.
func (r *Reconciler) Run(s provider.Stream) (string, error) {
	if !r.used.CompareAndSwap(false, true) {
		return "", ErrReconcilerUsed
	}
	defer s.Close()

	if err := r.sink.Begin(); err != nil {
		return "", err
	}
	for {
		fragment, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return r.buf.String(), nil
		}
		if err != nil {
			return r.buf.String(), err
		}
		if fragment == "" {
			continue
		}
		r.buf.WriteString(fragment)
		r.fragments++
		if err := r.sink.Apply(r.buf.String()); err != nil {
			return r.buf.String(), err
		}
	}
}

// Fragments returns how many non-empty fragments were applied.
func (r *Reconciler) Fragments() int {
	return r.fragments
}
