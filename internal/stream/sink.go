// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"unicode/utf8"
)

// =============================================================================
// HOST INTERFACES
// =============================================================================

// Publisher displays the full reply so far. Each call replaces the
// previous text.
type Publisher interface {
	Publish(text string)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(text string)

// Publish calls f(text).
func (f PublisherFunc) Publish(text string) { f(text) }

// DocumentEditor is the editor surface the splice sink writes through.
// Offsets are byte offsets into Text.
type DocumentEditor interface {
	Text() string
	CursorOffset() int
	ReplaceAll(text string) error
	SetCursorOffset(offset int)
}

// Sink receives the accumulated reply after every non-empty fragment.
type Sink interface {
	// Begin is called once before the first fragment.
	Begin() error
	// Apply is called with the full text accumulated so far.
	Apply(accumulated string) error
}

// =============================================================================
// APPEND SINK
// =============================================================================

// AppendSink publishes the growing reply to a transcript view.
type AppendSink struct {
	target Publisher
}

// NewAppendSink creates a sink publishing to target.
func NewAppendSink(target Publisher) *AppendSink {
	return &AppendSink{target: target}
}

// Begin implements Sink.
func (s *AppendSink) Begin() error { return nil }

// Apply implements Sink.
func (s *AppendSink) Apply(accumulated string) error {
	s.target.Publish(accumulated)
	return nil
}

// =============================================================================
// SPLICE SINK
// =============================================================================

// SpliceSink inserts the reply into a document at the cursor. The original
// text and offset are captured once in Begin and never recomputed.
type SpliceSink struct {
	editor DocumentEditor

	original string
	offset   int
}

// NewSpliceSink creates a sink writing through editor.
func NewSpliceSink(editor DocumentEditor) *SpliceSink {
	return &SpliceSink{editor: editor}
}

// Begin captures the document text and cursor offset.
func (s *SpliceSink) Begin() error {
	s.original = s.editor.Text()
	s.offset = ClampOffset(s.original, s.editor.CursorOffset())
	return nil
}

// Apply rewrites the entire document and moves the cursor to the end of the
// inserted text.
func (s *SpliceSink) Apply(accumulated string) error {
	doc := s.original[:s.offset] + accumulated + s.original[s.offset:]
	if err := s.editor.ReplaceAll(doc); err != nil {
		return err
	}
	s.editor.SetCursorOffset(s.offset + len(accumulated))
	return nil
}

// Offset returns the frozen insertion offset.
func (s *SpliceSink) Offset() int {
	return s.offset
}

// ClampOffset bounds offset to text and moves it back onto a rune boundary.
// Callers that split the document themselves use it to agree with Begin.
func ClampOffset(text string, offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(text) {
		return len(text)
	}
	for offset > 0 && offset < len(text) && !utf8.RuneStart(text[offset]) {
		offset--
	}
	return offset
}
