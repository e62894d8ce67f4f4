// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jeranaias/askai/internal/provider"
	"github.com/jeranaias/askai/internal/util"
)

// =============================================================================
// BUFFER
// =============================================================================

// Buffer is an in-memory document with a cursor.
type Buffer struct {
	mu     sync.RWMutex
	text   string
	cursor int
}

// NewBuffer creates a buffer with the cursor at offset.
func NewBuffer(text string, offset int) *Buffer {
	return &Buffer{text: text, cursor: offset}
}

// Text returns the document.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// CursorOffset returns the cursor position.
func (b *Buffer) CursorOffset() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor
}

// ReplaceAll swaps the whole document.
func (b *Buffer) ReplaceAll(text string) error {
	b.mu.Lock()
	b.text = text
	b.mu.Unlock()
	return nil
}

// SetCursorOffset moves the cursor.
func (b *Buffer) SetCursorOffset(offset int) {
	b.mu.Lock()
	b.cursor = offset
	b.mu.Unlock()
}

// =============================================================================
// FILE
// =============================================================================

// File is a Buffer backed by a file on disk. Every ReplaceAll rewrites the
// file atomically, so an interrupted expansion leaves the last complete
// state.
type File struct {
	Buffer
	path string
	perm os.FileMode
}

// OpenFile loads path. The cursor starts at the end of the document.
func OpenFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open document: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	text := string(data)
	return &File{
		Buffer: Buffer{text: text, cursor: len(text)},
		path:   path,
		perm:   info.Mode().Perm(),
	}, nil
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

// ReplaceAll writes text to disk and then updates the buffer.
func (f *File) ReplaceAll(text string) error {
	if err := util.AtomicWriteFile(f.path, []byte(text), f.perm); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return f.Buffer.ReplaceAll(text)
}

// =============================================================================
// POSITIONS
// =============================================================================

// LineCount returns the number of lines in text. An empty text has one.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

// LineEndOffset returns the offset of the end of 1-based line, clamped to
// the document. Line 0 or less is the start of the document.
func LineEndOffset(text string, line int) int {
	if line <= 0 {
		return 0
	}
	offset := 0
	for i := 1; i < line; i++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}
		offset += next + 1
	}
	if end := strings.IndexByte(text[offset:], '\n'); end >= 0 {
		return offset + end
	}
	return len(text)
}

// CompletionPrompt splits a document around the cursor for inline
// expansion. The prompt is every line up to and including the cursor's
// line; the suffix is everything after the cursor.
func CompletionPrompt(text string, offset int) provider.CompletionInput {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	lineEnd := len(text)
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		lineEnd = offset + i
	}
	return provider.CompletionInput{
		Prompt: text[:lineEnd],
		Suffix: text[offset:],
	}
}
