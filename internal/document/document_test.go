// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionPrompt(t *testing.T) {
	text := "line one\nline two\nline three"

	tests := []struct {
		name       string
		offset     int
		wantPrompt string
		wantSuffix string
	}{
		{"mid second line", 12, "line one\nline two", "e two\nline three"},
		{"end of first line", 8, "line one", "\nline two\nline three"},
		{"end of document", len(text), text, ""},
		{"start", 0, "line one", text},
		{"past end", 500, text, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := CompletionPrompt(text, tc.offset)
			assert.Equal(t, tc.wantPrompt, in.Prompt)
			assert.Equal(t, tc.wantSuffix, in.Suffix)
		})
	}
}

func TestLineEndOffset(t *testing.T) {
	text := "ab\ncde\n\nf"
	tests := []struct {
		line int
		want int
	}{
		{0, 0},
		{1, 2},
		{2, 6},
		{3, 7},
		{4, 9},
		{9, 9},
	}
	for _, tc := range tests {
		if got := LineEndOffset(text, tc.line); got != tc.want {
			t.Errorf("LineEndOffset(line %d) = %d, want %d", tc.line, got, tc.want)
		}
	}
	assert.Equal(t, 4, LineCount(text))
	assert.Equal(t, 1, LineCount(""))
}

func TestBuffer(t *testing.T) {
	b := NewBuffer("AB", 1)
	require.NoError(t, b.ReplaceAll("AxB"))
	b.SetCursorOffset(2)
	assert.Equal(t, "AxB", b.Text())
	assert.Equal(t, 2, b.CursorOffset())
}

func TestFile_ReplaceAllPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.md")
	require.NoError(t, os.WriteFile(path, []byte("Dear team,"), 0640))

	f, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, len("Dear team,"), f.CursorOffset())

	require.NoError(t, f.ReplaceAll("Dear team, hello"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Dear team, hello", string(data))
	assert.Equal(t, "Dear team, hello", f.Text())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestOpenFile_Errors(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)

	_, err = OpenFile(t.TempDir())
	assert.Error(t, err)
}
