// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askai/internal/provider"
)

// memEditor records every document state it is given.
type memEditor struct {
	text    string
	cursor  int
	history []string
	cursors []int
	failOn  int
}

func (e *memEditor) Text() string      { return e.text }
func (e *memEditor) CursorOffset() int { return e.cursor }
func (e *memEditor) SetCursorOffset(offset int) {
	e.cursor = offset
	e.cursors = append(e.cursors, offset)
}

func (e *memEditor) ReplaceAll(text string) error {
	if e.failOn > 0 && len(e.history)+1 == e.failOn {
		return errors.New("disk full")
	}
	e.text = text
	e.history = append(e.history, text)
	return nil
}

func fragments(parts ...string) provider.Stream {
	i := 0
	return provider.NewStream(func() (string, error) {
		if i >= len(parts) {
			return "", io.EOF
		}
		i++
		return parts[i-1], nil
	}, nil)
}

func TestSpliceSink_InsertsAtFrozenOffset(t *testing.T) {
	ed := &memEditor{text: "AB", cursor: 1}
	text, err := NewReconciler(NewSpliceSink(ed)).Run(fragments("x", "y"))
	require.NoError(t, err)

	assert.Equal(t, "xy", text)
	assert.Equal(t, []string{"AxB", "AxyB"}, ed.history)
	assert.Equal(t, []int{2, 3}, ed.cursors)
}

func TestSpliceSink_IgnoresConcurrentEdits(t *testing.T) {
	ed := &memEditor{text: "AB", cursor: 1}
	sink := NewSpliceSink(ed)
	require.NoError(t, sink.Begin())

	require.NoError(t, sink.Apply("x"))
	ed.text = "user typed here"
	ed.cursor = 9
	require.NoError(t, sink.Apply("xy"))

	assert.Equal(t, "AxyB", ed.text)
	assert.Equal(t, 1, sink.Offset())
}

func TestSpliceSink_OffsetClamping(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		cursor int
		want   string
	}{
		{"negative", "AB", -5, "!AB"},
		{"past end", "AB", 99, "AB!"},
		{"mid rune", "é", 1, "!é"},
		{"empty document", "", 0, "!"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ed := &memEditor{text: tc.text, cursor: tc.cursor}
			_, err := NewReconciler(NewSpliceSink(ed)).Run(fragments("!"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ed.text)
		})
	}
}

func TestAppendSink_PublishesGrowingText(t *testing.T) {
	var published []string
	sink := NewAppendSink(PublisherFunc(func(s string) { published = append(published, s) }))

	text, err := NewReconciler(sink).Run(fragments("Hel", "", "lo", "!"))
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
	assert.Equal(t, []string{"Hel", "Hello", "Hello!"}, published)
}
