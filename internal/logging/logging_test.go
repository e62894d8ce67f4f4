// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "INFO", Output: &buf})
	require.NoError(t, err)
	defer closeFn()

	logger.Debug().Msg("hidden")
	logger.Info().Str("provider", "groq").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "groq", entry["provider"])
	assert.Contains(t, entry, "time")
}

func TestNew_DefaultIsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Output: &buf})
	require.NoError(t, err)
	logger.Info().Msg("quiet")
	assert.Zero(t, buf.Len())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "askai.log")
	logger, closeFn, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)
	logger.Debug().Msg("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
}
