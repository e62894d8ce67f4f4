// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askai/internal/model"
)

type stubAdapter struct{ name string }

func (s stubAdapter) Name() string { return s.name }
func (s stubAdapter) BuildRequest([]model.Turn, ProviderConfig) (*Request, error) {
	return NewRequest(s.name, "", "", "", nil), nil
}
func (s stubAdapter) Stream(context.Context, *Request) (Stream, error) {
	return NewSingleStream(""), nil
}

type stubCompleter struct{ stubAdapter }

func (s stubCompleter) BuildCompletion(CompletionInput, ProviderConfig) (*Request, error) {
	return NewRequest(s.name, "", "", "", nil), nil
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry(stubAdapter{"openai"}, stubCompleter{stubAdapter{"groq"}})

	a, err := r.Lookup(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, "openai", a.Name())

	_, err = r.Lookup("")
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))

	_, err = r.Lookup("anthropic")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "groq, openai")

	assert.Equal(t, []string{"groq", "openai"}, r.Names())
}

func TestRegistry_LookupCompleter(t *testing.T) {
	r := NewRegistry(stubAdapter{"cloudflare"}, stubCompleter{stubAdapter{"groq"}})

	_, c, err := r.LookupCompleter("groq")
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, _, err = r.LookupCompleter("cloudflare")
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestIsKnown(t *testing.T) {
	for _, name := range KnownNames {
		assert.True(t, IsKnown(name), name)
	}
	assert.False(t, IsKnown("bard"))
}

func TestProviderConfig_MaskedKey(t *testing.T) {
	assert.Equal(t, "", ProviderConfig{}.MaskedKey())
	assert.Equal(t, "****", ProviderConfig{APIKey: "short"}.MaskedKey())
	assert.Equal(t, "****wxyz", ProviderConfig{APIKey: "sk-abcdefghwxyz"}.MaskedKey())
}
