// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/provider"
)

func turns(pairs ...string) []model.Turn {
	var out []model.Turn
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.NewTurn(model.Role(pairs[i]), pairs[i+1]))
	}
	return out
}

func roles(history []Content) []string {
	out := make([]string, len(history))
	for i, c := range history {
		out[i] = c.Role
	}
	return out
}

// =============================================================================
// HISTORY MAPPING
// =============================================================================

func TestMapHistory_SystemSystemUser(t *testing.T) {
	history, message, err := MapHistory(turns(
		"system", "persona",
		"system", "Context from a.md\nalpha",
		"user", "what is alpha?",
	))
	require.NoError(t, err)

	assert.Equal(t, "what is alpha?", message)
	require.NotEmpty(t, history)
	assert.Equal(t, RoleModel, history[len(history)-1].Role)
	assert.Equal(t, []string{RoleUser, RoleModel, RoleUser, RoleModel}, roles(history))
	assert.Equal(t, SystemPrefix+"persona", history[0].Text())
	assert.Equal(t, SystemAck, history[1].Text())
	assert.Equal(t, ContextPrefix+"Context from a.md\nalpha", history[2].Text())
	assert.Equal(t, ContextAck, history[3].Text())
}

func TestMapHistory_ContextAfterPendingUser(t *testing.T) {
	history, message, err := MapHistory(turns(
		"system", "persona",
		"user", "first",
		"assistant", "answer one",
		"user", "second",
		"system", "Context from a.md\nalpha",
		"system", "Context from b.md\nbravo",
	))
	require.NoError(t, err)

	assert.Equal(t, "second", message)
	assert.Equal(t, RoleModel, history[len(history)-1].Role)
	for i := 1; i < len(history); i++ {
		assert.NotEqual(t, history[i-1].Role, history[i].Role, "roles must alternate at %d", i)
	}
	joined := ""
	for _, c := range history {
		joined += c.Text() + "|"
	}
	assert.Contains(t, joined, "first|answer one|")
	assert.Contains(t, joined, "bravo")
	assert.NotContains(t, joined, "second")
}

func TestMapHistory_PendingUserSentOnceAfterAllContext(t *testing.T) {
	history, message, err := MapHistory(turns(
		"system", "persona",
		"user", "q",
		"system", "ctx a",
		"system", "ctx b",
	))
	require.NoError(t, err)

	assert.Equal(t, "q", message)
	assert.Equal(t, []string{RoleUser, RoleModel, RoleUser, RoleModel, RoleUser, RoleModel}, roles(history))
	assert.Equal(t, ContextPrefix+"ctx a", history[2].Text())
	assert.Equal(t, ContextAck, history[3].Text())
	assert.Equal(t, ContextPrefix+"ctx b", history[4].Text())
	for _, c := range history {
		assert.NotEqual(t, "q", c.Text())
	}
}

func TestMapHistory_UnansweredEarlierUserFoldsIntoMessage(t *testing.T) {
	history, message, err := MapHistory(turns(
		"system", "persona",
		"user", "lost question",
		"user", "new question",
	))
	require.NoError(t, err)

	assert.Equal(t, RoleModel, history[len(history)-1].Role)
	assert.Equal(t, "lost question\n\nnew question", message)
}

func TestMapHistory_NoUserTurn(t *testing.T) {
	_, _, err := MapHistory(turns("system", "persona"))
	assert.ErrorIs(t, err, ErrNoUserTurn)
}

func TestMapHistory_DoesNotMutateInput(t *testing.T) {
	in := turns("system", "persona", "user", "q")
	snapshot := append([]model.Turn(nil), in...)
	_, _, err := MapHistory(in)
	require.NoError(t, err)
	assert.Equal(t, snapshot, in)
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestBuildRequest_Configuration(t *testing.T) {
	a := New(provider.NewHTTPDoer(provider.Limits{}, zerolog.Nop()), zerolog.Nop())
	conv := turns("system", "p", "user", "q")

	_, err := a.BuildRequest(conv, provider.ProviderConfig{Model: "gemini-pro"})
	assert.True(t, errors.Is(err, provider.ErrInvalidConfiguration))

	_, err = a.BuildRequest(conv, provider.ProviderConfig{APIKey: "k"})
	assert.True(t, errors.Is(err, provider.ErrInvalidConfiguration))

	req, err := a.BuildRequest(conv, provider.ProviderConfig{APIKey: "k", Model: "gemini-pro", MaxTokens: 1024})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL+"/v1beta/models/gemini-pro:streamGenerateContent?alt=sse", req.Endpoint)

	payload := req.Payload.(ChatPayload)
	body := payload.Body()
	assert.Equal(t, 1024, body.GenerationConfig.MaxOutputTokens)
	last := body.Contents[len(body.Contents)-1]
	assert.Equal(t, RoleUser, last.Role)
	assert.Equal(t, "q", last.Text())
}

func TestBuildCompletion_SingleContent(t *testing.T) {
	a := New(provider.NewHTTPDoer(provider.Limits{}, zerolog.Nop()), zerolog.Nop())
	req, err := a.BuildCompletion(provider.CompletionInput{Prompt: "Roses are red"},
		provider.ProviderConfig{APIKey: "k", Model: "gemini-pro", MaxTokens: 96})
	require.NoError(t, err)

	body := req.Payload.(ChatPayload).Body()
	require.Len(t, body.Contents, 1)
	assert.Equal(t, "Roses are red", body.Contents[0].Text())
}

// =============================================================================
// STREAMING
// =============================================================================

func chunk(text string, finish bool) string {
	candidate := map[string]any{
		"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
	}
	if finish {
		candidate["finishReason"] = "STOP"
	}
	data, _ := json.Marshal(map[string]any{"candidates": []any{candidate}})
	return "data: " + string(data) + "\r\n\r\n"
}

func newServerAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, provider.ProviderConfig) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	a := New(provider.NewHTTPDoer(provider.Limits{}, zerolog.Nop()), zerolog.Nop())
	return a, provider.ProviderConfig{BaseURL: server.URL, APIKey: "g-key", Model: "gemini-pro"}
}

func TestStream_Fragments(t *testing.T) {
	var gotKey, gotPath, gotContents atomic.Value
	a, cfg := newServerAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("x-goog-api-key"))
		gotPath.Store(r.URL.Path + "?" + r.URL.RawQuery)
		var body GenerateRequest
		json.NewDecoder(r.Body).Decode(&body)
		gotContents.Store(body.Contents)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("Hel", false))
		fmt.Fprint(w, `data: {"candidates":[{"content":{"role":"model"}}]}`+"\n\n")
		fmt.Fprint(w, chunk("loundefined", true))
	})

	req, err := a.BuildRequest(turns("system", "p", "user", "hi"), cfg)
	require.NoError(t, err)
	s, err := a.Stream(context.Background(), req)
	require.NoError(t, err)

	text, err := provider.Collect(s)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, "g-key", gotKey.Load())
	assert.Equal(t, "/v1beta/models/gemini-pro:streamGenerateContent?alt=sse", gotPath.Load())
	contents := gotContents.Load().([]Content)
	require.Len(t, contents, 3)
	assert.Equal(t, "hi", contents[2].Text())
}

func TestStream_InvalidKeyIsAuthentication(t *testing.T) {
	a, cfg := newServerAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}`)
	})

	req, err := a.BuildRequest(turns("user", "hi"), cfg)
	require.NoError(t, err)
	_, err = a.Stream(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrAuthentication), "got %v", err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestStream_ServerErrorIsTransport(t *testing.T) {
	a, cfg := newServerAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "overloaded")
	})

	req, err := a.BuildRequest(turns("user", "hi"), cfg)
	require.NoError(t, err)
	_, err = a.Stream(context.Background(), req)
	assert.True(t, errors.Is(err, provider.ErrTransport), "got %v", err)
}

func TestStream_MalformedEventKeepsPartial(t *testing.T) {
	a, cfg := newServerAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("partial", false))
		fmt.Fprint(w, "data: {not json\n\n")
	})

	req, err := a.BuildRequest(turns("user", "hi"), cfg)
	require.NoError(t, err)
	s, err := a.Stream(context.Background(), req)
	require.NoError(t, err)

	text, err := provider.Collect(s)
	assert.Equal(t, "partial", text)
	assert.True(t, errors.Is(err, provider.ErrMalformedResponse), "got %v", err)
}

func TestDecodeChunk_Blocked(t *testing.T) {
	_, err := decodeChunk([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "SAFETY"))
}
