// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/provider"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func sseChunk(content string, finish string) string {
	delta := map[string]any{}
	if content != "" {
		delta["content"] = content
	}
	choice := map[string]any{"index": 0, "delta": delta}
	if finish != "" {
		choice["finish_reason"] = finish
	}
	data, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion.chunk",
		"model":   "gpt-3.5-turbo",
		"choices": []any{choice},
	})
	return "data: " + string(data) + "\n\n"
}

func newTestAdapter(flavor Flavor) *Adapter {
	return New(flavor, provider.NewHTTPDoer(provider.Limits{}, zerolog.Nop()), zerolog.Nop())
}

func sampleTurns() []model.Turn {
	return []model.Turn{
		model.NewTurn(model.RoleSystem, "persona"),
		model.NewTurn(model.RoleUser, "hi"),
		model.NewTurn(model.RoleAssistant, "hello"),
		model.NewTurn(model.RoleUser, "again"),
		model.NewTurn(model.RoleSystem, "Context from a.md\nalpha"),
	}
}

// =============================================================================
// REQUEST BUILDING
// =============================================================================

func TestBuildRequest_MapsRolesVerbatim(t *testing.T) {
	a := newTestAdapter(OpenAI)
	cfg := provider.ProviderConfig{APIKey: "sk-test", Model: "gpt-3.5-turbo"}

	req, err := a.BuildRequest(sampleTurns(), cfg)
	require.NoError(t, err)

	payload, ok := req.Payload.(goopenai.ChatCompletionRequest)
	require.True(t, ok)
	require.Len(t, payload.Messages, 5)
	for i, turn := range sampleTurns() {
		assert.Equal(t, string(turn.Role), payload.Messages[i].Role)
		assert.Equal(t, turn.Content, payload.Messages[i].Content)
	}
	assert.Equal(t, "https://api.openai.com/v1", req.Endpoint)
	assert.Equal(t, "sk-test", req.Credential())
}

func TestBuildRequest_Configuration(t *testing.T) {
	tests := []struct {
		name    string
		flavor  Flavor
		cfg     provider.ProviderConfig
		wantErr bool
	}{
		{"openai missing key", OpenAI, provider.ProviderConfig{Model: "m"}, true},
		{"openai missing model", OpenAI, provider.ProviderConfig{APIKey: "k"}, true},
		{"groq ok", Groq, provider.ProviderConfig{APIKey: "k", Model: "llama3-8b-8192"}, false},
		{"custom missing url", Custom, provider.ProviderConfig{}, true},
		{"custom bad url", Custom, provider.ProviderConfig{BaseURL: "localhost:5001"}, true},
		{"custom no key no model", Custom, provider.ProviderConfig{BaseURL: "http://localhost:5001/v1"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestAdapter(tc.flavor).BuildRequest(sampleTurns(), tc.cfg)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, provider.ErrInvalidConfiguration), "got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBuildCompletion_LegacyUsesSuffix(t *testing.T) {
	a := newTestAdapter(OpenAI)
	cfg := provider.ProviderConfig{APIKey: "k", Model: "gpt-3.5-turbo", CompletionModel: "gpt-3.5-turbo-instruct", MaxTokens: 96}

	req, err := a.BuildCompletion(provider.CompletionInput{Prompt: "Dear", Suffix: " regards"}, cfg)
	require.NoError(t, err)

	payload, ok := req.Payload.(goopenai.CompletionRequest)
	require.True(t, ok)
	assert.Equal(t, "gpt-3.5-turbo-instruct", payload.Model)
	assert.Equal(t, "Dear", payload.Prompt)
	assert.Equal(t, " regards", payload.Suffix)
	assert.Equal(t, 96, payload.MaxTokens)
}

func TestBuildCompletion_ContinuationChat(t *testing.T) {
	a := newTestAdapter(Groq)
	cfg := provider.ProviderConfig{APIKey: "k", Model: "llama3-8b-8192", MaxTokens: 96}

	req, err := a.BuildCompletion(provider.CompletionInput{Prompt: "Once upon"}, cfg)
	require.NoError(t, err)

	payload, ok := req.Payload.(goopenai.ChatCompletionRequest)
	require.True(t, ok)
	require.Len(t, payload.Messages, 2)
	assert.Equal(t, provider.ContinuationPrompt, payload.Messages[0].Content)
	assert.Equal(t, "Once upon", payload.Messages[1].Content)
	assert.Equal(t, []string{"\n\n"}, payload.Stop)
}

// =============================================================================
// STREAMING
// =============================================================================

func TestStream_ChatFragments(t *testing.T) {
	var auth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Hel", ""))
		fmt.Fprint(w, sseChunk("", ""))
		fmt.Fprint(w, sseChunk("lo", ""))
		fmt.Fprint(w, sseChunk("undefined", "stop"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	a := newTestAdapter(OpenAI)
	req, err := a.BuildRequest(sampleTurns(), provider.ProviderConfig{BaseURL: server.URL + "/v1", APIKey: "sk-test", Model: "gpt-3.5-turbo"})
	require.NoError(t, err)

	s, err := a.Stream(context.Background(), req)
	require.NoError(t, err)

	text, err := provider.Collect(s)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, "Bearer sk-test", auth.Load())
}

func TestStream_AuthenticationFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	a := newTestAdapter(OpenRouter)
	req, err := a.BuildRequest(sampleTurns(), provider.ProviderConfig{BaseURL: server.URL, APIKey: "bad", Model: "m"})
	require.NoError(t, err)

	_, err = a.Stream(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrAuthentication), "got %v", err)
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestStream_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	a := newTestAdapter(Groq)
	req, err := a.BuildRequest(sampleTurns(), provider.ProviderConfig{BaseURL: url, APIKey: "k", Model: "m"})
	require.NoError(t, err)

	_, err = a.Stream(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrTransport), "got %v", err)
}

func TestStream_CustomDiscoversModel(t *testing.T) {
	var listed, chatModel atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/models") {
			listed.Store(true)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"object":"list","data":[{"id":"local-llama","object":"model"},{"id":"other","object":"model"}]}`)
			return
		}
		var body struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		chatModel.Store(body.Model)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("ok", "stop"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	a := newTestAdapter(Custom)
	req, err := a.BuildRequest(sampleTurns(), provider.ProviderConfig{BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	s, err := a.Stream(context.Background(), req)
	require.NoError(t, err)
	text, err := provider.Collect(s)
	require.NoError(t, err)

	assert.Equal(t, "ok", text)
	assert.Equal(t, true, listed.Load())
	assert.Equal(t, "local-llama", chatModel.Load())
}

func TestStream_LegacyCompletion(t *testing.T) {
	var suffix atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/completions"))
		var body struct {
			Suffix string `json:"suffix"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		suffix.Store(body.Suffix)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"c1","object":"text_completion","choices":[{"index":0,"text":" friend"}]}`+"\n\n")
		fmt.Fprint(w, `data: {"id":"c1","object":"text_completion","choices":[{"index":0,"text":",","finish_reason":"length"}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	a := newTestAdapter(OpenAI)
	req, err := a.BuildCompletion(provider.CompletionInput{Prompt: "Dear", Suffix: "\nBye"},
		provider.ProviderConfig{BaseURL: server.URL, APIKey: "k", CompletionModel: "gpt-3.5-turbo-instruct", MaxTokens: 96})
	require.NoError(t, err)

	s, err := a.Stream(context.Background(), req)
	require.NoError(t, err)
	text, err := provider.Collect(s)
	require.NoError(t, err)

	assert.Equal(t, " friend,", text)
	assert.Equal(t, "\nBye", suffix.Load())
}

func TestStream_RejectsForeignPayload(t *testing.T) {
	a := newTestAdapter(OpenAI)
	req := provider.NewRequest("openai", "m", "http://localhost", "k", "not a request")
	_, err := a.Stream(context.Background(), req)
	assert.True(t, errors.Is(err, provider.ErrInvalidConfiguration))
}

func TestStream_EndsWithEOF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("x", "stop"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	a := newTestAdapter(OpenAI)
	req, err := a.BuildRequest(sampleTurns(), provider.ProviderConfig{BaseURL: server.URL, APIKey: "k", Model: "m"})
	require.NoError(t, err)
	s, err := a.Stream(context.Background(), req)
	require.NoError(t, err)
	defer s.Close()

	first, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "x", first)

	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
}
