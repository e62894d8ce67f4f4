// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package google adapts the Gemini generative-language API.
//
// Gemini has no system role and wants the new user query last, so turns
// are rewritten: the persona becomes a "System prompt:" user turn with a
// model acknowledgement, every attachment becomes a "Context from one of
// my notes:" user turn with its own acknowledgement, and the most recent
// user turn is held out and sent as the new message after all of them.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/provider"
)

// DefaultBaseURL is the public Gemini endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

const (
	SystemPrefix  = "System prompt: "
	SystemAck     = "Understood. I will follow this guide."
	ContextPrefix = "Context from one of my notes: "
	ContextAck    = "I will use this information to answer your question. I will not refer to the note directly when speaking to you."
)

// Gemini roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// JSON paths into a streamed GenerateContentResponse.
const (
	pathText         = "candidates.0.content.parts.#.text"
	pathFinishReason = "candidates.0.finishReason"
	pathBlockReason  = "promptFeedback.blockReason"
	pathError        = "error.message"
)

// ErrNoUserTurn is returned when there is nothing to send as the new message.
var ErrNoUserTurn = errors.New("google: conversation has no user turn")

// =============================================================================
// WIRE TYPES
// =============================================================================

// Part is one piece of a content turn.
type Part struct {
	Text string `json:"text"`
}

// Content is one Gemini turn.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

func text(role, s string) Content {
	return Content{Role: role, Parts: []Part{{Text: s}}}
}

// Text returns the concatenated text of all parts.
func (c Content) Text() string {
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// GenerationConfig bounds the generated output.
type GenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

// GenerateRequest is the streamGenerateContent body.
type GenerateRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// ChatPayload is what BuildRequest produces: the mapped history and the
// held-out new message.
type ChatPayload struct {
	History []Content
	Message string
	Config  GenerationConfig
}

// Body assembles the wire request: history followed by the new message.
func (p ChatPayload) Body() GenerateRequest {
	contents := make([]Content, 0, len(p.History)+1)
	contents = append(contents, p.History...)
	contents = append(contents, text(RoleUser, p.Message))
	cfg := p.Config
	return GenerateRequest{Contents: contents, GenerationConfig: &cfg}
}

// =============================================================================
// HISTORY MAPPING
// =============================================================================

// MapHistory rewrites canonical turns into Gemini history plus the new
// message. The returned history alternates user and model turns and ends
// with a model turn (or is empty).
func MapHistory(turns []model.Turn) ([]Content, string, error) {
	last := -1
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == model.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return nil, "", ErrNoUserTurn
	}

	var history []Content
	seenSystem := false
	for i, t := range turns {
		switch t.Role {
		case model.RoleSystem:
			if !seenSystem {
				seenSystem = true
				history = append(history, text(RoleUser, SystemPrefix+t.Content), text(RoleModel, SystemAck))
			} else {
				history = append(history, text(RoleUser, ContextPrefix+t.Content), text(RoleModel, ContextAck))
			}
		case model.RoleUser:
			if i == last {
				continue
			}
			history = append(history, text(RoleUser, t.Content))
		case model.RoleAssistant:
			history = append(history, text(RoleModel, t.Content))
		}
	}

	history = mergeAdjacent(history)
	message := turns[last].Content

	// An unanswered earlier user turn would leave history ending in a user
	// turn; fold it into the new message instead.
	if n := len(history); n > 0 && history[n-1].Role == RoleUser {
		message = history[n-1].Text() + "\n\n" + message
		history = history[:n-1]
	}
	return history, message, nil
}

// mergeAdjacent joins consecutive turns with the same role.
func mergeAdjacent(in []Content) []Content {
	out := make([]Content, 0, len(in))
	for _, c := range in {
		if n := len(out); n > 0 && out[n-1].Role == c.Role {
			out[n-1] = text(c.Role, out[n-1].Text()+"\n\n"+c.Text())
			continue
		}
		out = append(out, c)
	}
	return out
}

// =============================================================================
// ADAPTER
// =============================================================================

// Adapter talks to the Gemini REST API.
type Adapter struct {
	doer   *provider.HTTPDoer
	logger zerolog.Logger
}

// New creates the Gemini adapter.
func New(doer *provider.HTTPDoer, logger zerolog.Logger) *Adapter {
	return &Adapter{
		doer:   doer,
		logger: logger.With().Str("provider", provider.NameGoogle).Logger(),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return provider.NameGoogle
}

func endpoint(cfg provider.ProviderConfig, modelName string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return "", provider.Invalid(provider.NameGoogle, "base_url", err.Error())
	}
	return fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", base, url.PathEscape(modelName)), nil
}

func generationConfig(cfg provider.ProviderConfig) GenerationConfig {
	gc := GenerationConfig{MaxOutputTokens: cfg.MaxTokens}
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		gc.Temperature = &t
	}
	return gc
}

func (a *Adapter) build(cfg provider.ProviderConfig, modelName string, payload ChatPayload) (*provider.Request, error) {
	if cfg.APIKey == "" {
		return nil, provider.Missing(provider.NameGoogle, "api_key")
	}
	if modelName == "" {
		return nil, provider.Missing(provider.NameGoogle, "model")
	}
	ep, err := endpoint(cfg, modelName)
	if err != nil {
		return nil, err
	}
	return provider.NewRequest(provider.NameGoogle, modelName, ep, cfg.APIKey, payload), nil
}

// BuildRequest maps the conversation with MapHistory.
func (a *Adapter) BuildRequest(turns []model.Turn, cfg provider.ProviderConfig) (*provider.Request, error) {
	if cfg.APIKey == "" {
		return nil, provider.Missing(provider.NameGoogle, "api_key")
	}
	history, message, err := MapHistory(turns)
	if err != nil {
		return nil, err
	}
	return a.build(cfg, cfg.Model, ChatPayload{
		History: history,
		Message: message,
		Config:  generationConfig(cfg),
	})
}

// BuildCompletion sends the document prompt as a single user turn.
func (a *Adapter) BuildCompletion(in provider.CompletionInput, cfg provider.ProviderConfig) (*provider.Request, error) {
	modelName := cfg.CompletionModel
	if modelName == "" {
		modelName = cfg.Model
	}
	return a.build(cfg, modelName, ChatPayload{
		Message: in.Prompt,
		Config:  generationConfig(cfg),
	})
}

// Stream posts the request and reads the SSE response.
func (a *Adapter) Stream(ctx context.Context, req *provider.Request) (provider.Stream, error) {
	payload, ok := req.Payload.(ChatPayload)
	if !ok {
		return nil, provider.Invalid(provider.NameGoogle, "request", "not built by this adapter")
	}

	body, err := json.Marshal(payload.Body())
	if err != nil {
		return nil, fmt.Errorf("google: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, provider.Invalid(provider.NameGoogle, "base_url", err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-goog-api-key", req.Credential())

	resp, err := a.doer.Do(httpReq)
	if err != nil {
		return nil, provider.Classify(provider.NameGoogle, err)
	}
	if !provider.IsSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		data, _ := provider.ReadBody(resp)
		return nil, statusError(resp.StatusCode, data)
	}

	a.logger.Debug().Str("model", req.Model).Int("history", len(payload.History)).Msg("opened stream")
	reader := provider.NewSSEReader(resp.Body)
	return provider.NewStream(func() (string, error) {
		_, data, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", provider.Classify(provider.NameGoogle, err)
		}
		return decodeChunk(data)
	}, resp.Body.Close), nil
}

// decodeChunk extracts the text of one streamed response. Missing parts
// are an empty fragment.
func decodeChunk(data []byte) (string, error) {
	if !provider.ValidJSON(data) {
		return "", provider.Malformed(provider.NameGoogle, "stream event is not a JSON object", nil)
	}
	if provider.Has(data, pathError) {
		return "", provider.Malformed(provider.NameGoogle, provider.Fragment(data, pathError), nil)
	}
	if reason := provider.Fragment(data, pathBlockReason); reason != "" {
		return "", provider.Malformed(provider.NameGoogle, "prompt blocked: "+reason, nil)
	}
	fragment := provider.JoinFragments(data, pathText)
	return provider.StripAbsentArtifact(fragment, provider.Has(data, pathFinishReason)), nil
}

// statusError classifies a failed response. Gemini rejects bad keys with
// 400 INVALID_ARGUMENT rather than 401.
func statusError(status int, body []byte) error {
	if status == http.StatusBadRequest && bytes.Contains(body, []byte("API_KEY_INVALID")) {
		return &provider.Error{
			Kind:     provider.KindAuthentication,
			Provider: provider.NameGoogle,
			Status:   status,
			Message:  provider.ErrorMessage(body),
		}
	}
	return provider.StatusError(provider.NameGoogle, status, body)
}
