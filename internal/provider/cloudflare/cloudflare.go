// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloudflare adapts Workers AI. The whole turn list goes out as one
// messages field and the answer comes back as one body, which the adapter
// exposes as a single-fragment stream.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/provider"
)

// DefaultBaseURL is the Cloudflare API root.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// Defaults applied when the configuration leaves them zero.
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.5
)

const (
	pathSuccess  = "success"
	pathResponse = "result.response"
	pathErrors   = "errors.0.message"
)

// Message is one turn of the messages payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RunRequest is the body of an ai/run call. Chat requests fill Messages;
// completions fill Prompt with Raw set.
type RunRequest struct {
	Messages    []Message `json:"messages,omitempty"`
	Prompt      string    `json:"prompt,omitempty"`
	Raw         bool      `json:"raw,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// Adapter talks to the Workers AI REST API.
type Adapter struct {
	doer   *provider.HTTPDoer
	logger zerolog.Logger
}

// New creates the Workers AI adapter.
func New(doer *provider.HTTPDoer, logger zerolog.Logger) *Adapter {
	return &Adapter{
		doer:   doer,
		logger: logger.With().Str("provider", provider.NameCloudflare).Logger(),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return provider.NameCloudflare
}

// ModelPath returns the model segment of the run URL. Bare names are
// Hugging Face models and get the "@hf/" namespace.
func ModelPath(name string) string {
	if strings.HasPrefix(name, "@") {
		return name
	}
	return "@hf/" + name
}

func (a *Adapter) endpoint(cfg provider.ProviderConfig, modelName string) (string, error) {
	if cfg.AccountID == "" {
		return "", provider.Missing(provider.NameCloudflare, "account_id")
	}
	if cfg.APIKey == "" {
		return "", provider.Missing(provider.NameCloudflare, "api_key")
	}
	if modelName == "" {
		return "", provider.Missing(provider.NameCloudflare, "model")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return "", provider.Invalid(provider.NameCloudflare, "base_url", err.Error())
	}
	return fmt.Sprintf("%s/accounts/%s/ai/run/%s", base, url.PathEscape(cfg.AccountID), ModelPath(modelName)), nil
}

func budget(cfg provider.ProviderConfig) (int, float64) {
	maxTokens, temperature := cfg.MaxTokens, cfg.Temperature
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return maxTokens, temperature
}

// BuildRequest serializes the turns into the messages field unchanged.
func (a *Adapter) BuildRequest(turns []model.Turn, cfg provider.ProviderConfig) (*provider.Request, error) {
	ep, err := a.endpoint(cfg, cfg.Model)
	if err != nil {
		return nil, err
	}
	messages := make([]Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, Message{Role: string(t.Role), Content: t.Content})
	}
	maxTokens, temperature := budget(cfg)
	body := RunRequest{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	return provider.NewRequest(provider.NameCloudflare, cfg.Model, ep, cfg.APIKey, body), nil
}

// BuildCompletion sends the document prompt raw, without a chat template.
func (a *Adapter) BuildCompletion(in provider.CompletionInput, cfg provider.ProviderConfig) (*provider.Request, error) {
	modelName := cfg.CompletionModel
	if modelName == "" {
		modelName = cfg.Model
	}
	ep, err := a.endpoint(cfg, modelName)
	if err != nil {
		return nil, err
	}
	maxTokens, temperature := budget(cfg)
	body := RunRequest{
		Prompt:      in.Prompt,
		Raw:         true,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	return provider.NewRequest(provider.NameCloudflare, modelName, ep, cfg.APIKey, body), nil
}

// Stream posts the request and returns the full answer as one fragment.
func (a *Adapter) Stream(ctx context.Context, req *provider.Request) (provider.Stream, error) {
	payload, ok := req.Payload.(RunRequest)
	if !ok {
		return nil, provider.Invalid(provider.NameCloudflare, "request", "not built by this adapter")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, provider.Invalid(provider.NameCloudflare, "base_url", err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential())

	resp, err := a.doer.Do(httpReq)
	if err != nil {
		return nil, provider.Classify(provider.NameCloudflare, err)
	}
	defer resp.Body.Close()

	body, err := provider.ReadBody(resp)
	if err != nil {
		return nil, provider.Classify(provider.NameCloudflare, err)
	}
	if !provider.IsSuccess(resp.StatusCode) {
		return nil, provider.StatusError(provider.NameCloudflare, resp.StatusCode, body)
	}

	text, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("model", req.Model).Int("chars", len(text)).Msg("received response")
	return provider.NewSingleStream(text), nil
}

// decodeBody extracts result.response. A body without it is not a Workers
// AI answer.
func decodeBody(body []byte) (string, error) {
	if !provider.ValidJSON(body) {
		return "", provider.Malformed(provider.NameCloudflare, "response is not a JSON object", nil)
	}
	if provider.Has(body, pathSuccess) && provider.Fragment(body, pathSuccess) != "true" {
		msg := provider.Fragment(body, pathErrors)
		if msg == "" {
			msg = "request was not successful"
		}
		return "", provider.Malformed(provider.NameCloudflare, msg, nil)
	}
	if !provider.Has(body, pathResponse) {
		return "", provider.Malformed(provider.NameCloudflare, "response has no result.response", nil)
	}
	return provider.StripAbsentArtifact(provider.Fragment(body, pathResponse), true), nil
}
