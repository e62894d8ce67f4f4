// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai adapts the OpenAI-compatible family of backends: OpenAI
// itself, OpenRouter, Groq and any self-hosted endpoint speaking the same
// API. Roles map one to one and the turn list is sent verbatim.
package openai

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/provider"
)

// =============================================================================
// FLAVORS
// =============================================================================

// Flavor describes how one OpenAI-compatible backend differs from the rest.
type Flavor struct {
	Name           string
	DefaultBaseURL string

	// KeyOptional allows an empty API key (self-hosted servers).
	KeyOptional bool

	// DiscoverModel picks the first listed model when none is configured.
	DiscoverModel bool

	// LegacyCompletions sends inline completions to the completions
	// endpoint with prompt and suffix. Otherwise a chat request with the
	// continuation prompt is used.
	LegacyCompletions bool
}

var (
	OpenAI = Flavor{
		Name:              provider.NameOpenAI,
		DefaultBaseURL:    "https://api.openai.com/v1",
		LegacyCompletions: true,
	}
	OpenRouter = Flavor{
		Name:           provider.NameOpenRouter,
		DefaultBaseURL: "https://openrouter.ai/api/v1",
	}
	Groq = Flavor{
		Name:           provider.NameGroq,
		DefaultBaseURL: "https://api.groq.com/openai/v1",
	}
	Custom = Flavor{
		Name:          provider.NameCustom,
		KeyOptional:   true,
		DiscoverModel: true,
	}
)

// =============================================================================
// ADAPTER
// =============================================================================

// Adapter serves one Flavor.
type Adapter struct {
	flavor Flavor
	doer   goopenai.HTTPDoer
	logger zerolog.Logger

	mu         sync.Mutex
	discovered map[string]string // base URL -> first listed model
}

// New creates an adapter for flavor. doer is normally a *provider.HTTPDoer.
func New(flavor Flavor, doer goopenai.HTTPDoer, logger zerolog.Logger) *Adapter {
	return &Adapter{
		flavor:     flavor,
		doer:       doer,
		logger:     logger.With().Str("provider", flavor.Name).Logger(),
		discovered: make(map[string]string),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return a.flavor.Name
}

func (a *Adapter) baseURL(cfg provider.ProviderConfig) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = a.flavor.DefaultBaseURL
	}
	if base == "" {
		return "", provider.Missing(a.flavor.Name, "base_url")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return "", provider.Invalid(a.flavor.Name, "base_url", "must start with http:// or https://")
	}
	return base, nil
}

func (a *Adapter) checkKey(cfg provider.ProviderConfig) error {
	if cfg.APIKey == "" && !a.flavor.KeyOptional {
		return provider.Missing(a.flavor.Name, "api_key")
	}
	return nil
}

// BuildRequest maps turns to a streaming chat completion request.
func (a *Adapter) BuildRequest(turns []model.Turn, cfg provider.ProviderConfig) (*provider.Request, error) {
	base, err := a.baseURL(cfg)
	if err != nil {
		return nil, err
	}
	if err := a.checkKey(cfg); err != nil {
		return nil, err
	}
	if cfg.Model == "" && !a.flavor.DiscoverModel {
		return nil, provider.Missing(a.flavor.Name, "model")
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}

	req := goopenai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: float32(cfg.Temperature),
	}
	return provider.NewRequest(a.flavor.Name, cfg.Model, base, cfg.APIKey, req), nil
}

// BuildCompletion maps document context to an inline completion request.
func (a *Adapter) BuildCompletion(in provider.CompletionInput, cfg provider.ProviderConfig) (*provider.Request, error) {
	base, err := a.baseURL(cfg)
	if err != nil {
		return nil, err
	}
	if err := a.checkKey(cfg); err != nil {
		return nil, err
	}

	modelName := cfg.CompletionModel
	if modelName == "" {
		modelName = cfg.Model
	}
	if modelName == "" && !a.flavor.DiscoverModel {
		return nil, provider.Missing(a.flavor.Name, "completion model")
	}

	if a.flavor.LegacyCompletions {
		req := goopenai.CompletionRequest{
			Model:       modelName,
			Prompt:      in.Prompt,
			Suffix:      in.Suffix,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
		}
		return provider.NewRequest(a.flavor.Name, modelName, base, cfg.APIKey, req), nil
	}

	req := goopenai.ChatCompletionRequest{
		Model: modelName,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: provider.ContinuationPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: in.Prompt},
		},
		Stop:        []string{provider.ContinuationStop},
		MaxTokens:   cfg.MaxTokens,
		Temperature: float32(cfg.Temperature),
	}
	return provider.NewRequest(a.flavor.Name, modelName, base, cfg.APIKey, req), nil
}

func (a *Adapter) client(req *provider.Request) *goopenai.Client {
	config := goopenai.DefaultConfig(req.Credential())
	config.BaseURL = req.Endpoint
	if a.doer != nil {
		config.HTTPClient = a.doer
	}
	return goopenai.NewClientWithConfig(config)
}

// Stream sends a request built by this adapter.
func (a *Adapter) Stream(ctx context.Context, req *provider.Request) (provider.Stream, error) {
	client := a.client(req)

	switch payload := req.Payload.(type) {
	case goopenai.ChatCompletionRequest:
		if payload.Model == "" {
			m, err := a.discoverModel(ctx, client, req.Endpoint)
			if err != nil {
				return nil, err
			}
			payload.Model = m
		}
		a.logger.Debug().Str("model", payload.Model).Int("messages", len(payload.Messages)).Msg("opening chat stream")

		s, err := client.CreateChatCompletionStream(ctx, payload)
		if err != nil {
			return nil, a.classify(err)
		}
		return provider.NewStream(func() (string, error) {
			resp, err := s.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return "", io.EOF
				}
				return "", a.classify(err)
			}
			if len(resp.Choices) == 0 {
				return "", nil
			}
			choice := resp.Choices[0]
			return provider.StripAbsentArtifact(choice.Delta.Content, choice.FinishReason != ""), nil
		}, s.Close), nil

	case goopenai.CompletionRequest:
		if payload.Model == "" {
			m, err := a.discoverModel(ctx, client, req.Endpoint)
			if err != nil {
				return nil, err
			}
			payload.Model = m
		}
		a.logger.Debug().Str("model", payload.Model).Msg("opening completion stream")

		s, err := client.CreateCompletionStream(ctx, payload)
		if err != nil {
			return nil, a.classify(err)
		}
		return provider.NewStream(func() (string, error) {
			resp, err := s.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return "", io.EOF
				}
				return "", a.classify(err)
			}
			if len(resp.Choices) == 0 {
				return "", nil
			}
			choice := resp.Choices[0]
			return provider.StripAbsentArtifact(choice.Text, choice.FinishReason != ""), nil
		}, s.Close), nil

	default:
		return nil, provider.Invalid(a.flavor.Name, "request", "not built by this adapter")
	}
}

// discoverModel returns the first model the endpoint lists, cached per
// base URL.
func (a *Adapter) discoverModel(ctx context.Context, client *goopenai.Client, base string) (string, error) {
	a.mu.Lock()
	cached, ok := a.discovered[base]
	a.mu.Unlock()
	if ok {
		return cached, nil
	}

	list, err := client.ListModels(ctx)
	if err != nil {
		return "", a.classify(err)
	}
	if len(list.Models) == 0 || list.Models[0].ID == "" {
		return "", provider.Malformed(a.flavor.Name, "endpoint lists no models", nil)
	}

	id := list.Models[0].ID
	a.mu.Lock()
	a.discovered[base] = id
	a.mu.Unlock()
	a.logger.Info().Str("model", id).Str("base_url", base).Msg("discovered model")
	return id, nil
}

// classify maps go-openai errors onto provider error kinds.
func (a *Adapter) classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &provider.Error{
			Kind:     provider.KindForStatus(apiErr.HTTPStatusCode),
			Provider: a.flavor.Name,
			Status:   apiErr.HTTPStatusCode,
			Message:  apiErr.Message,
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if len(reqErr.Body) > 0 {
			msg = provider.ErrorMessage(reqErr.Body)
		}
		return &provider.Error{
			Kind:     provider.KindForStatus(reqErr.HTTPStatusCode),
			Provider: a.flavor.Name,
			Status:   reqErr.HTTPStatusCode,
			Message:  msg,
			Cause:    reqErr.Err,
		}
	}
	if errors.Is(err, goopenai.ErrTooManyEmptyStreamMessages) {
		return provider.Malformed(a.flavor.Name, "stream sent only empty messages", err)
	}
	return provider.Classify(a.flavor.Name, err)
}
