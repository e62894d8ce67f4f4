// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"

	"github.com/jeranaias/askai/internal/model"
)

// Provider names accepted in configuration.
const (
	NameOpenAI     = "openai"
	NameOpenRouter = "openrouter"
	NameGroq       = "groq"
	NameCustom     = "custom"
	NameGoogle     = "google"
	NameCloudflare = "cloudflare"
)

// KnownNames lists every provider name in display order.
var KnownNames = []string{NameOpenAI, NameOpenRouter, NameGroq, NameCustom, NameGoogle, NameCloudflare}

// IsKnown reports whether name is a supported provider.
func IsKnown(name string) bool {
	for _, n := range KnownNames {
		if n == name {
			return true
		}
	}
	return false
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// ProviderConfig carries everything one call needs. It is validated by the
// adapter when a request is built, never when configuration is loaded.
type ProviderConfig struct {
	Provider string

	BaseURL   string
	APIKey    string
	AccountID string

	Model           string
	CompletionModel string

	MaxTokens   int
	Temperature float64
}

// MaskedKey returns the API key with all but the last four characters hidden.
func (c ProviderConfig) MaskedKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) <= 8 {
		return "****"
	}
	return "****" + c.APIKey[len(c.APIKey)-4:]
}

// =============================================================================
// REQUESTS
// =============================================================================

// Request is a fully built call for one backend. Payload holds the
// backend-specific body and is only meaningful to the adapter that built it.
type Request struct {
	Provider string
	Model    string
	Endpoint string
	Payload  any

	credential string
}

// NewRequest creates a request carrying the credential used to send it.
func NewRequest(provider, model, endpoint, credential string, payload any) *Request {
	return &Request{
		Provider:   provider,
		Model:      model,
		Endpoint:   endpoint,
		Payload:    payload,
		credential: credential,
	}
}

// Credential returns the credential the request will be sent with.
func (r *Request) Credential() string {
	return r.credential
}

// CompletionInput is the document context for an inline completion.
type CompletionInput struct {
	// Prompt is the document text up to the end of the cursor's line.
	Prompt string
	// Suffix is the document text after the cursor.
	Suffix string
}

// =============================================================================
// ADAPTER CONTRACT
// =============================================================================

// Adapter maps a conversation onto one backend.
type Adapter interface {
	// Name returns the provider name this adapter serves.
	Name() string

	// BuildRequest encodes the entire turn sequence. The turns are a
	// snapshot and must not be modified.
	BuildRequest(turns []model.Turn, cfg ProviderConfig) (*Request, error)

	// Stream sends the request and returns its output as text fragments.
	Stream(ctx context.Context, req *Request) (Stream, error)
}

// Completer is implemented by adapters that can continue a document.
// Requests it builds are sent with the adapter's Stream method.
type Completer interface {
	BuildCompletion(in CompletionInput, cfg ProviderConfig) (*Request, error)
}

// ContinuationPrompt instructs chat models to act as a completion model.
const ContinuationPrompt = "Continue the user's words. All you do is guess what the user will write next. " +
	"DO NOT respond as an assistant. DO NOT converse. ONLY guess what the user will write next."

// ContinuationStop ends a continuation at the first blank line.
const ContinuationStop = "\n\n"
