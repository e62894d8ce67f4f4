// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backends wires every supported adapter into one registry.
package backends

import (
	"github.com/rs/zerolog"

	"github.com/jeranaias/askai/internal/provider"
	"github.com/jeranaias/askai/internal/provider/cloudflare"
	"github.com/jeranaias/askai/internal/provider/google"
	"github.com/jeranaias/askai/internal/provider/openai"
)

// NewRegistry returns a registry with all adapters sharing doer.
func NewRegistry(doer *provider.HTTPDoer, logger zerolog.Logger) *provider.Registry {
	return provider.NewRegistry(
		openai.New(openai.OpenAI, doer, logger),
		openai.New(openai.OpenRouter, doer, logger),
		openai.New(openai.Groq, doer, logger),
		openai.New(openai.Custom, doer, logger),
		google.New(doer, logger),
		cloudflare.New(doer, logger),
	)
}
