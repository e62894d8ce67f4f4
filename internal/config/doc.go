// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves askai settings.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and structural validation. Credentials
// are not checked at load time: the selected adapter reports a missing
// key when a request is built.
//
// # Key Types
//
//   - Config: the whole file
//   - BackendConfig: key, endpoint, model and budgets of one backend
//   - ProviderSelection: which backend serves chat and which serves expand
//
// # Configuration Precedence
//
//   - Environment variables (ASKAI_*)
//   - ~/.askai/config.toml (or $ASKAI_HOME/config.toml)
//   - ~/.askai/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	pc := cfg.ChatProvider()
//	adapter, err := registry.Lookup(pc.Provider)
package config
