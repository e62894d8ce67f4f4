// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the contract between a conversation and the AI
// backends that answer it.
//
// Every backend implements Adapter: it turns a snapshot of conversation
// turns into a Request in the backend's own shape, and opens a Stream that
// yields plain text fragments. Backends that can also continue a document
// at a cursor implement Completer.
//
// # Key Types
//
//   - Adapter / Completer: per-backend request building and streaming
//   - ProviderConfig: endpoint, credential, model and budgets for one call
//   - Stream: lazy, finite, non-restartable sequence of text fragments
//   - Error: failure tagged with an ErrorKind (configuration, transport,
//     authentication, malformed response)
//   - HTTPDoer: shared rate-limited HTTP client used by every backend
//   - Registry: adapter lookup by configured provider name
//
// # Usage
//
//	adapter, err := registry.Lookup(cfg.Provider)
//	req, err := adapter.BuildRequest(conv.Snapshot(), cfg)
//	s, err := adapter.Stream(ctx, req)
//	defer s.Close()
//	for {
//	    fragment, err := s.Recv()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package provider
