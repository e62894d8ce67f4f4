// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one conversation against the configured backends.
//
// A Session owns the model.Conversation and serializes every mutation of
// it. Send and Expand each run one stream.Job; while a job is in flight a
// second one is rejected with ErrBusy instead of being queued. A failed
// or cancelled chat job still appends whatever text arrived, as long as a
// stream was opened.
//
// # Key Types
//
//   - Session: busy guard, send, expand, attachments, reset and edit
//   - ConfigSource: where per-call provider settings come from
//   - NoteSource: where attachments are read from
//   - Result: text and job summary of one request
//
// # Usage
//
//	s := session.New(session.Options{
//	    Registry: backends.NewRegistry(doer, logger),
//	    Config:   cfg,
//	    Notes:    notesVault,
//	    Recorder: usageStore,
//	    Logger:   logger,
//	})
//	res, err := s.Send(ctx, "summarize my notes", view)
package session
