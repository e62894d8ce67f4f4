// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream applies provider output to where the user sees it.
//
// A Reconciler drains one provider.Stream into one Sink and is then spent.
// AppendSink republishes the growing reply after every fragment.
// SpliceSink freezes a document and cursor offset when the job starts and
// rewrites the whole document as prefix + reply + suffix on every fragment;
// edits made to the document while the job runs are overwritten.
//
// A Job wraps one request: it owns the cancel function, records status and
// timing, and always hands back the partial text on failure.
//
// # Usage
//
//	job := stream.NewJob(stream.KindChat, "openai", "gpt-3.5-turbo")
//	text, err := job.Run(ctx, func(ctx context.Context) (provider.Stream, error) {
//	    return adapter.Stream(ctx, req)
//	}, stream.NewReconciler(stream.NewAppendSink(view)))
//	conv.AppendAssistant(text) // even when err != nil
package stream
