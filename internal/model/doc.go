// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation state shared by every provider.
//
// A Conversation is an ordered sequence of turns that always starts with the
// persona system turn, plus a set of named attachments. Attachments are not
// turns: they are materialized into "Context from" system turns immediately
// before each provider call, replacing whatever context turns the previous
// call left behind.
//
// # Key Types
//
//   - Conversation: ordered turns plus attachments, mutated only by its own methods
//   - Turn: one message tagged with a Role
//   - Attachment: note text keyed by display name
//   - EditReconciler: propagates an in-place edit of rendered reply text back into the turns
//
// # Usage
//
//	conv := model.NewConversation(model.DefaultPersona)
//	if err := conv.AppendUser(input); errors.Is(err, model.ErrEmptyInput) {
//	    return
//	}
//	conv.Attach("Recipes.md", noteText)
//	conv.MaterializeAttachments()
//	turns := conv.Snapshot() // read-only copy for the provider adapter
package model
