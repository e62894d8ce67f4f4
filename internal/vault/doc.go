// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vault treats a directory of notes as the document store chat
// attachments come from.
//
// # Key Types
//
//   - Vault: note listing, reading, search and the active note
//   - Note: one file, identified by its path relative to the vault root
//   - Watcher: fsnotify-driven refresh of the active note
//
// The active note is the one explicitly selected with SetActive, or else
// the most recently modified note.
//
// # Usage
//
//	v, err := vault.Open(cfg.Vault.Dir, cfg.Vault.Extensions, logger)
//	matches, err := v.Search("meet")
//	att, err := v.Read(matches[0].Path)
//	conv.Attach(att)
package vault
