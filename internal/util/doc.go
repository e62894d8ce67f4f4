// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the notes, config and CLI
// packages.
//
// # Key Functions
//
//   - AtomicWriteFile: write-then-rename with fsync, used for notes and config
//   - TruncateRunes: rune-safe truncation with an ellipsis
//   - TruncateWidth, StringWidth, PadRight: terminal column aware helpers
//
// # Usage
//
//	label := util.TruncateRunes(noteName, 30)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
