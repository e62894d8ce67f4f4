// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document provides the editor surfaces inline expansion writes
// into: an in-memory Buffer and a File that persists every replacement
// atomically. Both satisfy stream.DocumentEditor.
//
// Offsets are byte offsets. Lines are 1-based.
package document
