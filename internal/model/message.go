// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the three conversation roles.
func (r Role) Valid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message in a conversation.
// ID is informational only; edits are matched by content, not by ID.
type Turn struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTurn creates a turn with a fresh ID.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

// IsContext reports whether the turn is a materialized attachment turn.
func (t Turn) IsContext() bool {
	return t.Role == RoleSystem && hasContextPrefix(t.Content)
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment is externally supplied note text, keyed by its display name.
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ContextTurn formats the attachment as the system turn sent to providers.
func (a Attachment) ContextTurn() Turn {
	return NewTurn(RoleSystem, ContextPrefix+a.Name+"\n"+a.Content+ContextTerminator)
}
