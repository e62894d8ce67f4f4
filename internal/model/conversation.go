// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPersona is the system instruction every conversation starts with.
const DefaultPersona = "You are a helpful assistant called Meridyth. " +
	"You have access to the user's Obsidian notes. " +
	"When they ask you a question, you see a related note so you can ground your response in truth. " +
	"The user cannot see the note. Do not refer to the note. Pretend only you know it exists."

const (
	// ContextPrefix marks a system turn produced from an attachment.
	ContextPrefix = "Context from "

	// ContextTerminator closes every materialized attachment turn.
	ContextTerminator = "\n\n---------------------------\n"
)

// ErrEmptyInput is returned by AppendUser for blank input. It is a no-op
// signal, not a failure.
var ErrEmptyInput = errors.New("empty input")

func hasContextPrefix(s string) bool {
	return strings.HasPrefix(s, ContextPrefix)
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the ordered turns of a chat and its attachments.
//
// A Conversation is not safe for concurrent use; the owning session
// serializes access to it.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	persona     string
	turns       []Turn
	attachments map[string]string
}

// NewConversation creates a conversation holding only the persona turn.
// An empty persona falls back to DefaultPersona.
func NewConversation(persona string) *Conversation {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	now := time.Now()
	c := &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		persona:   persona,
	}
	c.init()
	return c
}

func (c *Conversation) init() {
	c.turns = []Turn{NewTurn(RoleSystem, c.persona)}
	c.attachments = make(map[string]string)
}

// Persona returns the fixed persona instruction.
func (c *Conversation) Persona() string {
	return c.persona
}

// =============================================================================
// TURN OPERATIONS
// =============================================================================

// AppendUser appends a user turn. Blank input leaves the conversation
// untouched and returns ErrEmptyInput.
func (c *Conversation) AppendUser(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	c.append(NewTurn(RoleUser, text))
	return nil
}

// AppendAssistant appends an assistant turn with whatever text a stream
// accumulated, complete or not.
func (c *Conversation) AppendAssistant(text string) {
	c.append(NewTurn(RoleAssistant, text))
}

func (c *Conversation) append(t Turn) {
	c.turns = append(c.turns, t)
	c.UpdatedAt = time.Now()
}

// Reset returns the conversation to the single persona turn and drops all
// attachments. The conversation ID is kept.
func (c *Conversation) Reset() {
	c.init()
	c.UpdatedAt = time.Now()
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Snapshot returns a copy of the turns. Adapters build requests from the
// snapshot and never see the live slice.
func (c *Conversation) Snapshot() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// LastAssistant returns the most recent assistant turn.
func (c *Conversation) LastAssistant() (Turn, bool) {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == RoleAssistant {
			return c.turns[i], true
		}
	}
	return Turn{}, false
}

// LastUser returns the most recent user turn.
func (c *Conversation) LastUser() (Turn, bool) {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == RoleUser {
			return c.turns[i], true
		}
	}
	return Turn{}, false
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// Attach inserts or overwrites an attachment. Turns are unaffected until
// the next MaterializeAttachments.
func (c *Conversation) Attach(name, text string) {
	c.attachments[name] = text
	c.UpdatedAt = time.Now()
}

// Detach removes an attachment and reports whether it existed. Context
// turns already in the history are left alone; they disappear at the next
// materialization.
func (c *Conversation) Detach(name string) bool {
	if _, ok := c.attachments[name]; !ok {
		return false
	}
	delete(c.attachments, name)
	c.UpdatedAt = time.Now()
	return true
}

// Attachments returns the current attachments sorted by name.
func (c *Conversation) Attachments() []Attachment {
	out := make([]Attachment, 0, len(c.attachments))
	for name, content := range c.attachments {
		out = append(out, Attachment{Name: name, Content: content})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasAttachment reports whether name is attached.
func (c *Conversation) HasAttachment(name string) bool {
	_, ok := c.attachments[name]
	return ok
}

// MaterializeAttachments removes every context turn and appends exactly one
// fresh context turn per current attachment. Calling it repeatedly without
// changing attachments yields the same turns.
func (c *Conversation) MaterializeAttachments() {
	kept := c.turns[:0]
	for _, t := range c.turns {
		if t.IsContext() {
			continue
		}
		kept = append(kept, t)
	}
	c.turns = kept
	for _, a := range c.Attachments() {
		c.turns = append(c.turns, a.ContextTurn())
	}
}
