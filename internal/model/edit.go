// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ChromeWidth is the number of trailing characters the reply view appends
// after generation (edit, copy and insert controls).
const ChromeWidth = 4

// EditReconciler maps an edit of rendered reply text back onto the stored
// assistant turn it came from. Matching is by content: the stripped
// original must be a substring of the turn, line breaks ignored.
type EditReconciler struct {
	// ChromeWidth is the length of the trailing decoration to strip from
	// the rendered original.
	ChromeWidth int
}

// StripChrome removes the trailing decoration from rendered text.
func (r EditReconciler) StripChrome(rendered string) string {
	runes := []rune(rendered)
	if len(runes) <= r.ChromeWidth {
		return ""
	}
	return string(runes[:len(runes)-r.ChromeWidth])
}

// Apply rewrites the most recent assistant turn containing the rendered
// original with edited. It returns false, changing nothing, when no turn
// matches or the stripped original is empty.
func (r EditReconciler) Apply(c *Conversation, rendered, edited string) bool {
	needle := flatten(r.StripChrome(rendered))
	if needle == "" {
		return false
	}
	for i := len(c.turns) - 1; i >= 0; i-- {
		t := &c.turns[i]
		if t.Role != RoleAssistant {
			continue
		}
		if strings.Contains(flatten(t.Content), needle) {
			t.Content = edited
			c.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// EditAssistantTurn applies an EditReconciler with the default ChromeWidth.
func (c *Conversation) EditAssistantTurn(rendered, edited string) bool {
	return EditReconciler{ChromeWidth: ChromeWidth}.Apply(c, rendered, edited)
}

// flatten drops line breaks and normalizes to NFC so text copied out of a
// renderer compares equal to what the provider produced.
func flatten(s string) string {
	s = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s)
	return norm.NFC.String(s)
}
