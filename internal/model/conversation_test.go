// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// TURN TESTS
// =============================================================================

func TestNewConversation_PersonaFirst(t *testing.T) {
	tests := []struct {
		name    string
		persona string
		want    string
	}{
		{"default persona", "", DefaultPersona},
		{"blank persona", "   ", DefaultPersona},
		{"custom persona", "Be terse.", "Be terse."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conv := NewConversation(tc.persona)
			turns := conv.Snapshot()
			if len(turns) != 1 {
				t.Fatalf("len(turns) = %d, want 1", len(turns))
			}
			if turns[0].Role != RoleSystem || turns[0].Content != tc.want {
				t.Errorf("first turn = %+v, want system %q", turns[0], tc.want)
			}
			if turns[0].ID == "" {
				t.Error("persona turn has no ID")
			}
		})
	}
}

func TestAppendUser_BlankInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t "} {
		conv := NewConversation("")
		err := conv.AppendUser(input)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("AppendUser(%q) error = %v, want ErrEmptyInput", input, err)
		}
		if conv.Len() != 1 {
			t.Errorf("AppendUser(%q) changed turn count to %d", input, conv.Len())
		}
	}
}

func TestAppendUser_AppendsVerbatim(t *testing.T) {
	conv := NewConversation("")
	if err := conv.AppendUser("  what is in my notes?  "); err != nil {
		t.Fatalf("AppendUser() error = %v", err)
	}
	last, ok := conv.LastUser()
	if !ok {
		t.Fatal("LastUser() found nothing")
	}
	if last.Content != "  what is in my notes?  " {
		t.Errorf("content = %q, want input unchanged", last.Content)
	}
}

func TestAppendAssistant_KeepsEmptyAndPartial(t *testing.T) {
	conv := NewConversation("")
	conv.AppendUser("hi")
	conv.AppendAssistant("Hel")
	conv.AppendAssistant("")

	turns := conv.Snapshot()
	if len(turns) != 4 {
		t.Fatalf("len(turns) = %d, want 4", len(turns))
	}
	if turns[2].Content != "Hel" || turns[3].Content != "" {
		t.Errorf("assistant turns = %q, %q", turns[2].Content, turns[3].Content)
	}
}

func TestReset_AlwaysSinglePersonaTurn(t *testing.T) {
	conv := NewConversation("persona")
	conv.AppendUser("one")
	conv.AppendAssistant("two")
	conv.Attach("a.md", "alpha")
	conv.MaterializeAttachments()
	id := conv.ID

	conv.Reset()

	turns := conv.Snapshot()
	if len(turns) != 1 {
		t.Fatalf("len(turns) = %d, want 1", len(turns))
	}
	if turns[0].Role != RoleSystem || turns[0].Content != "persona" {
		t.Errorf("turn = %+v, want persona system turn", turns[0])
	}
	if len(conv.Attachments()) != 0 {
		t.Errorf("attachments survived reset: %v", conv.Attachments())
	}
	if conv.ID != id {
		t.Errorf("Reset changed ID from %s to %s", id, conv.ID)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	conv := NewConversation("")
	conv.AppendUser("hello")
	snap := conv.Snapshot()
	snap[1].Content = "mutated"

	last, _ := conv.LastUser()
	if last.Content != "hello" {
		t.Errorf("snapshot mutation leaked into conversation: %q", last.Content)
	}
}

// =============================================================================
// ATTACHMENT TESTS
// =============================================================================

func countContext(turns []Turn, name string) int {
	n := 0
	for _, t := range turns {
		if t.IsContext() && strings.HasPrefix(t.Content, ContextPrefix+name+"\n") {
			n++
		}
	}
	return n
}

func TestMaterializeAttachments_Idempotent(t *testing.T) {
	conv := NewConversation("")
	conv.AppendUser("question")
	conv.Attach("b.md", "bravo")
	conv.Attach("a.md", "alpha")

	conv.MaterializeAttachments()
	first := conv.Snapshot()
	conv.MaterializeAttachments()
	second := conv.Snapshot()

	if len(first) != len(second) {
		t.Fatalf("turn count changed: %d -> %d", len(first), len(second))
	}
	for _, name := range []string{"a.md", "b.md"} {
		if got := countContext(second, name); got != 1 {
			t.Errorf("context turns for %s = %d, want 1", name, got)
		}
	}
}

func TestMaterializeAttachments_Format(t *testing.T) {
	conv := NewConversation("")
	conv.Attach("Recipes.md", "flour, eggs")
	conv.MaterializeAttachments()

	turns := conv.Snapshot()
	want := "Context from Recipes.md\nflour, eggs\n\n---------------------------\n"
	if got := turns[len(turns)-1].Content; got != want {
		t.Errorf("context turn = %q, want %q", got, want)
	}
	if turns[len(turns)-1].Role != RoleSystem {
		t.Errorf("context turn role = %s, want system", turns[len(turns)-1].Role)
	}
}

func TestAttach_Overwrites(t *testing.T) {
	conv := NewConversation("")
	conv.Attach("n.md", "old")
	conv.Attach("n.md", "new")
	conv.MaterializeAttachments()

	turns := conv.Snapshot()
	if countContext(turns, "n.md") != 1 {
		t.Fatalf("expected one context turn, got turns %+v", turns)
	}
	if !strings.Contains(turns[len(turns)-1].Content, "new") {
		t.Errorf("context turn kept stale text: %q", turns[len(turns)-1].Content)
	}
}

func TestDetach_LeavesHistoryUntilNextMaterialize(t *testing.T) {
	conv := NewConversation("")
	conv.Attach("n.md", "note")
	conv.MaterializeAttachments()

	if !conv.Detach("n.md") {
		t.Fatal("Detach() = false for attached note")
	}
	if conv.Detach("n.md") {
		t.Error("second Detach() = true, want false")
	}
	if countContext(conv.Snapshot(), "n.md") != 1 {
		t.Error("Detach removed an already materialized turn")
	}

	conv.MaterializeAttachments()
	if countContext(conv.Snapshot(), "n.md") != 0 {
		t.Error("detached note was materialized again")
	}
}

func TestMaterializeAttachments_KeepsOrdinarySystemTurns(t *testing.T) {
	conv := NewConversation("Context is everything")
	conv.MaterializeAttachments()
	if conv.Len() != 1 {
		t.Errorf("persona turn removed by materialization")
	}
}
