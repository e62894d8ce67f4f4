// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import "testing"

func TestStripAbsentArtifact(t *testing.T) {
	tests := []struct {
		fragment string
		terminal bool
		want     string
	}{
		{"Hello", true, "Hello"},
		{"Helloundefined", true, "Hello"},
		{"undefined", true, ""},
		{"undefined", false, "undefined"},
		{"is undefined here", true, "is undefined here"},
	}
	for _, tc := range tests {
		if got := StripAbsentArtifact(tc.fragment, tc.terminal); got != tc.want {
			t.Errorf("StripAbsentArtifact(%q, %v) = %q, want %q", tc.fragment, tc.terminal, got, tc.want)
		}
	}
}

func TestFragment_AbsentIsEmpty(t *testing.T) {
	data := []byte(`{"choices":[{"delta":{}}],"result":{"response":null}}`)
	for _, path := range []string{"choices.0.delta.content", "result.response", "nope"} {
		if got := Fragment(data, path); got != "" {
			t.Errorf("Fragment(%s) = %q, want empty", path, got)
		}
	}
	if got := Fragment([]byte(`{"choices":[{"delta":{"content":"hi"}}]}`), "choices.0.delta.content"); got != "hi" {
		t.Errorf("Fragment() = %q, want hi", got)
	}
}

func TestJoinFragments(t *testing.T) {
	data := []byte(`{"candidates":[{"content":{"parts":[{"text":"a"},{"inlineData":{}},{"text":"b"}]}}]}`)
	if got := JoinFragments(data, "candidates.0.content.parts.#.text"); got != "ab" {
		t.Errorf("JoinFragments() = %q, want ab", got)
	}
	if got := JoinFragments([]byte(`{"candidates":[]}`), "candidates.0.content.parts.#.text"); got != "" {
		t.Errorf("JoinFragments(empty) = %q", got)
	}
}

func TestValidJSON(t *testing.T) {
	cases := map[string]bool{
		`{"a":1}`: true,
		`[1,2]`:   false,
		`{bad`:    false,
		``:        false,
	}
	for in, want := range cases {
		if got := ValidJSON([]byte(in)); got != want {
			t.Errorf("ValidJSON(%q) = %v, want %v", in, got, want)
		}
	}
}
