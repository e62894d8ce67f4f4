// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"io"
	"strings"
	"testing"
)

func TestSSEReader_Events(t *testing.T) {
	input := ": keep-alive\n" +
		"event: message\n" +
		"data: {\"a\":1}\n\n" +
		"data:{\"b\":2}\r\n\r\n" +
		"id: 7\n" +
		"data: line one\n" +
		"data: line two\n\n" +
		"data: [DONE]\n\n" +
		"data: after done\n\n"

	r := NewSSEReader(strings.NewReader(input))

	want := []struct {
		event string
		data  string
	}{
		{"message", `{"a":1}`},
		{"", `{"b":2}`},
		{"", "line one\nline two"},
	}
	for i, w := range want {
		event, data, err := r.ReadEvent()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if event != w.event || string(data) != w.data {
			t.Errorf("event %d = (%q, %q), want (%q, %q)", i, event, data, w.event, w.data)
		}
	}
	if _, _, err := r.ReadEvent(); err != io.EOF {
		t.Errorf("after [DONE] err = %v, want io.EOF", err)
	}
}

func TestSSEReader_TrailingEventWithoutBlankLine(t *testing.T) {
	r := NewSSEReader(strings.NewReader("data: last"))
	_, data, err := r.ReadEvent()
	if err != nil || string(data) != "last" {
		t.Fatalf("ReadEvent() = %q, %v", data, err)
	}
	if _, _, err := r.ReadEvent(); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}
