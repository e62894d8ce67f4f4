// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"strings"

	"github.com/tidwall/gjson"
)

// absentArtifact is what a missing field turns into when a backend or a
// proxy in front of it concatenates it as a string.
const absentArtifact = "undefined"

// StripAbsentArtifact removes a trailing "undefined" from the terminal
// fragment of a stream. Mid-stream fragments are returned unchanged so the
// word itself survives when a model actually writes it.
func StripAbsentArtifact(fragment string, terminal bool) string {
	if !terminal {
		return fragment
	}
	return strings.TrimSuffix(fragment, absentArtifact)
}

// Fragment returns the string at path in a JSON document. A missing or null
// field is an empty fragment.
func Fragment(data []byte, path string) string {
	r := gjson.GetBytes(data, path)
	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	return r.String()
}

// JoinFragments concatenates every string matched by a multi-value path
// such as "candidates.0.content.parts.#.text".
func JoinFragments(data []byte, path string) string {
	r := gjson.GetBytes(data, path)
	if !r.Exists() {
		return ""
	}
	if !r.IsArray() {
		return Fragment(data, path)
	}
	var b strings.Builder
	for _, part := range r.Array() {
		if part.Type == gjson.Null {
			continue
		}
		b.WriteString(part.String())
	}
	return b.String()
}

// Has reports whether path is present and not null.
func Has(data []byte, path string) bool {
	r := gjson.GetBytes(data, path)
	return r.Exists() && r.Type != gjson.Null
}

// ValidJSON reports whether data is a JSON object.
func ValidJSON(data []byte) bool {
	return gjson.ValidBytes(data) && gjson.ParseBytes(data).IsObject()
}
