// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// MaxEventSize is the largest single SSE line accepted (1MB).
const MaxEventSize = 1 << 20

// doneMarker terminates OpenAI-style event streams.
var doneMarker = []byte("[DONE]")

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a response body.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader creates an SSE reader over r.
func NewSSEReader(r io.Reader) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxEventSize)
	return &SSEReader{scanner: scanner}
}

// ReadEvent returns the next event's type and data. Multi-line data fields
// are joined with "\n". It returns io.EOF at the end of the body or after a
// "[DONE]" event.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	flush := func() (string, []byte, error) {
		data := bytes.Join(dataLines, []byte("\n"))
		if bytes.Equal(data, doneMarker) {
			return "", nil, io.EOF
		}
		return eventType, data, nil
	}

	for s.scanner.Scan() {
		line := bytes.TrimRight(s.scanner.Bytes(), "\r")

		// Blank line ends the event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return flush()
			}
			eventType = ""
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[len("data:"):]
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			dataLines = append(dataLines, append([]byte(nil), data...))
		}
		// id:, retry: and ":" comments are ignored
	}

	if err := s.scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("read event stream: %w", err)
	}
	if len(dataLines) > 0 {
		return flush()
	}
	return "", nil, io.EOF
}
