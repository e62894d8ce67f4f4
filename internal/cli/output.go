// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - Reply display: live streaming, markdown rendering and JSON.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/askai/internal/util"
)

// =============================================================================
// STREAMING PUBLISHERS
// =============================================================================

// deltaWriter prints only the new suffix of each accumulated text, so a
// streamed reply appears on w as it arrives.
type deltaWriter struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
}

func newDeltaWriter(w io.Writer) *deltaWriter {
	return &deltaWriter{w: w}
}

// Publish implements stream.Publisher.
func (d *deltaWriter) Publish(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(text) < d.printed {
		d.printed = 0
	}
	fmt.Fprint(d.w, text[d.printed:])
	d.printed = len(text)
}

// Printed reports how many bytes have been written.
func (d *deltaWriter) Printed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.printed
}

// progressLine shows a one-line receive counter on a terminal while a reply
// is collected for markdown rendering.
type progressLine struct {
	mu    sync.Mutex
	w     io.Writer
	start time.Time
	shown bool
}

func newProgressLine(w io.Writer) *progressLine {
	return &progressLine{w: w, start: time.Now()}
}

// Publish implements stream.Publisher.
func (p *progressLine) Publish(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = true
	fmt.Fprintf(p.w, "\r%s", DimStyle.Render(fmt.Sprintf("receiving... %d chars, %s",
		util.RuneLen(text), formatDurationShort(time.Since(p.start)))))
}

// Clear erases the counter line.
func (p *progressLine) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shown {
		fmt.Fprint(p.w, "\r\033[K")
	}
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders finished replies. A nil renderer prints plain
// text.
type markdownRenderer struct {
	r *glamour.TermRenderer
}

// newMarkdownRenderer returns a renderer for theme, or a plain one when
// markdown is off or stdout is not a terminal.
func newMarkdownRenderer(enabled bool, theme string) *markdownRenderer {
	if !enabled || !IsStdoutTTY() {
		return &markdownRenderer{}
	}
	style := "light"
	if DarkBackground(theme) {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(RenderWidth()),
	)
	if err != nil {
		return &markdownRenderer{}
	}
	return &markdownRenderer{r: r}
}

// Enabled reports whether output is rendered.
func (m *markdownRenderer) Enabled() bool {
	return m != nil && m.r != nil
}

// Render returns content as terminal markdown, or unchanged on failure.
func (m *markdownRenderer) Render(content string) string {
	if !m.Enabled() {
		return content
	}
	rendered, err := m.r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// JSON OUTPUT
// =============================================================================

// JSONResponse is the envelope of every --json output.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
func (r *JSONResponse) Print() error {
	return r.Write(os.Stdout)
}

// Write outputs the JSON response to w.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// FORMATTING
// =============================================================================

// formatDurationShort formats a short duration string.
func formatDurationShort(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
