// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for the askai CLI.
//
// Interactive terminals get colors, markdown and prompts; piped output gets
// plain text. NO_COLOR and FORCE_COLOR override the detection.

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsStdoutTTY reports whether replies are going to a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TTYRequiredError means an interactive command was started without a
// terminal on stdin.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	what := "interactive input not available"
	if e.Operation != "" {
		what = "cannot " + e.Operation + " interactively"
	}
	return "stdin is not a terminal; " + what
}

// RequiresTTY fails with a TTYRequiredError when stdin is piped.
func RequiresTTY(operation string) error {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return &TTYRequiredError{Operation: operation}
}

// =============================================================================
// REPLY WIDTH
// =============================================================================

// Glamour wraps replies to the terminal, minus a margin, within these bounds.
const (
	fallbackWidth = 80
	narrowestWrap = 38
	widestWrap    = 100
)

// RenderWidth returns the wrap width for rendered replies.
func RenderWidth() int {
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		cols = 0
	}
	return wrapWidth(cols)
}

func wrapWidth(cols int) int {
	if cols <= 0 {
		cols = fallbackWidth
	}
	w := cols - 2
	switch {
	case w < narrowestWrap:
		return narrowestWrap
	case w > widestWrap:
		return widestWrap
	}
	return w
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var colors struct {
	once sync.Once
	on   bool
}

// colorsWanted applies NO_COLOR (https://no-color.org/) and then
// FORCE_COLOR before falling back to terminal detection.
func colorsWanted(getenv func(string) string, tty func() bool) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	if getenv("FORCE_COLOR") != "" {
		return true
	}
	return tty()
}

// ForceColorsEnabled overrides color detection. Tests only.
func ForceColorsEnabled(enabled bool) {
	colors.once = sync.Once{}
	colors.once.Do(func() { colors.on = enabled })
}

// GetColorProfile returns the termenv profile lipgloss renders with. Ascii
// means no escape codes at all.
func GetColorProfile() termenv.Profile {
	colors.once.Do(func() { colors.on = colorsWanted(os.Getenv, IsStdoutTTY) })
	if colors.on {
		return termenv.ColorProfile()
	}
	return termenv.Ascii
}

// DarkBackground resolves a ui.theme value. "auto" asks the terminal.
func DarkBackground(theme string) bool {
	if theme == "light" || theme == "dark" {
		return theme == "dark"
	}
	return termenv.HasDarkBackground()
}
