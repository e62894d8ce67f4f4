// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger every component receives.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name. Empty means warn.
	Level string

	// File, when set, receives JSON lines in append mode instead of stderr.
	File string

	// Pretty uses a console writer when writing to a terminal.
	Pretty bool

	// Output overrides stderr. Tests only.
	Output io.Writer
}

// New returns a logger and a close function for the file sink, if any.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level := zerolog.WarnLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	closeFn := noop
	var out io.Writer = os.Stderr
	switch {
	case opts.Output != nil:
		out = opts.Output
	case opts.File != "":
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	case opts.Pretty && term.IsTerminal(int(os.Stderr.Fd())):
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}

func noop() error { return nil }
