// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// expand.go - Inline expansion of a file at a cursor.
//
// Command: expand
// Short:   Continue FILE at a position, writing the text in place
//
// Examples:
//   askai expand draft.md                  Continue at the end of the file
//   askai expand draft.md --line 12        Continue at the end of line 12
//   askai expand draft.md --offset 340     Continue at byte 340
//
// The file is rewritten atomically as fragments arrive, so an interrupted
// expansion leaves the text received so far.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jeranaias/askai/internal/document"
)

// ExpandResult is the --json payload of expand.
type ExpandResult struct {
	File       string `json:"file"`
	Offset     int    `json:"offset"`
	Cursor     int    `json:"cursor"`
	Inserted   string `json:"inserted"`
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	Status     string `json:"status"`
	Fragments  int    `json:"fragments"`
	DurationMs int64  `json:"duration_ms"`
}

// HandleExpandCommand continues args.File at the requested position.
func HandleExpandCommand(args Args) error {
	doc, err := document.OpenFile(args.File)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &NotFoundError{Resource: "file", ID: args.File}
		}
		return err
	}

	offset, err := expandOffset(doc.Text(), args)
	if err != nil {
		return err
	}
	doc.SetCursorOffset(offset)

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pc := app.Config.CompletionProvider()
	quiet := args.Quiet || args.JSON
	notice(quiet, "Expanding %s at byte %d with %s", args.File, offset, providerLabel(pc))

	res, err := app.Session.Expand(ctx, doc)

	if args.JSON {
		resp := NewJSONResponse("expand", ExpandResult{
			File:       args.File,
			Offset:     offset,
			Cursor:     doc.CursorOffset(),
			Inserted:   res.Text,
			Provider:   res.Job.Provider,
			Model:      res.Job.Model,
			Status:     string(res.Job.Status),
			Fragments:  res.Job.Fragments,
			DurationMs: res.Job.Duration().Milliseconds(),
		})
		if err != nil {
			msg := err.Error()
			resp.Success = false
			resp.Error = &msg
		}
		resp.Print()
		return reported(err)
	}

	if !quiet && res.Job.Status != "" {
		fmt.Fprintf(os.Stderr, "%s inserted %d chars, cursor now at %d (%s)\n",
			RenderStatus(res.Job.Status),
			len(res.Text),
			doc.CursorOffset(),
			formatDurationShort(res.Job.Duration()))
	}
	return err
}

// expandOffset resolves --line or --offset against text. Neither means the
// end of the document.
func expandOffset(text string, args Args) (int, error) {
	switch {
	case args.Line > 0:
		if n := document.LineCount(text); args.Line > n {
			return 0, NewValidationError("line", strconv.Itoa(args.Line),
				fmt.Sprintf("file has %d lines", n))
		}
		return document.LineEndOffset(text, args.Line), nil
	case args.Offset >= 0:
		if args.Offset > len(text) {
			return 0, NewValidationError("offset", strconv.Itoa(args.Offset),
				fmt.Sprintf("file is %d bytes", len(text)))
		}
		return args.Offset, nil
	default:
		return len(text), nil
	}
}
