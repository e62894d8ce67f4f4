// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command for askai.
//
// Command: ask
// Short:   Ask one question and print the reply
//
// Examples:
//   askai ask "Summarize my week"                  Ask without notes
//   askai ask "When is the offsite?" -a Plans.md   Attach a note
//   askai --provider google ask "Hello"            Use another backend
//   askai --json ask "Hello"                       Machine-readable result
//
// Ctrl+C cancels the request; the partial reply is still printed.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/askai/internal/session"
	"github.com/jeranaias/askai/internal/stream"
)

// AskResult is the --json payload of ask.
type AskResult struct {
	ConversationID string   `json:"conversation_id"`
	JobID          string   `json:"job_id,omitempty"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model,omitempty"`
	Status         string   `json:"status"`
	Text           string   `json:"text"`
	Attachments    []string `json:"attachments,omitempty"`
	Chars          int      `json:"chars"`
	Fragments      int      `json:"fragments"`
	DurationMs     int64    `json:"duration_ms"`
}

func newAskResult(convID string, attached []string, res session.Result) AskResult {
	return AskResult{
		ConversationID: convID,
		JobID:          res.Job.ID,
		Provider:       res.Job.Provider,
		Model:          res.Job.Model,
		Status:         string(res.Job.Status),
		Text:           res.Text,
		Attachments:    attached,
		Chars:          res.Job.Chars,
		Fragments:      res.Job.Fragments,
		DurationMs:     res.Job.Duration().Milliseconds(),
	}
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAskCommand sends one question, with any --attach notes, and prints
// the reply.
func HandleAskCommand(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	var attached []string
	for _, name := range args.Attach {
		att, err := app.Session.Attach(name)
		if err != nil {
			return NewCommandError("ask", "attach", name, err)
		}
		attached = append(attached, att.Name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pc := app.Config.ChatProvider()
	quiet := args.Quiet || args.JSON
	notice(quiet, "%s %s", "Asking", providerLabel(pc))
	for _, name := range attached {
		notice(quiet, "  with %s", RenderAttachment(name, 30))
	}

	md := newMarkdownRenderer(app.Config.UI.Markdown && !args.JSON, app.Config.UI.Theme)
	res, err := runAsk(ctx, app.Session, args.Query, md, args.JSON, os.Stdout, os.Stderr)

	if args.JSON {
		resp := NewJSONResponse("ask", newAskResult(app.Session.ConversationID(), attached, res))
		if err != nil {
			msg := err.Error()
			resp.Success = false
			resp.Error = &msg
		}
		resp.Print()
		return reported(err)
	}

	if !quiet && res.Job.Status != "" {
		fmt.Fprintf(os.Stderr, "%s %s, %d chars, %s\n",
			RenderStatus(res.Job.Status),
			providerLabel(pc),
			res.Job.Chars,
			formatDurationShort(res.Job.Duration()))
	}
	return err
}

// runAsk sends input and writes the reply to out. Plain output streams as
// it arrives; rendered output is collected and shown once complete, with a
// progress line on status.
func runAsk(ctx context.Context, s *session.Session, input string, md *markdownRenderer, silent bool, out, status io.Writer) (session.Result, error) {
	var pub stream.Publisher
	var progress *progressLine
	var live *deltaWriter

	switch {
	case silent:
		pub = stream.PublisherFunc(func(string) {})
	case md.Enabled():
		progress = newProgressLine(status)
		pub = progress
	default:
		live = newDeltaWriter(out)
		pub = live
	}

	res, err := s.Send(ctx, input, pub)

	switch {
	case progress != nil:
		progress.Clear()
		if res.Text != "" {
			fmt.Fprint(out, md.Render(res.Text))
		}
	case live != nil && live.Printed() > 0:
		fmt.Fprintln(out)
	}

	if err != nil && res.Text != "" && !silent {
		fmt.Fprintln(status, WarningStyle.Render("[reply incomplete]"))
	}
	return res, err
}
