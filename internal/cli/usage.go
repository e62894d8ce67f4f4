// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// usage.go - Usage ledger report.
//
// Command: usage
// Short:   Show recent jobs and per-provider totals
//
// Examples:
//   askai usage               Last 20 jobs and totals
//   askai usage --limit 5     Last 5 jobs
//   askai --json usage        Machine-readable report

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/askai/internal/telemetry"
	"github.com/jeranaias/askai/internal/util"
)

// JobView is one ledger row in --json output.
type JobView struct {
	JobID          string `json:"job_id"`
	ConversationID string `json:"conversation_id"`
	Kind           string `json:"kind"`
	Provider       string `json:"provider"`
	Model          string `json:"model,omitempty"`
	Status         string `json:"status"`
	ErrorKind      string `json:"error_kind,omitempty"`
	Chars          int    `json:"chars"`
	Fragments      int    `json:"fragments"`
	StartedAt      string `json:"started_at"`
	DurationMs     int64  `json:"duration_ms"`
}

// ProviderView is one per-provider total in --json output.
type ProviderView struct {
	Provider    string `json:"provider"`
	Jobs        int    `json:"jobs"`
	Failures    int    `json:"failures"`
	Cancelled   int    `json:"cancelled"`
	Chars       int    `json:"chars"`
	AvgDuration int64  `json:"avg_duration_ms"`
}

// UsageReport is the --json payload of usage.
type UsageReport struct {
	Recent    []JobView      `json:"recent"`
	Providers []ProviderView `json:"providers"`
}

func newUsageReport(recent []telemetry.Record, summary []telemetry.ProviderSummary) UsageReport {
	report := UsageReport{
		Recent:    make([]JobView, 0, len(recent)),
		Providers: make([]ProviderView, 0, len(summary)),
	}
	for _, r := range recent {
		report.Recent = append(report.Recent, JobView{
			JobID:          r.JobID,
			ConversationID: r.ConversationID,
			Kind:           r.Kind,
			Provider:       r.Provider,
			Model:          r.Model,
			Status:         r.Status,
			ErrorKind:      r.ErrorKind,
			Chars:          r.Chars,
			Fragments:      r.Fragments,
			StartedAt:      r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			DurationMs:     r.Duration.Milliseconds(),
		})
	}
	for _, s := range summary {
		report.Providers = append(report.Providers, ProviderView{
			Provider:    s.Provider,
			Jobs:        s.Jobs,
			Failures:    s.Failures,
			Cancelled:   s.Cancelled,
			Chars:       s.Chars,
			AvgDuration: s.AverageDuration().Milliseconds(),
		})
	}
	return report
}

// HandleUsageCommand prints the usage ledger.
func HandleUsageCommand(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Usage == nil {
		return NewCommandError("usage", "read", "usage ledger is disabled (telemetry.enabled = false)", nil)
	}

	ctx := context.Background()
	recent, err := app.Usage.Recent(ctx, args.Limit)
	if err != nil {
		return err
	}
	summary, err := app.Usage.Summary(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("usage", newUsageReport(recent, summary)).Print()
	}
	writeUsage(os.Stdout, recent, summary)
	return nil
}

// writeUsage renders the report as two tables.
func writeUsage(w io.Writer, recent []telemetry.Record, summary []telemetry.ProviderSummary) {
	if len(recent) == 0 {
		fmt.Fprintln(w, DimStyle.Render("[No jobs recorded yet]"))
		return
	}

	fmt.Fprintln(w, TitleStyle.Render("Providers"))
	fmt.Fprintln(w, RenderSeparator())
	for _, s := range summary {
		fmt.Fprintf(w, "  %s %5d jobs  %4d failed  %4d cancelled  %10s chars  avg %s\n",
			CommandStyle.Render(util.PadRight(s.Provider, 12)),
			s.Jobs, s.Failures, s.Cancelled,
			formatNumber(s.Chars),
			formatDurationShort(s.AverageDuration()))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Recent jobs"))
	fmt.Fprintln(w, RenderSeparator())
	for _, r := range recent {
		status := r.Status
		if r.ErrorKind != "" {
			status += ": " + r.ErrorKind
		}
		fmt.Fprintf(w, "  %s  %s %s %s %6d chars  %s\n",
			DimStyle.Render(r.StartedAt.Local().Format("Jan 02 15:04")),
			util.PadRight(r.Kind, 10),
			util.PadRight(util.TruncateWidth(r.Provider+"/"+r.Model, 36), 36),
			util.PadRight(status, 12),
			r.Chars,
			formatDurationShort(r.Duration))
	}
}
