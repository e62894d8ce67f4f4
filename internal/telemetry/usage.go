// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"time"

	"github.com/jeranaias/askai/internal/provider"
	"github.com/jeranaias/askai/internal/stream"
)

// Record is one finished job.
type Record struct {
	JobID          string
	ConversationID string
	Kind           string
	Provider       string
	Model          string
	Status         string
	ErrorKind      string
	Chars          int
	Fragments      int
	StartedAt      time.Time
	Duration       time.Duration
}

// Failed reports whether the job ended in an error other than a cancel.
func (r Record) Failed() bool {
	return r.Status == string(stream.StatusFailed)
}

// FromJob converts a job snapshot into a ledger row.
func FromJob(conversationID string, info stream.Info) Record {
	r := Record{
		JobID:          info.ID,
		ConversationID: conversationID,
		Kind:           string(info.Kind),
		Provider:       info.Provider,
		Model:          info.Model,
		Status:         string(info.Status),
		Chars:          info.Chars,
		Fragments:      info.Fragments,
		StartedAt:      info.Started,
		Duration:       info.Duration(),
	}
	if info.Status == stream.StatusFailed && info.Err != nil {
		r.ErrorKind = provider.KindOf(info.Err).String()
	}
	return r
}

// ProviderSummary aggregates the ledger for one provider.
type ProviderSummary struct {
	Provider      string
	Jobs          int
	Failures      int
	Cancelled     int
	Chars         int
	TotalDuration time.Duration
}

// AverageDuration returns the mean job time.
func (s ProviderSummary) AverageDuration() time.Duration {
	if s.Jobs == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Jobs)
}

// Recorder receives finished jobs. UsageStore implements it; a nil
// Recorder disables recording.
type Recorder interface {
	Record(ctx context.Context, r Record) error
}
