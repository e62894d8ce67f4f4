// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry keeps a local ledger of finished provider jobs.
//
// Every chat reply and inline expansion adds one row: provider, model,
// outcome, characters received and elapsed time. The ledger backs the
// `askai usage` command.
//
// # Key Types
//
//   - UsageStore: sqlite-backed ledger
//   - Record: one finished job
//   - ProviderSummary: per-provider totals
//
// # Usage
//
//	store, err := telemetry.OpenUsageStore(path)
//	defer store.Close()
//	store.Record(ctx, telemetry.FromJob(conv.ID, job.Info()))
//	rows, err := store.Recent(ctx, 20)
//
// # Privacy
//
// The ledger is local-only. Prompt and reply text are never stored, only
// their sizes.
package telemetry
