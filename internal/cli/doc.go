// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for askai.
//
// Every command builds the same application core (config, logger, provider
// registry, notes vault, usage ledger and a session) and drives it from the
// terminal: an interactive REPL, one-shot questions, and inline expansion of
// a file at a cursor.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - App: the wired application core shared by the commands
//   - ChatSession: state of one REPL
//
// # Usage
//
//	cmd, args, err := cli.ParseArgs(os.Args[1:])
//	if err != nil {
//	    cli.HandleErrorAndExit(err, false)
//	}
//	switch cmd {
//	case cli.CmdAsk:
//	    cli.HandleAsk(args)
//	case cli.CmdChat:
//	    cli.HandleChat(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - chat: interactive conversation with note attachments
//   - ask: single question, streamed to stdout
//   - expand: continue a file at an offset or line, written in place
//   - search: find notes by name
//   - usage: recent jobs and per-provider totals from the usage ledger
//   - config: show, path, init, get, set, keys
//
// ask, search, usage, config show and version support --json.
package cli
