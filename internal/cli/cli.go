// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for askai.

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdExpand
	CmdSearch
	CmdUsage
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed.
func (c Command) String() string {
	switch c {
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdExpand:
		return "expand"
	case CmdSearch:
		return "search"
	case CmdUsage:
		return "usage"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds the parsed command line.
type Args struct {
	// Global flags
	Quiet    bool
	Verbose  bool
	JSON     bool
	Provider string // overrides the chat or completion provider for this run

	// Command-specific
	Query      string
	Attach     []string
	File       string
	Offset     int // byte offset for expand; -1 when not given
	Line       int // 1-based line for expand; 0 when not given
	Limit      int
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Force      bool

	// Raw args (remaining after the command name)
	Raw []string
}

const usageText = `askai - chat with your notes and expand documents inline

Usage:
  askai [global flags] <command> [args]

Commands:
  chat                         Interactive chat (default)
  ask QUESTION                 Ask one question and print the reply
      -a, --attach NAME        Attach a note (repeatable)
  expand FILE                  Continue FILE at a position, in place
      --offset N               Byte offset of the cursor
      --line L                 Cursor at the end of line L (1-based)
  search QUERY                 Find notes whose name contains QUERY
  usage                        Show recent jobs and per-provider totals
      --limit N                Number of recent jobs (default 20)
  config show|path|init|get|set|keys
                               Manage ~/.askai/config.toml
  version                      Show version
  help                         Show this help

Global flags:
  -p, --provider NAME          Use NAME for this run (openai, openrouter,
                               groq, custom, google, cloudflare)
  -q, --quiet                  Minimal output
  -v, --verbose                Debug logging to stderr
      --json                   JSON output where supported

Examples:
  askai ask "What did we decide about the launch?" --attach Meeting.md
  askai expand draft.md --line 12 --provider groq
  askai config set openai.api_key sk-...

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("askai version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses os.Args. A usage error prints and exits.
func Parse() (Command, Args) {
	cmd, args, err := ParseArgs(os.Args[1:])
	if err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
	return cmd, args
}

// ParseArgs parses command-line arguments and returns the command and args.
// With no command the interactive chat starts; an unknown first word is
// taken as the start of a question.
func ParseArgs(argv []string) (Command, Args, error) {
	remaining, parsed := parseGlobalFlags(argv)
	parsed.Offset = -1

	if len(remaining) == 0 {
		return CmdChat, parsed, nil
	}

	name := strings.ToLower(remaining[0])
	rest := remaining[1:]
	parsed.Raw = rest

	switch name {
	case "chat", "repl":
		return CmdChat, parsed, nil

	case "ask", "a":
		return CmdAsk, parsed, parseAskArgs(&parsed, rest)

	case "expand", "complete", "x":
		return CmdExpand, parsed, parseExpandArgs(&parsed, rest)

	case "search", "find":
		parsed.Query = strings.Join(rest, " ")
		if strings.TrimSpace(parsed.Query) == "" {
			return CmdSearch, parsed, ErrMissingArgument("query", "askai search meeting")
		}
		return CmdSearch, parsed, nil

	case "usage", "stats":
		return CmdUsage, parsed, parseUsageArgs(&parsed, rest)

	case "config":
		parseConfigArgs(&parsed, rest)
		return CmdConfig, parsed, nil

	case "version", "--version":
		return CmdVersion, parsed, nil

	case "help", "-h", "--help":
		return CmdHelp, parsed, nil

	default:
		if strings.HasPrefix(name, "-") {
			return CmdHelp, parsed, NewValidationErrorWithExample("flag", remaining[0], "unknown flag", "askai help")
		}
		return CmdAsk, parsed, parseAskArgs(&parsed, remaining)
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "-p", "--provider":
			if i+1 < len(args) {
				i++
				parsed.Provider = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--provider=") {
				parsed.Provider = strings.TrimPrefix(arg, "--provider=")
			} else {
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsed
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) error {
	p := NewArgParser(remaining)
	args.Attach = append(p.Flags("attach"), p.Flags("a")...)
	args.Query = strings.Join(p.PositionalFrom(0), " ")
	if strings.TrimSpace(args.Query) == "" {
		return ErrMissingArgument("question", `askai ask "What is in my notes about X?"`)
	}
	return nil
}

// parseExpandArgs parses expand command specific arguments.
func parseExpandArgs(args *Args, remaining []string) error {
	p := NewArgParser(remaining)
	args.File = p.Positional(0)
	if args.File == "" {
		return ErrMissingArgument("file", "askai expand draft.md --line 3")
	}

	if p.HasFlag("offset") && p.HasFlag("line") {
		return NewValidationErrorWithExample("position", "", "use either --offset or --line", "askai expand draft.md --offset 120")
	}
	if p.HasFlag("offset") {
		n, err := p.FlagInt("offset")
		if err != nil || n < 0 {
			return ErrInvalidFormat("offset", p.Flag("offset"), "a non-negative byte offset")
		}
		args.Offset = n
	}
	if p.HasFlag("line") {
		n, err := ParseIntWithValidation(p.Flag("line"), "line")
		if err != nil {
			return ErrInvalidFormat("line", p.Flag("line"), "a line number starting at 1")
		}
		args.Line = n
	}
	return nil
}

// parseUsageArgs parses usage command specific arguments.
func parseUsageArgs(args *Args, remaining []string) error {
	p := NewArgParser(remaining)
	if !p.HasFlag("limit") {
		return nil
	}
	n, err := ParseIntWithValidation(p.Flag("limit"), "limit")
	if err != nil {
		return ErrInvalidFormat("limit", p.Flag("limit"), "a positive number")
	}
	args.Limit = n
	return nil
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining, "force", "f")
	args.Force = p.BoolFlag("force") || p.BoolFlag("f")
	args.Subcommand = p.Positional(0)
	args.ConfigKey = p.Positional(1)
	args.ConfigVal = strings.Join(p.PositionalFrom(2), " ")
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) {
	HandleErrorAndExit(HandleAskCommand(args), args.JSON)
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) {
	HandleErrorAndExit(HandleChatCommand(args), false)
}

// HandleExpand handles the "expand" command.
func HandleExpand(args Args) {
	HandleErrorAndExit(HandleExpandCommand(args), args.JSON)
}

// HandleSearch handles the "search" command.
func HandleSearch(args Args) {
	HandleErrorAndExit(HandleSearchCommand(args), args.JSON)
}

// HandleUsage handles the "usage" command.
func HandleUsage(args Args) {
	HandleErrorAndExit(HandleUsageCommand(args), args.JSON)
}

// HandleConfig handles the "config" command.
func HandleConfig(args Args) {
	HandleErrorAndExit(HandleConfigCommand(args), args.JSON)
}

// VersionData is the --json payload of "version".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(args Args) {
	if args.JSON {
		NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
