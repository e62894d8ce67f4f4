// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for askai.
//
// Command: chat
// Short:   Start an interactive chat session
// Aliases: repl
//
// Examples:
//   askai                         Start interactive chat
//   askai chat --provider groq    Chat with another backend
//
// Interactive Commands (during chat):
//   /attach [name]      Attach a note; without a name, the active note
//   /detach name        Remove an attachment
//   /attachments        List attachments and the active note
//   /search query       Find notes by name
//   /edit               Edit the last reply in place
//   /reset              Start over (drops attachments)
//   /history            Show the conversation
//   /help, /h           Show available commands
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/askai/internal/config"
	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/util"
	"github.com/jeranaias/askai/internal/vault"
)

// replyChrome is the control strip shown after a finished reply.
const replyChrome = "✎⧉↵⤓"

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads the saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile, err := config.HistoryPath()
	if err != nil {
		historyFile = ""
	}

	c := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// PromptWithSuggestion reads a line pre-filled with text.
func (c *ChatCLI) PromptWithSuggestion(prompt, text string, pos int) (string, error) {
	return c.line.PromptWithSuggestion(prompt, text, pos)
}

// SaveHistory persists command history, owner read/write only.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// lineEditor is the part of ChatCLI /edit needs.
type lineEditor interface {
	PromptWithSuggestion(prompt, text string, pos int) (string, error)
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state of one interactive chat.
type ChatSession struct {
	app    *App
	out    io.Writer
	status io.Writer
	md     *markdownRenderer
	editor lineEditor

	quiet     bool
	startTime time.Time
	sent      int
	chars     int
}

func newChatSession(app *App, args Args, out, status io.Writer, editor lineEditor) *ChatSession {
	return &ChatSession{
		app:       app,
		out:       out,
		status:    status,
		md:        newMarkdownRenderer(app.Config.UI.Markdown, app.Config.UI.Theme),
		editor:    editor,
		quiet:     args.Quiet,
		startTime: time.Now(),
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand runs the interactive REPL until /quit or Ctrl+D.
func HandleChatCommand(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	input := NewChatCLI()
	defer input.Close()

	cs := newChatSession(app, args, os.Stdout, os.Stderr, input)

	if app.Vault != nil {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w, err := app.Vault.Watch(ctx, vault.DefaultDebounce, func(n vault.Note) {
			app.Logger.Debug().Str("note", n.Path).Msg("active note changed")
		})
		if err != nil {
			app.Logger.Warn().Err(err).Msg("not watching notes directory")
		} else {
			defer w.Close()
		}
	}

	if !cs.quiet {
		printWelcome(cs)
	}

	// First Ctrl+C during a reply cancels it; at the prompt liner aborts.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if app.Session.Cancel() {
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		line, err := input.ReadInput(PromptStyle.Render("askai> "))
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				app.Logger.Debug().Err(err).Msg("prompt closed")
			}
			fmt.Println()
			printExitSummary(cs)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := handleSlashCommand(line, cs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				printExitSummary(cs)
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			printExitSummary(cs)
			return nil
		}

		if err := processMessage(cs, line); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage sends one message and prints the reply with its chrome.
func processMessage(cs *ChatSession, input string) error {
	res, err := runAsk(context.Background(), cs.app.Session, input, cs.md, false, cs.out, cs.status)
	if res.Job.Status != "" {
		cs.sent++
		cs.chars += res.Job.Chars
	}
	if res.Text != "" {
		fmt.Fprintln(cs.out, DimStyle.Render(replyChrome))
	}
	if err == nil && !cs.quiet {
		fmt.Fprintf(cs.status, "%s\n", DimStyle.Render(fmt.Sprintf("%s, %s chars, %s",
			providerLabel(cs.app.Config.ChatProvider()),
			formatNumber(res.Job.Chars),
			formatDurationShort(res.Job.Duration()))))
	}
	return err
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func handleSlashCommand(cmd string, cs *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cmd), parts[0]))

	switch command {
	case "/help", "/h", "/?", "/":
		printHelp(cs.out)
		return true, nil

	case "/attach", "/a":
		return true, attachCommand(cs, rest)

	case "/detach", "/d":
		if rest == "" {
			return true, ErrMissingArgument("name", "/detach Meeting.md")
		}
		if !cs.app.Session.Detach(rest) {
			return true, &NotFoundError{Resource: "attachment", ID: rest}
		}
		fmt.Fprintf(cs.out, "%s detached %s\n", CommandStyle.Render("[OK]"), rest)
		return true, nil

	case "/attachments", "/ls":
		printAttachments(cs)
		return true, nil

	case "/search", "/find":
		v, err := cs.app.RequireVault()
		if err != nil {
			return true, err
		}
		notes, err := v.Search(rest)
		if err != nil {
			return true, err
		}
		printNotes(cs.out, rest, notes)
		return true, nil

	case "/edit", "/e":
		return true, editCommand(cs)

	case "/reset", "/clear", "/c":
		cs.app.Session.Reset()
		fmt.Fprintln(cs.out, CommandStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/history":
		printHistory(cs)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

func attachCommand(cs *ChatSession, name string) error {
	var att model.Attachment
	var err error
	if name == "" {
		att, err = cs.app.Session.AttachActive()
	} else {
		att, err = cs.app.Session.Attach(name)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cs.out, "%s attached %s\n", CommandStyle.Render("[OK]"), RenderAttachment(att.Name, vault.DisplayWidth))
	return nil
}

// editCommand offers the last reply for editing and stores the result.
func editCommand(cs *ChatSession) error {
	if cs.editor == nil {
		return &TTYRequiredError{Operation: "edit"}
	}
	last, ok := cs.app.Session.LastReply()
	if !ok {
		return errors.New("no reply to edit yet")
	}

	rendered := last.Content + replyChrome
	edited, err := cs.editor.PromptWithSuggestion(DimStyle.Render("edit> "), escapeLineBreaks(last.Content), -1)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(cs.out, DimStyle.Render("[Edit discarded]"))
			return nil
		}
		return err
	}

	edited = unescapeLineBreaks(edited)
	if edited == last.Content {
		return nil
	}
	if !cs.app.Session.Edit(rendered, edited) {
		return errors.New("reply changed since it was shown; edit not applied")
	}
	fmt.Fprintln(cs.out, CommandStyle.Render("[Reply updated]"))
	return nil
}

// escapeLineBreaks shows line breaks as \n so a reply fits one input line.
func escapeLineBreaks(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func unescapeLineBreaks(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(cs *ChatSession) {
	cfg := cs.app.Config
	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, TitleStyle.Render("askai interactive chat"))
	fmt.Fprintln(cs.out, RenderSeparator(30))
	fmt.Fprintf(cs.out, "%s %s\n", RenderLabel("Chat:"), CommandStyle.Render(providerLabel(cfg.ChatProvider())))
	fmt.Fprintf(cs.out, "%s %s\n", RenderLabel("Expand:"), CommandStyle.Render(providerLabel(cfg.CompletionProvider())))
	if cs.app.Vault != nil {
		fmt.Fprintf(cs.out, "%s %s\n", RenderLabel("Notes:"), ValueStyle.Render(cs.app.Vault.Root()))
	} else {
		fmt.Fprintf(cs.out, "%s %s\n", RenderLabel("Notes:"), WarningStyle.Render("none (set vault.dir)"))
	}
	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(cs.out)
}

// printHelp prints available commands.
func printHelp(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Available Commands"))
	fmt.Fprintln(w, RenderSeparator(20))
	fmt.Fprintln(w)

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/attach [name]", "Attach a note (default: the active note)"},
		{"/detach name", "Remove an attachment"},
		{"/attachments", "List attachments"},
		{"/search query", "Find notes by name"},
		{"/edit", "Edit the last reply"},
		{"/reset", "Start a new conversation"},
		{"/history", "Show conversation history"},
		{"/help, /h", "Show this help"},
		{"/quit, /q", "Exit chat"},
	}
	for _, c := range commands {
		fmt.Fprintf(w, "  %s  %s\n",
			CommandStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			DimStyle.Render(c.desc))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, DimStyle.Render("Tip: Ctrl+C cancels current generation, Ctrl+D exits"))
	fmt.Fprintln(w)
}

func printAttachments(cs *ChatSession) {
	atts := cs.app.Session.Attachments()
	if len(atts) == 0 {
		fmt.Fprintln(cs.out, DimStyle.Render("[No attachments]"))
	}
	for _, a := range atts {
		fmt.Fprintf(cs.out, "  %s %s\n",
			RenderAttachment(a.Name, vault.DisplayWidth),
			DimStyle.Render(formatNumber(len(a.Content))+" bytes"))
	}
	if cs.app.Vault == nil {
		return
	}
	if active, err := cs.app.Vault.Active(); err == nil {
		fmt.Fprintf(cs.out, "%s %s\n", RenderLabel("Active note:"), ValueStyle.Render(active.DisplayName()))
	}
}

// printHistory prints conversation history.
func printHistory(cs *ChatSession) {
	turns := cs.app.Session.Turns()
	if len(turns) <= 1 {
		fmt.Fprintln(cs.out, DimStyle.Render("[No messages yet]"))
		return
	}

	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, TitleStyle.Render("Conversation History"))
	fmt.Fprintln(cs.out, RenderSeparator(25))
	fmt.Fprintln(cs.out)

	for i, t := range turns[1:] {
		var role string
		switch t.Role {
		case model.RoleUser:
			role = PromptStyle.Render("You")
		case model.RoleAssistant:
			role = AttachmentStyle.Render("AI")
		default:
			role = WarningStyle.Render("Note")
		}
		content := strings.ReplaceAll(util.TruncateRunes(t.Content, 100), "\n", " ")
		fmt.Fprintf(cs.out, "  %d. %s: %s\n", i+1, role, content)
	}
	fmt.Fprintln(cs.out)
}

// printExitSummary prints the session summary on exit.
func printExitSummary(cs *ChatSession) {
	if cs.sent == 0 || cs.quiet {
		fmt.Fprintln(cs.out, DimStyle.Render("Goodbye!"))
		return
	}

	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, TitleStyle.Render("Session Summary"))
	fmt.Fprintln(cs.out, RenderSeparator(15))
	fmt.Fprintf(cs.out, "  %s %d\n", RenderLabel("Messages:"), cs.sent)
	fmt.Fprintf(cs.out, "  %s %s\n", RenderLabel("Reply chars:"), formatNumber(cs.chars))
	fmt.Fprintf(cs.out, "  %s %s\n", RenderLabel("Duration:"), time.Since(cs.startTime).Round(time.Second))
	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, DimStyle.Render("Goodbye!"))
}
