// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// search.go - Note search for the attachment picker.
//
// Command: search
// Short:   Find notes whose name contains QUERY (case-insensitive)
//
// At most three notes are listed; queries shorter than two characters match
// nothing.

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/askai/internal/util"
	"github.com/jeranaias/askai/internal/vault"
)

// NoteView is the --json form of a note.
type NoteView struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	Modified    string `json:"modified"`
}

func newNoteView(n vault.Note) NoteView {
	return NoteView{
		Name:        n.Name,
		DisplayName: n.DisplayName(),
		Path:        n.Path,
		Size:        n.Size,
		Modified:    n.ModTime.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// HandleSearchCommand lists notes matching args.Query.
func HandleSearchCommand(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	v, err := app.RequireVault()
	if err != nil {
		return err
	}
	notes, err := v.Search(args.Query)
	if err != nil {
		return err
	}

	if args.JSON {
		views := make([]NoteView, 0, len(notes))
		for _, n := range notes {
			views = append(views, newNoteView(n))
		}
		return NewJSONResponse("search", views).Print()
	}

	printNotes(os.Stdout, args.Query, notes)
	return nil
}

// printNotes lists search results, names cut to the display width.
func printNotes(w io.Writer, query string, notes []vault.Note) {
	if len(notes) == 0 {
		if util.RuneLen(query) < vault.MinQueryLength {
			fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("[Type at least %d characters to search]", vault.MinQueryLength)))
			return
		}
		fmt.Fprintln(w, DimStyle.Render("[No matching notes]"))
		return
	}
	for _, n := range notes {
		fmt.Fprintf(w, "  %s  %s\n",
			CommandStyle.Render(util.PadRight(n.DisplayName(), vault.DisplayWidth)),
			DimStyle.Render(n.Path))
	}
}
