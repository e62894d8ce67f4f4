// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/util"
)

// Search limits.
const (
	MinQueryLength = 2
	MaxResults     = 3
)

// DisplayWidth is the widest an attachment name is shown.
const DisplayWidth = 30

var (
	// ErrNotFound is returned when no note matches a name.
	ErrNotFound = errors.New("vault: note not found")

	// ErrAmbiguous is returned when a bare file name matches several notes.
	ErrAmbiguous = errors.New("vault: note name is ambiguous")

	// ErrNoActive is returned when the vault has no notes to make active.
	ErrNoActive = errors.New("vault: no active note")

	// ErrOutsideVault is returned for paths that escape the root.
	ErrOutsideVault = errors.New("vault: path is outside the vault")
)

// Note is one file in the vault.
type Note struct {
	// Name is the file name, e.g. "Meeting.md".
	Name string
	// Path is relative to the vault root with forward slashes.
	Path    string
	ModTime time.Time
	Size    int64
}

// DisplayName returns the name cut to DisplayWidth columns.
func (n Note) DisplayName() string {
	return util.TruncateWidth(n.Name, DisplayWidth)
}

// =============================================================================
// VAULT
// =============================================================================

// Vault is a directory of notes.
type Vault struct {
	root   string
	exts   map[string]bool
	logger zerolog.Logger

	mu     sync.RWMutex
	active string
}

// Open creates a Vault rooted at dir. extensions lists the file suffixes
// counted as notes; empty means ".md".
func Open(dir string, extensions []string, logger zerolog.Logger) (*Vault, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: %s is not a directory", root)
	}

	if len(extensions) == 0 {
		extensions = []string{".md"}
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}

	return &Vault{
		root:   root,
		exts:   exts,
		logger: logger.With().Str("component", "vault").Logger(),
	}, nil
}

// Root returns the absolute vault directory.
func (v *Vault) Root() string {
	return v.root
}

func (v *Vault) isNote(name string) bool {
	return v.exts[strings.ToLower(filepath.Ext(name))]
}

// skipDir reports whether a directory is hidden (".git", ".obsidian").
func skipDir(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}

// Notes lists every note sorted by path.
func (v *Vault) Notes() ([]Note, error) {
	var notes []Note
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == v.root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != v.root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !v.isNote(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return nil
		}
		notes = append(notes, Note{
			Name:    d.Name(),
			Path:    filepath.ToSlash(rel),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault: list notes: %w", err)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	return notes, nil
}

// Search returns up to MaxResults notes whose file name contains query,
// ignoring case. Queries shorter than MinQueryLength return nothing.
func (v *Vault) Search(query string) ([]Note, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, nil
	}
	notes, err := v.Notes()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var out []Note
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Name), needle) {
			out = append(out, n)
			if len(out) == MaxResults {
				break
			}
		}
	}
	return out, nil
}

// Resolve finds a note by relative path or by bare file name.
func (v *Vault) Resolve(name string) (Note, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Note{}, ErrNotFound
	}
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(name)))
	if clean == ".." || strings.HasPrefix(clean, "../") || filepath.IsAbs(name) {
		return Note{}, fmt.Errorf("%w: %s", ErrOutsideVault, name)
	}

	notes, err := v.Notes()
	if err != nil {
		return Note{}, err
	}
	var byName []Note
	for _, n := range notes {
		if n.Path == clean {
			return n, nil
		}
		if strings.EqualFold(n.Name, clean) {
			byName = append(byName, n)
		}
	}
	switch len(byName) {
	case 0:
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	case 1:
		return byName[0], nil
	default:
		paths := make([]string, len(byName))
		for i, n := range byName {
			paths[i] = n.Path
		}
		return Note{}, fmt.Errorf("%w: %s matches %s", ErrAmbiguous, name, strings.Join(paths, ", "))
	}
}

// Read loads a note as an attachment named by its file name.
func (v *Vault) Read(name string) (model.Attachment, error) {
	note, err := v.Resolve(name)
	if err != nil {
		return model.Attachment{}, err
	}
	data, err := os.ReadFile(filepath.Join(v.root, filepath.FromSlash(note.Path)))
	if err != nil {
		return model.Attachment{}, fmt.Errorf("vault: read %s: %w", note.Path, err)
	}
	v.logger.Debug().Str("note", note.Path).Int("bytes", len(data)).Msg("read note")
	return model.Attachment{Name: note.Name, Content: string(data)}, nil
}

// SetActive selects the active note.
func (v *Vault) SetActive(name string) error {
	note, err := v.Resolve(name)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.active = note.Path
	v.mu.Unlock()
	return nil
}

// clearActive forgets the selection if it is path.
func (v *Vault) clearActive(path string) {
	v.mu.Lock()
	if v.active == path {
		v.active = ""
	}
	v.mu.Unlock()
}

// Active returns the selected note, or else the most recently modified one.
func (v *Vault) Active() (Note, error) {
	v.mu.RLock()
	selected := v.active
	v.mu.RUnlock()

	if selected != "" {
		if note, err := v.Resolve(selected); err == nil {
			return note, nil
		}
		v.clearActive(selected)
	}

	notes, err := v.Notes()
	if err != nil {
		return Note{}, err
	}
	if len(notes) == 0 {
		return Note{}, ErrNoActive
	}
	latest := notes[0]
	for _, n := range notes[1:] {
		if n.ModTime.After(latest.ModTime) {
			latest = n
		}
	}
	return latest, nil
}

// ReadActive loads the active note.
func (v *Vault) ReadActive() (model.Attachment, error) {
	note, err := v.Active()
	if err != nil {
		return model.Attachment{}, err
	}
	return v.Read(note.Path)
}
