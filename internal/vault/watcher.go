// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a note must be quiet before a change counts.
const DefaultDebounce = 250 * time.Millisecond

// Watcher follows edits in the vault: the note written last becomes the
// active note, and a removed active note is forgotten.
type Watcher struct {
	vault    *Vault
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(Note)

	mu      sync.Mutex
	pending map[string]time.Time

	cancel context.CancelFunc
	done   sync.WaitGroup
}

// Watch starts watching the vault. onChange, if not nil, is called from
// the watcher goroutine with each note that became active.
func (v *Vault) Watch(ctx context.Context, debounce time.Duration, onChange func(Note)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		vault:    v,
		watcher:  fw,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]time.Time),
		cancel:   cancel,
	}
	if err := w.addRecursive(v.root); err != nil {
		cancel()
		fw.Close()
		return nil, err
	}

	w.done.Add(2)
	go w.processEvents(ctx)
	go w.processPending(ctx)
	return w, nil
}

// Close stops the watcher and waits for its goroutines.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.done.Wait()
	return err
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.vault.root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.vault.logger.Debug().Err(err).Str("dir", path).Msg("watch failed")
		}
		return nil
	})
}

func (w *Watcher) relPath(path string) (string, bool) {
	rel, err := filepath.Rel(w.vault.root, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.done.Done()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !skipDir(filepath.Base(event.Name)) {
						w.addRecursive(event.Name)
					}
					continue
				}
				if !w.vault.isNote(event.Name) {
					continue
				}
				w.mu.Lock()
				w.pending[event.Name] = time.Now()
				w.mu.Unlock()

			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				w.mu.Lock()
				delete(w.pending, event.Name)
				w.mu.Unlock()
				if rel, ok := w.relPath(event.Name); ok {
					w.vault.clearActive(rel)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.vault.logger.Warn().Err(err).Msg("vault watcher error")
		}
	}
}

func (w *Watcher) processPending(ctx context.Context) {
	defer w.done.Done()
	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			var ready []string
			w.mu.Lock()
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				rel, ok := w.relPath(path)
				if !ok {
					continue
				}
				if err := w.vault.SetActive(rel); err != nil {
					continue
				}
				w.vault.logger.Debug().Str("note", rel).Msg("active note changed")
				if w.onChange != nil {
					if note, err := w.vault.Resolve(rel); err == nil {
						w.onChange(note)
					}
				}
			}
		}
	}
}
