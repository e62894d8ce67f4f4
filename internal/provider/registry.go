// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry selects an adapter by the provider name in configuration.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates a registry holding adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Name().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Lookup returns the adapter for name.
func (r *Registry) Lookup(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, Missing("", "provider")
	}
	a, ok := r.adapters[key]
	if !ok {
		return nil, Invalid(key, "provider", fmt.Sprintf("unknown provider %q (available: %s)",
			name, strings.Join(r.namesLocked(), ", ")))
	}
	return a, nil
}

// LookupCompleter returns the adapter for name when it can continue a
// document.
func (r *Registry) LookupCompleter(name string) (Adapter, Completer, error) {
	a, err := r.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	c, ok := a.(Completer)
	if !ok {
		return nil, nil, Invalid(a.Name(), "completion_provider", "provider does not support inline completion")
	}
	return a, c, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
