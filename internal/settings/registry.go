// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package settings

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry indexes the declared namespaces so collaborators can look a
// schema up by module name.
type Registry struct {
	proxies map[string]*EventProxy
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{proxies: make(map[string]*EventProxy)}
}

// Register adds p. Each namespace may be registered once.
func (r *Registry) Register(p *EventProxy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.proxies[p.Module()]; exists {
		return fmt.Errorf("settings namespace %q already registered", p.Module())
	}
	r.proxies[p.Module()] = p
	return nil
}

// Lookup returns the proxy of module.
func (r *Registry) Lookup(module string) (*EventProxy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.proxies[module]
	return p, ok
}

// Modules returns the registered namespace names, sorted.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.proxies))
}
