// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Predefined hook names for common events.
const (
	// HookEventSidemenuAdvanced collects entries for the "advanced" section
	// of an event's management side menu. Handlers receive a *sidemenu.Request
	// and return a sidemenu.Entry.
	HookEventSidemenuAdvanced = "event_management.sidemenu_advanced"

	// HookEventBeforeDelete fires before an event row is removed, while its
	// settings are still readable. Handlers receive the event ID as int64;
	// an error aborts the deletion.
	HookEventBeforeDelete = "event.before_delete"

	// HookEventAfterDelete fires after an event row is removed. Handlers
	// receive the deleted event ID as int64.
	HookEventAfterDelete = "event.after_delete"
)

// HookFunc handles one hook dispatch. For Call the returned value replaces
// the data seen by the next handler; for Collect it is gathered.
type HookFunc func(ctx context.Context, data any) (any, error)

// HookHandler is a HookFunc with the metadata used for ordering, logging
// and the active-module check.
type HookHandler struct {
	Name     string
	Module   string
	Priority int // lower runs first; ties keep registration order
	Fn       HookFunc
}

// IsModuleActiveFunc reports whether the named module is active.
type IsModuleActiveFunc func(moduleName string) bool

// HookRegistry dispatches named hooks to the handlers modules registered.
type HookRegistry struct {
	mu             sync.RWMutex
	hooks          map[string][]HookHandler
	isModuleActive IsModuleActiveFunc
	logger         *slog.Logger
}

// NewHookRegistry creates a registry in which every module counts as active.
func NewHookRegistry(logger *slog.Logger) *HookRegistry {
	return &HookRegistry{
		hooks:          make(map[string][]HookHandler),
		isModuleActive: func(string) bool { return true },
		logger:         logger,
	}
}

// SetIsModuleActive replaces the active-module check.
func (h *HookRegistry) SetIsModuleActive(fn IsModuleActiveFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isModuleActive = fn
}

// Register adds handler to hookName.
func (h *HookRegistry) Register(hookName string, handler HookHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A fresh slice each time: dispatch iterates over snapshots unlocked.
	handlers := append(slices.Clone(h.hooks[hookName]), handler)
	slices.SortStableFunc(handlers, func(a, b HookHandler) int { return a.Priority - b.Priority })
	h.hooks[hookName] = handlers

	h.logger.Debug("hook registered", "hook", hookName, "handler", handler.Name, "module", handler.Module, "priority", handler.Priority)
}

// RegisterFunc registers fn with priority 0.
func (h *HookRegistry) RegisterFunc(hookName, handlerName, moduleName string, fn HookFunc) {
	h.Register(hookName, HookHandler{Name: handlerName, Module: moduleName, Fn: fn})
}

// dispatch runs the active handlers of hookName in order, feeding each
// the value returned by input and passing its result to output. The first
// error stops the dispatch.
func (h *HookRegistry) dispatch(ctx context.Context, hookName string, input func() any, output func(any)) error {
	h.mu.RLock()
	handlers := h.hooks[hookName]
	isActive := h.isModuleActive
	h.mu.RUnlock()

	for _, handler := range handlers {
		if !isActive(handler.Module) {
			h.logger.Debug("skipping hook handler of inactive module", "hook", hookName, "handler", handler.Name, "module", handler.Module)
			continue
		}
		result, err := handler.Fn(ctx, input())
		if err != nil {
			h.logger.Error("hook handler error", "hook", hookName, "handler", handler.Name, "module", handler.Module, "error", err)
			return fmt.Errorf("hook %s handler %s: %w", hookName, handler.Name, err)
		}
		output(result)
	}
	return nil
}

// Call runs hookName as a pipeline: each handler receives the previous
// handler's result, and the last result is returned. Without handlers the
// data comes back unchanged.
func (h *HookRegistry) Call(ctx context.Context, hookName string, data any) (any, error) {
	current := data
	err := h.dispatch(ctx, hookName,
		func() any { return current },
		func(result any) { current = result },
	)
	if err != nil {
		return nil, err
	}
	return current, nil
}

// Collect gives every handler of hookName the same data and returns their
// results in execution order.
func (h *HookRegistry) Collect(ctx context.Context, hookName string, data any) ([]any, error) {
	var results []any
	err := h.dispatch(ctx, hookName,
		func() any { return data },
		func(result any) { results = append(results, result) },
	)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CallNoResult runs hookName as a notification and reports only the error.
func (h *HookRegistry) CallNoResult(ctx context.Context, hookName string, data any) error {
	_, err := h.Call(ctx, hookName, data)
	return err
}

// HasHandlers reports whether any handler is registered for hookName.
func (h *HookRegistry) HasHandlers(hookName string) bool {
	return h.HandlerCount(hookName) > 0
}

// HandlerCount returns the number of handlers registered for hookName.
func (h *HookRegistry) HandlerCount(hookName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks[hookName])
}

// HookInfo lists the handlers of one hook.
type HookInfo struct {
	Name     string            `json:"name"`
	Handlers []HookHandlerInfo `json:"handlers"`
}

// HookHandlerInfo describes a registered handler.
type HookHandlerInfo struct {
	Name     string `json:"name"`
	Module   string `json:"module"`
	Priority int    `json:"priority"`
}

// ListHookInfo returns every hook with its handlers, sorted by hook name.
func (h *HookRegistry) ListHookInfo() []HookInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]HookInfo, 0, len(h.hooks))
	for _, name := range slices.Sorted(maps.Keys(h.hooks)) {
		info := HookInfo{Name: name}
		for _, handler := range h.hooks[name] {
			info.Handlers = append(info.Handlers, HookHandlerInfo{
				Name:     handler.Name,
				Module:   handler.Module,
				Priority: handler.Priority,
			})
		}
		infos = append(infos, info)
	}
	return infos
}

// UnregisterAll removes every handler registered by moduleName.
func (h *HookRegistry) UnregisterAll(moduleName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for name, handlers := range h.hooks {
		h.hooks[name] = slices.DeleteFunc(slices.Clone(handlers), func(handler HookHandler) bool {
			return handler.Module == moduleName
		})
	}
	h.logger.Debug("hooks unregistered", "module", moduleName)
}
