// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sidemenu assembles the event management side menu from the
// entries that modules contribute through the side-menu hook.
package sidemenu

import (
	"context"
	"errors"
	"fmt"

	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/module"
)

// ErrDuplicateKey is returned when two handlers contribute the same section key.
var ErrDuplicateKey = errors.New("duplicate side menu key")

// Item is one entry of the side menu.
type Item struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Visible bool   `json:"visible"`
	Active  bool   `json:"active,omitempty"`
}

// NewItem creates a menu item.
func NewItem(label, url string, visible bool) Item {
	return Item{Label: label, URL: url, Visible: visible}
}

// Entry pairs a section key with its item. Side-menu hook handlers return one.
type Entry struct {
	Key  string `json:"key"`
	Item Item   `json:"item"`
}

// ArgLang is the dispatch argument holding the language labels are shown in.
const ArgLang = "lang"

// Request is the payload dispatched to side-menu hook handlers.
type Request struct {
	Event *model.Event
	User  *model.User
	// Args carries optional dispatch arguments. Handlers may ignore them.
	Args map[string]any
}

// Lang returns the ArgLang argument, or "" when none was given.
func (r *Request) Lang() string {
	lang, _ := r.Args[ArgLang].(string)
	return lang
}

// Menu is the assembled side menu, in dispatch order.
type Menu struct {
	Entries []Entry `json:"entries"`
}

// Get returns the item contributed under key.
func (m *Menu) Get(key string) (Item, bool) {
	for _, e := range m.Entries {
		if e.Key == key {
			return e.Item, true
		}
	}
	return Item{}, false
}

// Keys returns the section keys in menu order.
func (m *Menu) Keys() []string {
	keys := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Visible returns only the entries whose item is visible.
func (m *Menu) Visible() []Entry {
	var visible []Entry
	for _, e := range m.Entries {
		if e.Item.Visible {
			visible = append(visible, e)
		}
	}
	return visible
}

// SetActive marks the entry under key as the current page.
func (m *Menu) SetActive(key string) {
	for i := range m.Entries {
		m.Entries[i].Item.Active = m.Entries[i].Key == key
	}
}

// Build dispatches module.HookEventSidemenuAdvanced for event and collects
// the contributed entries. Handler errors abort the build.
func Build(ctx context.Context, hooks *module.HookRegistry, event *model.Event, user *model.User, args map[string]any) (*Menu, error) {
	if event == nil {
		return nil, errors.New("building side menu: nil event")
	}
	results, err := hooks.Collect(ctx, module.HookEventSidemenuAdvanced, &Request{
		Event: event,
		User:  user,
		Args:  args,
	})
	if err != nil {
		return nil, fmt.Errorf("building side menu for event %d: %w", event.ID, err)
	}

	menu := &Menu{Entries: make([]Entry, 0, len(results))}
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		entry, ok := r.(Entry)
		if !ok {
			return nil, fmt.Errorf("side menu handler returned %T, want sidemenu.Entry", r)
		}
		if seen[entry.Key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, entry.Key)
		}
		seen[entry.Key] = true
		menu.Entries = append(menu.Entries, entry)
	}
	return menu, nil
}

// RequestFrom extracts the side-menu payload inside a hook handler.
func RequestFrom(data any) (*Request, error) {
	req, ok := data.(*Request)
	if !ok || req == nil || req.Event == nil {
		return nil, fmt.Errorf("side menu hook payload is %T, want *sidemenu.Request with an event", data)
	}
	return req, nil
}
