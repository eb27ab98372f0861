// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package routes resolves named routes back into URLs.
//
// Patterns use chi's {param} syntax so the same string can be passed to the
// router and registered here.
package routes

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrUnknownRoute is returned when no route was registered under a name.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrMissingParam is returned when a pattern placeholder has no value.
	ErrMissingParam = errors.New("missing route parameter")
)

// Route names shared between packages.
const (
	EventLayoutIndex = "event_layout.index"
	EventLayoutMenu  = "event_layout.menu"
	EventLayoutLogo  = "event_layout.logo"
	EventManage      = "event_management.index"
)

// ParamEventID is the URL parameter holding an event ID.
const ParamEventID = "event_id"

var placeholder = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)(?::[^}]*)?\}`)

// Table maps route names to URL patterns.
type Table struct {
	patterns map[string]string
	mu       sync.RWMutex
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{patterns: make(map[string]string)}
}

// Add registers pattern under name and returns the pattern, so the call can
// be inlined into router registration.
func (t *Table) Add(name, pattern string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.patterns[name] = pattern
	return pattern
}

// Pattern returns the pattern registered under name.
func (t *Table) Pattern(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.patterns[name]
	return p, ok
}

// URL builds the path of route name. Params fill the {placeholders};
// params not used by the pattern become the query string.
func (t *Table) URL(name string, params map[string]string) (string, error) {
	pattern, ok := t.Pattern(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}

	used := make(map[string]bool)
	var missing []string
	path := placeholder.ReplaceAllStringFunc(pattern, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := params[key]
		if !ok || v == "" {
			missing = append(missing, key)
			return m
		}
		used[key] = true
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s needs %s", ErrMissingParam, name, strings.Join(missing, ", "))
	}

	query := url.Values{}
	for k, v := range params {
		if !used[k] {
			query.Set(k, v)
		}
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path, nil
}

// EventURL builds the path of an event-scoped route.
func (t *Table) EventURL(name string, eventID int64) (string, error) {
	return t.URL(name, map[string]string{ParamEventID: strconv.FormatInt(eventID, 10)})
}
