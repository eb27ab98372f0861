// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package settings stores namespaced, per-event settings with declared defaults.
//
// A module declares its namespace once with NewEventProxy, listing every
// recognised setting and its default. Reads fall back to the default when
// no value was stored for the event; writes store JSON-encoded overrides.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/olegiv/eventdesk/internal/cache"
	"github.com/olegiv/eventdesk/internal/store"
)

// ErrUnknownSetting is returned for names not declared in the namespace.
var ErrUnknownSetting = errors.New("unknown setting")

// Store is the persistence used by EventProxy. *store.Queries satisfies it.
type Store interface {
	ListEventSettings(ctx context.Context, eventID int64, module string) ([]store.EventSetting, error)
	// UpsertEventSettings stores all of args or none of them.
	UpsertEventSettings(ctx context.Context, args []store.UpsertEventSettingParams) error
	DeleteEventSetting(ctx context.Context, eventID int64, module, name string) error
	DeleteEventSettings(ctx context.Context, eventID int64, module string) error
}

// EventProxy reads and writes one settings namespace scoped by event.
// The declared defaults never change after construction.
type EventProxy struct {
	module   string
	defaults map[string]any
	store    Store
	cache    cache.Cache
	logger   *slog.Logger
	cacheTTL time.Duration

	// fillMu orders cache fills against invalidations. writes counts
	// invalidations; a read only fills the cache if none happened since
	// it loaded its rows.
	fillMu sync.Mutex
	writes uint64
}

// Option configures an EventProxy.
type Option func(*EventProxy)

// WithCache caches each event's stored values in c.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *EventProxy) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithLogger sets the logger used for cache failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *EventProxy) {
		p.logger = logger
	}
}

// NewEventProxy declares the namespace module with the given defaults.
// A nil default declares a nullable setting.
func NewEventProxy(module string, defaults map[string]any, s Store, opts ...Option) *EventProxy {
	p := &EventProxy{
		module:   module,
		defaults: maps.Clone(defaults),
		store:    s,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Module returns the namespace name.
func (p *EventProxy) Module() string { return p.module }

// Names returns the declared setting names, sorted.
func (p *EventProxy) Names() []string {
	return slices.Sorted(maps.Keys(p.defaults))
}

// Has reports whether name is declared.
func (p *EventProxy) Has(name string) bool {
	_, ok := p.defaults[name]
	return ok
}

// Default returns the declared default of name.
func (p *EventProxy) Default(name string) (any, error) {
	v, ok := p.defaults[name]
	if !ok {
		return nil, p.unknown(name)
	}
	return v, nil
}

// Defaults returns a copy of all declared defaults.
func (p *EventProxy) Defaults() map[string]any {
	return maps.Clone(p.defaults)
}

// Get returns the value of name for eventID, or its default when unset.
func (p *EventProxy) Get(ctx context.Context, eventID int64, name string) (any, error) {
	if !p.Has(name) {
		return nil, p.unknown(name)
	}

	stored, err := p.stored(ctx, eventID)
	if err != nil {
		return nil, err
	}
	raw, ok := stored[name]
	if !ok {
		return p.defaults[name], nil
	}
	return p.decode(name, raw)
}

// GetAll returns every declared setting for eventID, defaults filled in.
func (p *EventProxy) GetAll(ctx context.Context, eventID int64) (map[string]any, error) {
	stored, err := p.stored(ctx, eventID)
	if err != nil {
		return nil, err
	}

	all := maps.Clone(p.defaults)
	for name, raw := range stored {
		if !p.Has(name) {
			// Left over from a setting that is no longer declared.
			continue
		}
		v, err := p.decode(name, raw)
		if err != nil {
			return nil, err
		}
		all[name] = v
	}
	return all, nil
}

// Set stores value for name on eventID.
func (p *EventProxy) Set(ctx context.Context, eventID int64, name string, value any) error {
	return p.SetMulti(ctx, eventID, map[string]any{name: value})
}

// SetMulti stores several values at once. Either every value is written or,
// on any error, none is.
func (p *EventProxy) SetMulti(ctx context.Context, eventID int64, values map[string]any) error {
	encoded := make(map[string]string, len(values))
	for name, value := range values {
		if !p.Has(name) {
			return p.unknown(name)
		}
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding setting %s.%s: %w", p.module, name, err)
		}
		encoded[name] = string(b)
	}

	now := time.Now().UTC()
	args := make([]store.UpsertEventSettingParams, 0, len(encoded))
	for _, name := range slices.Sorted(maps.Keys(encoded)) {
		args = append(args, store.UpsertEventSettingParams{
			EventID:   eventID,
			Module:    p.module,
			Name:      name,
			Value:     encoded[name],
			UpdatedAt: now,
		})
	}

	defer p.invalidate(ctx, eventID)
	if err := p.store.UpsertEventSettings(ctx, args); err != nil {
		return fmt.Errorf("storing %s settings for event %d: %w", p.module, eventID, err)
	}
	return nil
}

// Delete reverts the given names to their defaults for eventID.
func (p *EventProxy) Delete(ctx context.Context, eventID int64, names ...string) error {
	for _, name := range names {
		if !p.Has(name) {
			return p.unknown(name)
		}
	}
	defer p.invalidate(ctx, eventID)

	for _, name := range names {
		if err := p.store.DeleteEventSetting(ctx, eventID, p.module, name); err != nil {
			return fmt.Errorf("deleting setting %s.%s for event %d: %w", p.module, name, eventID, err)
		}
	}
	return nil
}

// DeleteAll removes every stored value of the namespace for eventID.
func (p *EventProxy) DeleteAll(ctx context.Context, eventID int64) error {
	defer p.invalidate(ctx, eventID)

	if err := p.store.DeleteEventSettings(ctx, eventID, p.module); err != nil {
		return fmt.Errorf("deleting %s settings for event %d: %w", p.module, eventID, err)
	}
	return nil
}

func (p *EventProxy) unknown(name string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownSetting, p.module, name)
}

// decode unmarshals a stored value. Numbers decode as float64 unless the
// declared default is an int.
func (p *EventProxy) decode(name, raw string) (any, error) {
	if _, isInt := p.defaults[name].(int); isInt {
		var n int
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			return n, nil
		}
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decoding setting %s.%s: %w", p.module, name, err)
	}
	return v, nil
}

func (p *EventProxy) cacheKey(eventID int64) string {
	return "settings:" + strconv.FormatInt(eventID, 10) + ":" + p.module
}

// stored returns the raw stored values of the namespace for eventID.
func (p *EventProxy) stored(ctx context.Context, eventID int64) (map[string]string, error) {
	if p.cache != nil {
		if b, err := p.cache.Get(ctx, p.cacheKey(eventID)); err == nil {
			var m map[string]string
			if err := json.Unmarshal(b, &m); err == nil {
				return m, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("settings cache read failed", "category", "cache", "module", p.module, "event_id", eventID, "error", err)
		}
	}

	gen := p.generation()
	rows, err := p.store.ListEventSettings(ctx, eventID, p.module)
	if err != nil {
		return nil, fmt.Errorf("loading %s settings for event %d: %w", p.module, eventID, err)
	}
	m := make(map[string]string, len(rows))
	for _, row := range rows {
		m[row.Name] = row.Value
	}

	if p.cache != nil {
		if b, err := json.Marshal(m); err == nil {
			p.fill(ctx, eventID, b, gen)
		}
	}
	return m, nil
}

func (p *EventProxy) generation() uint64 {
	p.fillMu.Lock()
	defer p.fillMu.Unlock()
	return p.writes
}

// fill caches b unless a write was invalidated after gen was taken, in
// which case b may predate it.
func (p *EventProxy) fill(ctx context.Context, eventID int64, b []byte, gen uint64) {
	p.fillMu.Lock()
	defer p.fillMu.Unlock()

	if p.writes != gen {
		return
	}
	if err := p.cache.Set(ctx, p.cacheKey(eventID), b, p.cacheTTL); err != nil {
		p.logger.Warn("settings cache write failed", "category", "cache", "module", p.module, "event_id", eventID, "error", err)
	}
}

func (p *EventProxy) invalidate(ctx context.Context, eventID int64) {
	if p.cache == nil {
		return
	}
	p.fillMu.Lock()
	defer p.fillMu.Unlock()

	p.writes++
	if err := p.cache.Delete(ctx, p.cacheKey(eventID)); err != nil {
		p.logger.Warn("settings cache invalidation failed", "category", "cache", "module", p.module, "event_id", eventID, "error", err)
	}
}
