// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that copies warnings and errors
// into the activity log table for auditing.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/store"
)

// ActivityLogHandler is a slog.Handler that wraps another handler and also
// writes records at or above its level to the activity_log table.
type ActivityLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
	group   string
}

// NewActivityLogHandler wraps inner, persisting WARN and above.
func NewActivityLogHandler(inner slog.Handler, db *sql.DB) *ActivityLogHandler {
	return NewActivityLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewActivityLogHandlerWithLevel wraps inner with a custom persistence threshold.
func NewActivityLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *ActivityLogHandler {
	return &ActivityLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *ActivityLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ActivityLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.persist(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *ActivityLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *ActivityLogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *ActivityLogHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}

// persist writes r to the activity log. Failures are dropped: the record
// already reached the inner handler.
func (h *ActivityLogHandler) persist(r slog.Record) {
	attrs := append([]slog.Attr(nil), h.attrs...)
	var own []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		own = append(own, a)
		return true
	})
	attrs = append(attrs, h.qualify(own)...)

	var (
		category string
		userID   sql.NullInt64
	)
	metadata := make(map[string]string, len(attrs))
	for _, a := range attrs {
		switch a.Key {
		case "category":
			category = a.Value.String()
		case "user_id":
			if a.Value.Kind() == slog.KindInt64 {
				userID = sql.NullInt64{Int64: a.Value.Int64(), Valid: true}
			}
			metadata[a.Key] = a.Value.String()
		default:
			metadata[a.Key] = a.Value.String()
		}
	}
	if category == "" {
		category = inferCategory(r.Message)
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		encoded = []byte("{}")
	}

	createdAt := r.Time
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	// Background context: the entry must be written even when the request was cancelled.
	_, _ = h.queries.CreateActivityLog(context.Background(), store.CreateActivityLogParams{
		Level:     levelName(r.Level),
		Category:  category,
		Message:   r.Message,
		UserID:    userID,
		Metadata:  string(encoded),
		CreatedAt: createdAt.UTC(),
	})
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.ActivityLevelError
	case level >= slog.LevelWarn:
		return model.ActivityLevelWarning
	default:
		return model.ActivityLevelInfo
	}
}

// inferCategory guesses a category from the message when none was attached.
func inferCategory(msg string) string {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "logout") || strings.Contains(msg, "auth"):
		return model.ActivityCategoryAuth
	case strings.Contains(msg, "setting"):
		return model.ActivityCategorySettings
	case strings.Contains(msg, "event"):
		return model.ActivityCategoryEvent
	case strings.Contains(msg, "cache"):
		return model.ActivityCategoryCache
	default:
		return model.ActivityCategorySystem
	}
}
