// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"bytes"
	"context"
	"html/template"
)

// Announcement renders the event announcement as sanitised HTML. It returns
// an empty string when the announcement is hidden, empty, or fails to load.
func (m *Module) Announcement(ctx context.Context, eventID int64) template.HTML {
	s, err := Load(ctx, m.proxy, eventID)
	if err != nil {
		m.ctx.Logger.Warn("failed to load announcement", "event_id", eventID, "error", err)
		return ""
	}
	if !s.ShowAnnouncement || s.Announcement == nil || *s.Announcement == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := m.markdown.Convert([]byte(*s.Announcement), &buf); err != nil {
		m.ctx.Logger.Warn("failed to render announcement", "event_id", eventID, "error", err)
		return ""
	}
	return template.HTML(m.sanitizer.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitised by bluemonday
}
