// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Activity log levels
const (
	ActivityLevelInfo    = "info"
	ActivityLevelWarning = "warning"
	ActivityLevelError   = "error"
)

// Activity log categories
const (
	ActivityCategoryAuth     = "auth"
	ActivityCategoryEvent    = "event"
	ActivityCategorySettings = "settings"
	ActivityCategoryCache    = "cache"
	ActivityCategorySystem   = "system"
)

// ActivityLog is a persisted audit entry.
type ActivityLog struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string // JSON string
	CreatedAt time.Time
}
