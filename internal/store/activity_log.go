// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/eventdesk/internal/model"
)

// CreateActivityLogParams holds the fields for CreateActivityLog.
type CreateActivityLogParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	CreatedAt time.Time
}

func scanActivityLog(row rowScanner) (model.ActivityLog, error) {
	var a model.ActivityLog
	err := row.Scan(&a.ID, &a.Level, &a.Category, &a.Message, &a.UserID, &a.Metadata, &a.CreatedAt)
	return a, err
}

// CreateActivityLog inserts an activity log entry.
func (q *Queries) CreateActivityLog(ctx context.Context, arg CreateActivityLogParams) (model.ActivityLog, error) {
	if arg.Metadata == "" {
		arg.Metadata = "{}"
	}
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO activity_log (level, category, message, user_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, level, category, message, user_id, metadata, created_at`,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.CreatedAt,
	)
	return scanActivityLog(row)
}

// ListActivityLogs returns the most recent entries, newest first.
func (q *Queries) ListActivityLogs(ctx context.Context, limit int64) ([]model.ActivityLog, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, level, category, message, user_id, metadata, created_at
		FROM activity_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var logs []model.ActivityLog
	for rows.Next() {
		a, err := scanActivityLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, a)
	}
	return logs, rows.Err()
}
