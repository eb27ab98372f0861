// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"
)

// EventSetting is one stored override of a namespaced event setting.
// Value holds the JSON encoding of the setting value.
type EventSetting struct {
	EventID   int64
	Module    string
	Name      string
	Value     string
	UpdatedAt time.Time
}

// UpsertEventSettingParams holds the fields for UpsertEventSetting.
type UpsertEventSettingParams struct {
	EventID   int64
	Module    string
	Name      string
	Value     string
	UpdatedAt time.Time
}

// ListEventSettings returns every stored setting of module for eventID.
func (q *Queries) ListEventSettings(ctx context.Context, eventID int64, module string) ([]EventSetting, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT event_id, module, name, value, updated_at
		FROM event_settings
		WHERE event_id = ? AND module = ?
		ORDER BY name`,
		eventID, module,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var settings []EventSetting
	for rows.Next() {
		var s EventSetting
		if err := rows.Scan(&s.EventID, &s.Module, &s.Name, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// UpsertEventSetting inserts or replaces a stored setting.
func (q *Queries) UpsertEventSetting(ctx context.Context, arg UpsertEventSettingParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO event_settings (event_id, module, name, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (event_id, module, name)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		arg.EventID, arg.Module, arg.Name, arg.Value, arg.UpdatedAt,
	)
	return err
}

// UpsertEventSettings stores all of args or none of them.
func (q *Queries) UpsertEventSettings(ctx context.Context, args []UpsertEventSettingParams) error {
	return q.inTx(ctx, func(q *Queries) error {
		for _, arg := range args {
			if err := q.UpsertEventSetting(ctx, arg); err != nil {
				return fmt.Errorf("%s.%s: %w", arg.Module, arg.Name, err)
			}
		}
		return nil
	})
}

// DeleteEventSetting removes one stored setting, reverting it to its default.
func (q *Queries) DeleteEventSetting(ctx context.Context, eventID int64, module, name string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM event_settings WHERE event_id = ? AND module = ? AND name = ?`,
		eventID, module, name,
	)
	return err
}

// DeleteEventSettings removes all stored settings of module for eventID.
func (q *Queries) DeleteEventSettings(ctx context.Context, eventID int64, module string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM event_settings WHERE event_id = ? AND module = ?`,
		eventID, module,
	)
	return err
}

// ListEventSettingValues returns the stored values of one setting across
// all events.
func (q *Queries) ListEventSettingValues(ctx context.Context, module, name string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT value FROM event_settings WHERE module = ? AND name = ?`,
		module, name,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
