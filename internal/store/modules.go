// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// EnsureModule records name as active unless it is already known, and
// returns its stored active flag.
func (q *Queries) EnsureModule(ctx context.Context, name string, at time.Time) (bool, error) {
	if _, err := q.db.ExecContext(ctx,
		`INSERT INTO modules (name, is_active, updated_at) VALUES (?, 1, ?)
		ON CONFLICT (name) DO NOTHING`,
		name, at,
	); err != nil {
		return false, err
	}

	var active bool
	err := q.db.QueryRowContext(ctx, `SELECT is_active FROM modules WHERE name = ?`, name).Scan(&active)
	return active, err
}

// SetModuleActive updates the active flag of a known module.
func (q *Queries) SetModuleActive(ctx context.Context, name string, active bool, at time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE modules SET is_active = ?, updated_at = ? WHERE name = ?`,
		active, at, name,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ModuleMigrationApplied reports whether version of module has run.
func (q *Queries) ModuleMigrationApplied(ctx context.Context, module string, version int64) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx,
		`SELECT 1 FROM module_migrations WHERE module = ? AND version = ?`,
		module, version,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// RecordModuleMigration marks version of module as applied.
func (q *Queries) RecordModuleMigration(ctx context.Context, module string, version int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO module_migrations (module, version, applied_at) VALUES (?, ?, ?)`,
		module, version, at,
	)
	return err
}
