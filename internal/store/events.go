// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/eventdesk/internal/model"
)

const eventColumns = `id, title, description, creator_id, starts_at, ends_at, created_at, updated_at`

// CreateEventParams holds the fields for CreateEvent.
type CreateEventParams struct {
	Title       string
	Description string
	CreatorID   int64
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		e         model.Event
		creatorID sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &creatorID, &e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt)
	e.CreatorID = creatorID.Int64
	return e, err
}

// CreateEvent inserts an event and returns it.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO events (title, description, creator_id, starts_at, ends_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+eventColumns,
		arg.Title, arg.Description, nullInt64(arg.CreatorID), arg.StartsAt, arg.EndsAt, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanEvent(row)
}

// GetEventByID returns the event with the given ID, including its managers.
func (q *Queries) GetEventByID(ctx context.Context, id int64) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err != nil {
		return model.Event{}, err
	}
	e.ManagerIDs, err = q.ListEventManagerIDs(ctx, id)
	if err != nil {
		return model.Event{}, fmt.Errorf("loading managers of event %d: %w", id, err)
	}
	return e, nil
}

// ListEvents returns all events ordered by start date.
func (q *Queries) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEvent removes an event. Managers and settings cascade.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddEventManager grants userID management rights on eventID.
func (q *Queries) AddEventManager(ctx context.Context, eventID, userID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO event_managers (event_id, user_id) VALUES (?, ?)`,
		eventID, userID,
	)
	return err
}

// RemoveEventManager revokes userID's management rights on eventID.
func (q *Queries) RemoveEventManager(ctx context.Context, eventID, userID int64) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM event_managers WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	return err
}

// ListEventManagerIDs returns the IDs of the event's managers.
func (q *Queries) ListEventManagerIDs(ctx context.Context, eventID int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT user_id FROM event_managers WHERE event_id = ? ORDER BY user_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
