// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"slices"
	"time"
)

// Event is a conference or meeting. It is the scoping unit for layout
// settings and for management permissions.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatorID   int64     `json:"creator_id"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// ManagerIDs lists users granted management rights on the event.
	ManagerIDs []int64 `json:"manager_ids"`
}

// CanModify reports whether user may change the event's settings.
// Admins, the creator and listed managers may; anonymous users never may.
func (e *Event) CanModify(user *User) bool {
	if e == nil || user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	if e.CreatorID != 0 && e.CreatorID == user.ID {
		return true
	}
	return slices.Contains(e.ManagerIDs, user.ID)
}
