// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/eventdesk/internal/auth"
	"github.com/olegiv/eventdesk/internal/model"
)

// Default admin account created on first start.
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// SampleEventTitle is the title of the event seeded into an empty database.
const SampleEventTitle = "Sample Conference"

// SeedOptions controls what Seed creates. Empty admin fields fall back to
// the defaults above.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// SampleEvent creates one event owned by the admin when none exist.
	SampleEvent bool
}

// Seed creates the admin account if it is missing and, optionally, a
// sample event. Running it again changes nothing.
func Seed(ctx context.Context, q *Queries, opts SeedOptions, logger *slog.Logger) error {
	email := cmpOr(opts.AdminEmail, DefaultAdminEmail)

	admin, err := q.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		logger.Debug("admin user already exists", "email", email)
	case errors.Is(err, sql.ErrNoRows):
		admin, err = seedAdmin(ctx, q, email, opts)
		if err != nil {
			return err
		}
		logger.Info("created admin user", "id", admin.ID, "email", admin.Email)
	default:
		return fmt.Errorf("looking up admin user: %w", err)
	}

	if !opts.SampleEvent {
		return nil
	}
	events, err := q.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}
	if len(events) > 0 {
		return nil
	}

	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 1, 0)
	event, err := q.CreateEvent(ctx, CreateEventParams{
		Title:       SampleEventTitle,
		Description: "Created on first start. Delete it once real events exist.",
		CreatorID:   admin.ID,
		StartsAt:    start.Add(9 * time.Hour),
		EndsAt:      start.AddDate(0, 0, 2).Add(17 * time.Hour),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("creating sample event: %w", err)
	}
	logger.Info("created sample event", "id", event.ID)
	return nil
}

func seedAdmin(ctx context.Context, q *Queries, email string, opts SeedOptions) (model.User, error) {
	hash, err := auth.HashPassword(cmpOr(opts.AdminPassword, DefaultAdminPassword))
	if err != nil {
		return model.User{}, fmt.Errorf("hashing admin password: %w", err)
	}
	now := time.Now().UTC()
	admin, err := q.CreateUser(ctx, CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Name:         cmpOr(opts.AdminName, DefaultAdminName),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("creating admin user: %w", err)
	}
	return admin, nil
}

func cmpOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
