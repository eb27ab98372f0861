// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the core HTTP handlers of eventdesk.
package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/eventdesk/internal/auth"
	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/store"
	"github.com/olegiv/eventdesk/internal/util"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	queries         *store.Queries
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
	logger          *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(db *sql.DB, sm *scs.SessionManager, lp *middleware.LoginProtection, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		sessionManager:  sm,
		loginProtection: lp,
		logger:          logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := util.DecodeJSON(w, r, &req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			h.logger.Warn("login attempt on locked account", "category", model.ActivityCategoryAuth, "email", email)
			util.WriteJSONError(w, http.StatusTooManyRequests,
				fmt.Sprintf("account locked, try again in %s", formatDuration(remaining)))
			return
		}
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			h.logger.Error("database error during login", "error", err)
			util.WriteJSONError(w, http.StatusInternalServerError, "login failed")
			return
		}
		// Unknown emails count as failures so that accounts cannot be enumerated.
		h.logger.Warn("login failed: user not found", "category", model.ActivityCategoryAuth, "email", email)
		h.rejectLogin(w, email)
		return
	}

	valid, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		h.logger.Error("password check error", "user_id", user.ID, "error", err)
	}
	if !valid {
		h.logger.Warn("login failed: invalid password", "category", model.ActivityCategoryAuth, "user_id", user.ID, "email", email)
		h.rejectLogin(w, email)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), user.ID, hash, time.Now().UTC()); err != nil {
				h.logger.Error("failed to re-hash password", "user_id", user.ID, "error", err)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), user.ID, time.Now().UTC()); err != nil {
		h.logger.Error("failed to update last login time", "user_id", user.ID, "error", err)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		h.logger.Error("session renewal error", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	h.logger.Info("user logged in", "category", model.ActivityCategoryAuth, "user_id", user.ID)
	util.WriteJSONSuccess(w, map[string]any{"user": user})
}

// rejectLogin records a failed attempt for email and writes the response.
func (h *AuthHandler) rejectLogin(w http.ResponseWriter, email string) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
			h.logger.Warn("account locked due to failed attempts", "category", model.ActivityCategoryAuth,
				"email", email, "duration", lockDuration.String())
			util.WriteJSONError(w, http.StatusTooManyRequests,
				fmt.Sprintf("too many failed attempts, try again in %s", formatDuration(lockDuration)))
			return
		}
		if remaining := h.loginProtection.RemainingAttempts(email); remaining > 0 && remaining <= 3 {
			util.WriteJSON(w, http.StatusUnauthorized, map[string]any{
				"success":            false,
				"error":              "invalid email or password",
				"remaining_attempts": remaining,
			})
			return
		}
	}
	util.WriteJSONError(w, http.StatusUnauthorized, "invalid email or password")
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		h.logger.Error("session destroy error", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	if userID > 0 {
		h.logger.Info("user logged out", "category", model.ActivityCategoryAuth, "user_id", userID)
	}
	util.WriteJSONSuccess(w, nil)
}

// Me handles GET /admin/me and returns the current user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	util.WriteJSONSuccess(w, map[string]any{"user": user})
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
