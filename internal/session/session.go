// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session that carries the signed-in user.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// CookieName is the name of the session cookie.
const CookieName = "eventdesk_session"

// Lifetime is how long a session stays valid after login.
const Lifetime = 24 * time.Hour

// New creates a new session manager backed by the sessions table in db.
// Expired sessions are purged every cleanupInterval; zero disables the purge.
func New(db *sql.DB, isDev bool, cleanupInterval time.Duration) *scs.SessionManager {
	sm := scs.New()

	sm.Store = sqlite3store.NewWithCleanupInterval(db, cleanupInterval)

	sm.Lifetime = Lifetime
	sm.Cookie.Name = CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only

	return sm
}
