// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eventdesk/internal/auth"
	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/session"
	"github.com/olegiv/eventdesk/internal/store"
	"github.com/olegiv/eventdesk/internal/testutil"
)

const testPassword = "correct horse battery staple"

type authFixture struct {
	db     *sql.DB
	sm     *scs.SessionManager
	lp     *middleware.LoginProtection
	router http.Handler
	user   model.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := testutil.TestDB(t)
	sm := session.New(db, true, 0)
	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{MaxFailedAttempts: 5})
	h := NewAuthHandler(db, sm, lp, testutil.TestLogger())

	user := testutil.CreateUser(t, db, "ada@example.com", model.RoleEditor)
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, store.New(db).UpdateUserPassword(context.Background(), user.ID, hash, time.Now()))

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.With(middleware.Auth(sm), middleware.LoadUser(sm, store.New(db))).Get("/admin/me", h.Me)

	return &authFixture{db: db, sm: sm, lp: lp, router: r, user: user}
}

func (f *authFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *authFixture) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"email": "` + email + `", "password": "` + password + `"}`
	return f.serve(newRequest(http.MethodPost, "/login", body, nil))
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.login(t, "Ada@Example.com ", testPassword)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	req := newRequest(http.MethodGet, "/admin/me", "", nil)
	req.AddCookie(sessionCookie(t, rec))
	rec = f.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decodeJSON(t, rec)["user"].(map[string]any)
	assert.Equal(t, float64(f.user.ID), me["id"])

	stored, err := store.New(f.db).GetUserByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastLoginAt.Valid)
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"wrong password", `{"email": "ada@example.com", "password": "nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"email": "bob@example.com", "password": "nope"}`, http.StatusUnauthorized},
		{"missing password", `{"email": "ada@example.com"}`, http.StatusBadRequest},
		{"unknown field", `{"email": "ada@example.com", "password": "x", "remember": true}`, http.StatusBadRequest},
		{"not json", `email=ada`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(newRequest(http.MethodPost, "/login", tt.body, nil))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, false, decodeJSON(t, rec)["success"])
		})
	}
}

func TestLoginLockout(t *testing.T) {
	f := newAuthFixture(t)

	for i := range 4 {
		rec := f.login(t, "ada@example.com", "wrong")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}
	assert.Equal(t, 1, f.lp.RemainingAttempts("ada@example.com"))

	rec := f.login(t, "ada@example.com", "wrong")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The right password does not help while locked.
	rec = f.login(t, "ada@example.com", testPassword)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginReportsRemainingAttempts(t *testing.T) {
	f := newAuthFixture(t)

	f.login(t, "ada@example.com", "wrong")
	rec := f.login(t, "ada@example.com", "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, float64(3), decodeJSON(t, rec)["remaining_attempts"])
}

func TestLoginClearsFailedAttempts(t *testing.T) {
	f := newAuthFixture(t)

	f.login(t, "ada@example.com", "wrong")
	f.login(t, "ada@example.com", "wrong")
	require.Equal(t, http.StatusOK, f.login(t, "ada@example.com", testPassword).Code)
	assert.Equal(t, 5, f.lp.RemainingAttempts("ada@example.com"))
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.login(t, "ada@example.com", testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	req := newRequest(http.MethodPost, "/logout", "", nil)
	req.AddCookie(cookie)
	require.Equal(t, http.StatusOK, f.serve(req).Code)

	req = newRequest(http.MethodGet, "/admin/me", "", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusUnauthorized, f.serve(req).Code)
}

func TestMeWithoutUser(t *testing.T) {
	h := &AuthHandler{}
	rec := httptest.NewRecorder()
	h.Me(rec, newRequest(http.MethodGet, "/admin/me", "", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
