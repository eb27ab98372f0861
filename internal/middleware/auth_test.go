// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/eventdesk/internal/model"
)

type fakeUsers map[int64]model.User

func (f fakeUsers) GetUserByID(_ context.Context, id int64) (model.User, error) {
	if id < 0 {
		return model.User{}, errors.New("database is locked")
	}
	u, ok := f[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

// withSession runs the request through sm with user_id preset to userID.
func withSession(sm *scs.SessionManager, userID int64, next http.Handler) http.Handler {
	return sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != 0 {
			sm.Put(r.Context(), SessionKeyUserID, userID)
		}
		next.ServeHTTP(w, r)
	}))
}

func TestAuth(t *testing.T) {
	sm := scs.New()
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name   string
		userID int64
		want   int
	}{
		{"anonymous", 0, http.StatusUnauthorized},
		{"signed in", 5, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			withSession(sm, tt.userID, Auth(sm)(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/events", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLoadUser(t *testing.T) {
	sm := scs.New()
	users := fakeUsers{5: {ID: 5, Email: "editor@example.com", Role: model.RoleEditor}}

	var got *model.User
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUser(r)
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("known user", func(t *testing.T) {
		got = nil
		rec := httptest.NewRecorder()
		withSession(sm, 5, LoadUser(sm, users)(capture)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
		if got == nil || got.Email != "editor@example.com" {
			t.Errorf("loaded user = %+v, want editor@example.com", got)
		}
	})

	t.Run("anonymous passes through", func(t *testing.T) {
		got = nil
		rec := httptest.NewRecorder()
		withSession(sm, 0, LoadUser(sm, users)(capture)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
		if got != nil {
			t.Errorf("loaded user = %+v, want none", got)
		}
	})

	t.Run("deleted user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		withSession(sm, 99, LoadUser(sm, users)(capture)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		withSession(sm, -1, LoadUser(sm, users)(capture)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

func TestGetUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetUser(req) != nil || GetUserID(req) != 0 {
		t.Error("request without user should have no user")
	}

	user := &model.User{ID: 123, Role: model.RoleAdmin}
	req = req.WithContext(WithUser(req.Context(), user))
	if GetUser(req) != user {
		t.Error("GetUser did not return the stored user")
	}
	if id := GetUserID(req); id != 123 {
		t.Errorf("GetUserID = %d, want 123", id)
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name string
		user *model.User
		want int
	}{
		{"no user", nil, http.StatusForbidden},
		{"editor", &model.User{ID: 1, Role: model.RoleEditor}, http.StatusForbidden},
		{"admin", &model.User{ID: 2, Role: model.RoleAdmin}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			RequireAdmin(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
