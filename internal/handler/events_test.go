// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eventdesk/internal/i18n"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/module"
	"github.com/olegiv/eventdesk/internal/testutil"
	"github.com/olegiv/eventdesk/internal/testutil/moduleutil"
	"github.com/olegiv/eventdesk/modules/layout"
)

type eventsFixture struct {
	ctx     *module.Context
	hooks   *module.HookRegistry
	layout  *layout.Module
	router  http.Handler
	creator model.User
	other   model.User
	viewer  model.User
	event   model.Event
}

func newEventsFixture(t *testing.T) *eventsFixture {
	t.Helper()

	ctx, hooks := moduleutil.TestModuleContext(t)
	lm := layout.New()
	require.NoError(t, lm.Init(ctx))

	h := NewEventsHandler(ctx.DB, hooks, ctx.Logger)
	r := chi.NewRouter()
	r.Get("/admin/events", h.List)
	r.Post("/admin/events", h.Create)
	r.Get("/admin/events/{event_id}", h.Get)
	r.Delete("/admin/events/{event_id}", h.Delete)

	f := &eventsFixture{ctx: ctx, hooks: hooks, layout: lm, router: r}
	f.creator = testutil.CreateUser(t, ctx.DB, "creator@example.com", model.RoleEditor)
	f.other = testutil.CreateUser(t, ctx.DB, "other@example.com", model.RoleEditor)
	f.viewer = testutil.CreateUser(t, ctx.DB, "viewer@example.com", model.RoleViewer)
	f.event = testutil.CreateEvent(t, ctx.DB, "Physics Days", f.creator.ID)
	return f
}

func (f *eventsFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *eventsFixture) eventPath() string {
	return fmt.Sprintf("/admin/events/%d", f.event.ID)
}

func TestGetEventIncludesSidemenu(t *testing.T) {
	f := newEventsFixture(t)

	rec := f.serve(newRequest(http.MethodGet, f.eventPath()+"?section=layout", "", &f.creator))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeJSON(t, rec)
	event := body["event"].(map[string]any)
	assert.Equal(t, "Physics Days", event["title"])
	assert.Equal(t, true, event["can_modify"])

	menu := body["sidemenu"].([]any)
	require.Len(t, menu, 2)
	first := menu[0].(map[string]any)
	assert.Equal(t, layout.MenuKeyLayout, first["key"])
	item := first["item"].(map[string]any)
	assert.Equal(t, "Layout", item["label"])
	assert.Equal(t, f.eventPath()+"/layout", item["url"])
	assert.Equal(t, true, item["active"])

	second := menu[1].(map[string]any)
	assert.Equal(t, layout.MenuKeyMenu, second["key"])
	assert.Equal(t, "Menu", second["item"].(map[string]any)["label"])
}

func TestGetEventTranslatesSidemenu(t *testing.T) {
	require.NoError(t, i18n.Init(nil))
	f := newEventsFixture(t)

	req := newRequest(http.MethodGet, f.eventPath(), "", &f.creator)
	req.Header.Set("Accept-Language", "de-CH,de;q=0.9")
	rec := f.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	menu := decodeJSON(t, rec)["sidemenu"].([]any)
	require.Len(t, menu, 2)
	second := menu[1].(map[string]any)
	assert.Equal(t, layout.MenuKeyMenu, second["key"])
	assert.Equal(t, "Menü", second["item"].(map[string]any)["label"])
}

func TestGetEventHidesSidemenuWithoutPermission(t *testing.T) {
	f := newEventsFixture(t)

	rec := f.serve(newRequest(http.MethodGet, f.eventPath(), "", &f.other))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeJSON(t, rec)
	assert.Equal(t, false, body["event"].(map[string]any)["can_modify"])
	assert.Empty(t, body["sidemenu"])
}

func TestGetEventErrors(t *testing.T) {
	f := newEventsFixture(t)

	assert.Equal(t, http.StatusNotFound, f.serve(newRequest(http.MethodGet, "/admin/events/777", "", &f.creator)).Code)
	assert.Equal(t, http.StatusBadRequest, f.serve(newRequest(http.MethodGet, "/admin/events/x", "", &f.creator)).Code)
}

func TestGetEventSidemenuFailure(t *testing.T) {
	f := newEventsFixture(t)
	f.hooks.Register(module.HookEventSidemenuAdvanced, module.HookHandler{
		Name:   "broken",
		Module: "test",
		Fn: func(context.Context, any) (any, error) {
			return nil, errors.New("no route")
		},
	})

	rec := f.serve(newRequest(http.MethodGet, f.eventPath(), "", &f.creator))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListEvents(t *testing.T) {
	f := newEventsFixture(t)
	testutil.CreateEvent(t, f.ctx.DB, "Chemistry Days", f.other.ID)

	rec := f.serve(newRequest(http.MethodGet, "/admin/events", "", &f.creator))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	events := decodeJSON(t, rec)["events"].([]any)
	require.Len(t, events, 2)
	modifiable := map[string]bool{}
	for _, e := range events {
		m := e.(map[string]any)
		modifiable[m["title"].(string)] = m["can_modify"].(bool)
	}
	assert.Equal(t, map[string]bool{"Physics Days": true, "Chemistry Days": false}, modifiable)
}

func TestCreateEvent(t *testing.T) {
	f := newEventsFixture(t)

	body := fmt.Sprintf(`{
		"title": "  Summer School  ",
		"starts_at": "2026-07-01T09:00:00Z",
		"ends_at": "2026-07-05T17:00:00Z",
		"manager_ids": [%d, 9999]
	}`, f.other.ID)
	rec := f.serve(newRequest(http.MethodPost, "/admin/events", body, &f.creator))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	event := decodeJSON(t, rec)["event"].(map[string]any)
	assert.Equal(t, "Summer School", event["title"])
	assert.Equal(t, float64(f.creator.ID), event["creator_id"])
	assert.Equal(t, []any{float64(f.other.ID)}, event["manager_ids"])

	stored, err := f.ctx.Store.GetEventByID(context.Background(), int64(event["id"].(float64)))
	require.NoError(t, err)
	assert.True(t, stored.CanModify(&f.other))
}

func TestCreateEventValidation(t *testing.T) {
	f := newEventsFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"starts_at": "2026-07-01T09:00:00Z", "ends_at": "2026-07-02T09:00:00Z"}`},
		{"blank title", `{"title": "   ", "starts_at": "2026-07-01T09:00:00Z", "ends_at": "2026-07-02T09:00:00Z"}`},
		{"missing dates", `{"title": "Workshop"}`},
		{"ends before start", `{"title": "Workshop", "starts_at": "2026-07-02T09:00:00Z", "ends_at": "2026-07-01T09:00:00Z"}`},
		{"unknown field", `{"title": "Workshop", "venue": "CERN"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(newRequest(http.MethodPost, "/admin/events", tt.body, &f.creator))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateEventForbiddenForViewers(t *testing.T) {
	f := newEventsFixture(t)

	body := `{"title": "Workshop", "starts_at": "2026-07-01T09:00:00Z", "ends_at": "2026-07-02T09:00:00Z"}`
	assert.Equal(t, http.StatusForbidden, f.serve(newRequest(http.MethodPost, "/admin/events", body, &f.viewer)).Code)
	assert.Equal(t, http.StatusForbidden, f.serve(newRequest(http.MethodPost, "/admin/events", body, nil)).Code)
}

func TestDeleteEventRemovesLayoutSettings(t *testing.T) {
	f := newEventsFixture(t)
	ctx := context.Background()
	require.NoError(t, f.layout.Settings().Set(ctx, f.event.ID, layout.KeyShowBanner, true))

	rec := f.serve(newRequest(http.MethodDelete, f.eventPath(), "", &f.creator))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := f.ctx.Store.GetEventByID(ctx, f.event.ID)
	assert.Error(t, err)

	rows, err := f.ctx.Store.ListEventSettings(ctx, f.event.ID, layout.Namespace)
	require.NoError(t, err)
	assert.Empty(t, rows)

	got, err := f.layout.Settings().Get(ctx, f.event.ID, layout.KeyShowBanner)
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestDeleteEventForbidden(t *testing.T) {
	f := newEventsFixture(t)

	rec := f.serve(newRequest(http.MethodDelete, f.eventPath(), "", &f.other))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err := f.ctx.Store.GetEventByID(context.Background(), f.event.ID)
	assert.NoError(t, err)
}

func TestDeleteEventVetoedByHook(t *testing.T) {
	f := newEventsFixture(t)
	f.hooks.Register(module.HookEventBeforeDelete, module.HookHandler{
		Name:     "keep_published",
		Module:   "test",
		Priority: -10,
		Fn: func(context.Context, any) (any, error) {
			return nil, errors.New("event has registrations")
		},
	})

	rec := f.serve(newRequest(http.MethodDelete, f.eventPath(), "", &f.creator))
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err := f.ctx.Store.GetEventByID(context.Background(), f.event.ID)
	assert.NoError(t, err)
}
