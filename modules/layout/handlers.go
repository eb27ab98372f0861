// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"database/sql"
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/routes"
	"github.com/olegiv/eventdesk/internal/settings"
	"github.com/olegiv/eventdesk/internal/util"
)

// eventIDFromRequest parses the event_id URL parameter.
func eventIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, routes.ParamEventID), 10, 64)
	return id, err == nil && id > 0
}

// loadEvent fetches the event named by the URL. On failure it writes the
// response and returns false.
func (m *Module) loadEvent(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	id, ok := eventIDFromRequest(r)
	if !ok {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid event ID")
		return model.Event{}, false
	}

	event, err := m.ctx.Store.GetEventByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			util.WriteJSONError(w, http.StatusNotFound, "event not found")
			return model.Event{}, false
		}
		m.ctx.Logger.Error("failed to load event", "event_id", id, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to load event")
		return model.Event{}, false
	}
	return event, true
}

// requireManageableEvent loads the event and checks that the current user
// may modify it.
func (m *Module) requireManageableEvent(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	event, ok := m.loadEvent(w, r)
	if !ok {
		return model.Event{}, false
	}
	if !event.CanModify(middleware.GetUser(r)) {
		util.WriteJSONError(w, http.StatusForbidden, "you cannot manage this event")
		return model.Event{}, false
	}
	return event, true
}

func (m *Module) writeLayout(w http.ResponseWriter, r *http.Request, eventID int64) {
	s, err := Load(r.Context(), m.proxy, eventID)
	if err != nil {
		m.ctx.Logger.Error("failed to load layout settings", "event_id", eventID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to load layout settings")
		return
	}
	util.WriteJSONSuccess(w, map[string]any{"event_id": eventID, "layout": s})
}

// handleGetLayout returns the layout settings of an event.
func (m *Module) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	event, ok := m.requireManageableEvent(w, r)
	if !ok {
		return
	}
	m.writeLayout(w, r, event.ID)
}

// handleUpdateLayout applies a partial update of the layout settings.
func (m *Module) handleUpdateLayout(w http.ResponseWriter, r *http.Request) {
	event, ok := m.requireManageableEvent(w, r)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := util.DecodeJSON(w, r, &raw); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(raw) == 0 {
		util.WriteJSONError(w, http.StatusBadRequest, "no settings given")
		return
	}

	values, err := ParseUpdate(raw)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := m.proxy.SetMulti(r.Context(), event.ID, values); err != nil {
		if errors.Is(err, settings.ErrUnknownSetting) {
			util.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		m.ctx.Logger.Error("failed to update layout settings", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to save layout settings")
		return
	}

	m.ctx.Logger.Info("layout settings updated",
		"category", model.ActivityCategorySettings,
		"event_id", event.ID,
		"user_id", middleware.GetUserID(r),
		"keys", slices.Sorted(maps.Keys(values)),
	)
	m.writeLayout(w, r, event.ID)
}

// menuRequest is the body accepted by handleUpdateMenu.
type menuRequest struct {
	ShowNavBar *bool `json:"show_nav_bar"`
}

// handleGetMenu returns the navigation bar state of an event.
func (m *Module) handleGetMenu(w http.ResponseWriter, r *http.Request) {
	event, ok := m.requireManageableEvent(w, r)
	if !ok {
		return
	}

	show, err := m.proxy.Get(r.Context(), event.ID, KeyShowNavBar)
	if err != nil {
		m.ctx.Logger.Error("failed to load menu settings", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to load menu settings")
		return
	}
	util.WriteJSONSuccess(w, map[string]any{"event_id": event.ID, KeyShowNavBar: show})
}

// handleUpdateMenu toggles the navigation bar of an event.
func (m *Module) handleUpdateMenu(w http.ResponseWriter, r *http.Request) {
	event, ok := m.requireManageableEvent(w, r)
	if !ok {
		return
	}

	var req menuRequest
	if err := util.DecodeJSON(w, r, &req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ShowNavBar == nil {
		util.WriteJSONError(w, http.StatusBadRequest, "show_nav_bar is required")
		return
	}

	if err := m.proxy.Set(r.Context(), event.ID, KeyShowNavBar, *req.ShowNavBar); err != nil {
		m.ctx.Logger.Error("failed to update menu settings", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to save menu settings")
		return
	}

	m.ctx.Logger.Info("event menu updated",
		"category", model.ActivityCategorySettings,
		"event_id", event.ID,
		"user_id", middleware.GetUserID(r),
		KeyShowNavBar, *req.ShowNavBar,
	)
	util.WriteJSONSuccess(w, map[string]any{"event_id": event.ID, KeyShowNavBar: *req.ShowNavBar})
}
