// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eventdesk/internal/i18n"
	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/module"
	"github.com/olegiv/eventdesk/internal/routes"
	"github.com/olegiv/eventdesk/internal/sidemenu"
	"github.com/olegiv/eventdesk/internal/store"
	"github.com/olegiv/eventdesk/internal/util"
)

// Event field limits.
const (
	MaxEventTitleLength       = 200
	MaxEventDescriptionLength = 5000
)

// EventsHandler handles the event management routes.
type EventsHandler struct {
	queries *store.Queries
	hooks   *module.HookRegistry
	logger  *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(db *sql.DB, hooks *module.HookRegistry, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		queries: store.New(db),
		hooks:   hooks,
		logger:  logger,
	}
}

// eventView is an event together with the caller's permission on it.
type eventView struct {
	model.Event
	CanModify bool `json:"can_modify"`
}

// List handles GET /admin/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.queries.ListEvents(r.Context())
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	user := middleware.GetUser(r)
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		e.ManagerIDs, err = h.queries.ListEventManagerIDs(r.Context(), e.ID)
		if err != nil {
			h.logger.Error("failed to load event managers", "event_id", e.ID, "error", err)
			util.WriteJSONError(w, http.StatusInternalServerError, "failed to list events")
			return
		}
		views = append(views, eventView{Event: e, CanModify: e.CanModify(user)})
	}
	util.WriteJSONSuccess(w, map[string]any{"events": views})
}

type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	ManagerIDs  []int64   `json:"manager_ids"`
}

func (req createEventRequest) validate() string {
	switch {
	case req.Title == "":
		return "title is required"
	case len(req.Title) > MaxEventTitleLength:
		return "title is too long"
	case len(req.Description) > MaxEventDescriptionLength:
		return "description is too long"
	case req.StartsAt.IsZero() || req.EndsAt.IsZero():
		return "starts_at and ends_at are required"
	case req.EndsAt.Before(req.StartsAt):
		return "ends_at must not be before starts_at"
	}
	return ""
}

// Create handles POST /admin/events. Viewers may not create events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil || user.Role == model.RoleViewer {
		util.WriteJSONError(w, http.StatusForbidden, "you cannot create events")
		return
	}

	var req createEventRequest
	if err := util.DecodeJSON(w, r, &req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if msg := req.validate(); msg != "" {
		util.WriteJSONError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now().UTC()
	event, err := h.queries.CreateEvent(r.Context(), store.CreateEventParams{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   user.ID,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		h.logger.Error("failed to create event", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	for _, id := range req.ManagerIDs {
		if _, err := h.queries.GetUserByID(r.Context(), id); err != nil {
			h.logger.Warn("skipping unknown event manager", "event_id", event.ID, "manager_id", id)
			continue
		}
		if err := h.queries.AddEventManager(r.Context(), event.ID, id); err != nil {
			h.logger.Error("failed to add event manager", "event_id", event.ID, "manager_id", id, "error", err)
			continue
		}
		event.ManagerIDs = append(event.ManagerIDs, id)
	}

	h.logger.Info("event created", "category", model.ActivityCategoryEvent, "event_id", event.ID, "user_id", user.ID)
	util.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "event": event})
}

// Get handles GET /admin/events/{event_id}. The response carries the
// event management side menu with only the entries visible to the caller,
// labelled in the language of the Accept-Language header.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	user := middleware.GetUser(r)

	lang := i18n.MatchLanguage(r.Header.Get("Accept-Language"))
	menu, err := sidemenu.Build(r.Context(), h.hooks, &event, user, map[string]any{sidemenu.ArgLang: lang})
	if err != nil {
		h.logger.Error("failed to build side menu", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to build side menu")
		return
	}
	if active := r.URL.Query().Get("section"); active != "" {
		menu.SetActive(active)
	}

	util.WriteJSONSuccess(w, map[string]any{
		"event":    eventView{Event: event, CanModify: event.CanModify(user)},
		"sidemenu": menu.Visible(),
	})
}

// Delete handles DELETE /admin/events/{event_id}. Handlers of
// module.HookEventBeforeDelete may veto the deletion; handlers of
// module.HookEventAfterDelete clean up what modules stored for the event.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	user := middleware.GetUser(r)
	if !event.CanModify(user) {
		util.WriteJSONError(w, http.StatusForbidden, "you cannot manage this event")
		return
	}

	if err := h.hooks.CallNoResult(r.Context(), module.HookEventBeforeDelete, event.ID); err != nil {
		h.logger.Warn("event deletion aborted", "category", model.ActivityCategoryEvent, "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusConflict, "event cannot be deleted")
		return
	}

	if err := h.queries.DeleteEvent(r.Context(), event.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			util.WriteJSONError(w, http.StatusNotFound, "event not found")
			return
		}
		h.logger.Error("failed to delete event", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	// The event is gone; cleanup failures are logged, not returned.
	if err := h.hooks.CallNoResult(r.Context(), module.HookEventAfterDelete, event.ID); err != nil {
		h.logger.Error("event cleanup failed", "event_id", event.ID, "error", err)
	}

	h.logger.Info("event deleted", "category", model.ActivityCategoryEvent, "event_id", event.ID, "user_id", user.ID)
	util.WriteJSONSuccess(w, nil)
}

func (h *EventsHandler) loadEvent(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, routes.ParamEventID), 10, 64)
	if err != nil || id <= 0 {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid event ID")
		return model.Event{}, false
	}

	event, err := h.queries.GetEventByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			util.WriteJSONError(w, http.StatusNotFound, "event not found")
			return model.Event{}, false
		}
		h.logger.Error("failed to load event", "event_id", id, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to load event")
		return model.Event{}, false
	}
	return event, true
}
