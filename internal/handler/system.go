// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/module"
	"github.com/olegiv/eventdesk/internal/scheduler"
	"github.com/olegiv/eventdesk/internal/store"
	"github.com/olegiv/eventdesk/internal/util"
)

// Activity log page sizes.
const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 500
)

// SystemHandler serves the administrator views of modules, hooks,
// scheduled jobs and the activity log.
type SystemHandler struct {
	queries   *store.Queries
	modules   *module.Registry
	hooks     *module.HookRegistry
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db *sql.DB, modules *module.Registry, hooks *module.HookRegistry, s *scheduler.Scheduler, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		queries:   store.New(db),
		modules:   modules,
		hooks:     hooks,
		scheduler: s,
		logger:    logger,
	}
}

// Modules handles GET /admin/system/modules.
func (h *SystemHandler) Modules(w http.ResponseWriter, _ *http.Request) {
	util.WriteJSONSuccess(w, map[string]any{
		"modules": h.modules.ListInfo(),
		"hooks":   h.hooks.ListHookInfo(),
	})
}

type moduleStatusRequest struct {
	Active *bool `json:"active"`
}

// SetModuleActive handles POST /admin/system/modules/{name}.
func (h *SystemHandler) SetModuleActive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req moduleStatusRequest
	if err := util.DecodeJSON(w, r, &req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Active == nil {
		util.WriteJSONError(w, http.StatusBadRequest, `"active" is required`)
		return
	}

	if err := h.modules.SetActive(name, *req.Active); err != nil {
		if errors.Is(err, module.ErrNotRegistered) {
			util.WriteJSONError(w, http.StatusNotFound, "module not found")
			return
		}
		h.logger.Error("failed to change module status", "module", name, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to change module status")
		return
	}

	h.logger.Info("module status changed by admin", "module", name, "active", *req.Active, "user_id", middleware.GetUserID(r))
	util.WriteJSONSuccess(w, map[string]any{"module": name, "active": *req.Active})
}

// Jobs handles GET /admin/system/jobs.
func (h *SystemHandler) Jobs(w http.ResponseWriter, _ *http.Request) {
	util.WriteJSONSuccess(w, map[string]any{"jobs": h.scheduler.List()})
}

// TriggerJob handles POST /admin/system/jobs/{name}/trigger. The job runs
// before the response is written.
func (h *SystemHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.scheduler.TriggerNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			util.WriteJSONError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to trigger job", "job", name, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to trigger job")
		return
	}

	h.logger.Info("job triggered by admin", "job", name, "user_id", middleware.GetUserID(r))
	util.WriteJSONSuccess(w, map[string]any{"job": name})
}

type activityView struct {
	ID        int64           `json:"id"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Message   string          `json:"message"`
	UserID    *int64          `json:"user_id"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Activity handles GET /admin/system/activity?limit=N.
func (h *SystemHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := DefaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			util.WriteJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxActivityLimit)
	}

	logs, err := h.queries.ListActivityLogs(r.Context(), int64(limit))
	if err != nil {
		h.logger.Error("failed to list activity log", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to list activity log")
		return
	}

	views := make([]activityView, 0, len(logs))
	for _, l := range logs {
		v := activityView{
			ID:        l.ID,
			Level:     l.Level,
			Category:  l.Category,
			Message:   l.Message,
			CreatedAt: l.CreatedAt,
		}
		if l.UserID.Valid {
			v.UserID = &l.UserID.Int64
		}
		if json.Valid([]byte(l.Metadata)) {
			v.Metadata = json.RawMessage(l.Metadata)
		}
		views = append(views, v)
	}
	util.WriteJSONSuccess(w, map[string]any{"entries": views})
}
