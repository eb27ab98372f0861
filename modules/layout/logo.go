// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/olegiv/eventdesk/internal/imaging"
	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/util"
)

// MaxLogoSize is the largest accepted logo upload.
const MaxLogoSize = 5 << 20

// logoRef returns the stored logo reference of eventID, or "" when unset.
func (m *Module) logoRef(ctx context.Context, eventID int64) (string, error) {
	v, err := m.proxy.Get(ctx, eventID, KeyLogo)
	if err != nil {
		return "", err
	}
	ref, _ := v.(string)
	return ref, nil
}

// handleUploadLogo stores a new event logo and replaces the previous one.
func (m *Module) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	event, ok := m.requireManageableEvent(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxLogoSize+1<<16)
	if err := r.ParseMultipartForm(MaxLogoSize); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "logo must be a multipart upload of at most 5 MB")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("logo")
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "missing logo file")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > MaxLogoSize {
		util.WriteJSONError(w, http.StatusRequestEntityTooLarge, "logo exceeds 5 MB")
		return
	}

	url, err := m.ctx.Routes.EventURL(RouteLogoDisplay, event.ID)
	if err != nil {
		m.ctx.Logger.Error("failed to resolve logo url", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to save logo")
		return
	}

	previous, err := m.logoRef(r.Context(), event.ID)
	if err != nil {
		m.ctx.Logger.Error("failed to read current logo", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to read current logo")
		return
	}

	res, err := m.logos.ProcessLogo(file)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			util.WriteJSONError(w, http.StatusUnsupportedMediaType, "logo must be a JPEG, PNG, GIF or WebP image")
			return
		}
		if errors.Is(err, imaging.ErrImageTooLarge) {
			util.WriteJSONError(w, http.StatusRequestEntityTooLarge, "logo dimensions are too large")
			return
		}
		m.ctx.Logger.Warn("logo processing failed", "event_id", event.ID, "filename", header.Filename, "error", err)
		util.WriteJSONError(w, http.StatusBadRequest, "could not process the image")
		return
	}

	if err := m.proxy.Set(r.Context(), event.ID, KeyLogo, res.Ref); err != nil {
		_ = m.logos.DeleteLogo(res.Ref)
		m.ctx.Logger.Error("failed to store logo reference", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to save logo")
		return
	}

	if previous != "" {
		if err := m.logos.DeleteLogo(previous); err != nil {
			m.ctx.Logger.Warn("failed to remove replaced logo", "event_id", event.ID, "logo", previous, "error", err)
		}
	}

	m.ctx.Logger.Info("event logo uploaded",
		"category", model.ActivityCategorySettings,
		"event_id", event.ID,
		"user_id", middleware.GetUserID(r),
		"logo", res.Ref,
	)

	util.WriteJSONSuccess(w, map[string]any{
		"logo":   res.Ref,
		"url":    url,
		"width":  res.Width,
		"height": res.Height,
	})
}

// handleDeleteLogo clears the event logo.
func (m *Module) handleDeleteLogo(w http.ResponseWriter, r *http.Request) {
	event, ok := m.requireManageableEvent(w, r)
	if !ok {
		return
	}

	ref, err := m.logoRef(r.Context(), event.ID)
	if err != nil {
		m.ctx.Logger.Error("failed to read current logo", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to read current logo")
		return
	}
	if ref == "" {
		util.WriteJSONError(w, http.StatusNotFound, "event has no logo")
		return
	}

	if err := m.proxy.Delete(r.Context(), event.ID, KeyLogo); err != nil {
		m.ctx.Logger.Error("failed to clear logo", "event_id", event.ID, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to clear logo")
		return
	}
	if err := m.logos.DeleteLogo(ref); err != nil {
		m.ctx.Logger.Warn("failed to remove logo file", "event_id", event.ID, "logo", ref, "error", err)
	}

	m.ctx.Logger.Info("event logo removed",
		"category", model.ActivityCategorySettings,
		"event_id", event.ID,
		"user_id", middleware.GetUserID(r),
	)
	util.WriteJSONSuccess(w, nil)
}

// handleLogoDisplay serves the event logo to anyone.
func (m *Module) handleLogoDisplay(w http.ResponseWriter, r *http.Request) {
	event, ok := m.loadEvent(w, r)
	if !ok {
		return
	}

	ref, err := m.logoRef(r.Context(), event.ID)
	if err != nil {
		m.ctx.Logger.Error("failed to read logo", "event_id", event.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if ref == "" {
		http.NotFound(w, r)
		return
	}

	path, err := m.logos.LogoPath(ref)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	name := util.FileName(event.Title+" logo", fmt.Sprintf("event-%d-logo", event.ID), ".png")
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, name))
	w.Header().Set("Cache-Control", "public, max-age=300")
	http.ServeFile(w, r, path)
}

// noteLogoBeforeDelete records the logo of an event about to be removed.
// The file is deleted by removeLogoAfterDelete, so a vetoed or failed
// deletion keeps it. A logo that cannot be read is left to the orphan sweep.
func (m *Module) noteLogoBeforeDelete(ctx context.Context, data any) (any, error) {
	eventID, ok := data.(int64)
	if !ok {
		return nil, fmt.Errorf("event deletion payload is %T, want int64", data)
	}

	ref, err := m.logoRef(ctx, eventID)
	if err != nil {
		m.ctx.Logger.Warn("failed to read logo of event being deleted", "event_id", eventID, "error", err)
		return data, nil
	}

	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	if ref == "" {
		delete(m.pendingLogos, eventID)
	} else {
		m.pendingLogos[eventID] = ref
	}
	return data, nil
}

// removeLogoAfterDelete deletes the logo file recorded for a removed event.
func (m *Module) removeLogoAfterDelete(_ context.Context, data any) (any, error) {
	eventID, ok := data.(int64)
	if !ok {
		return nil, fmt.Errorf("event deletion payload is %T, want int64", data)
	}

	m.pendingMu.Lock()
	ref, found := m.pendingLogos[eventID]
	delete(m.pendingLogos, eventID)
	m.pendingMu.Unlock()

	if found {
		if err := m.logos.DeleteLogo(ref); err != nil {
			m.ctx.Logger.Warn("failed to remove logo of deleted event", "event_id", eventID, "logo", ref, "error", err)
		}
	}
	return data, nil
}
