// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package layout registers the per-event layout settings and contributes
// the "Layout" and "Menu" entries to the event management side menu.
package layout

import (
	"context"
	"fmt"
	"html/template"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/eventdesk/internal/imaging"
	"github.com/olegiv/eventdesk/internal/module"
	"github.com/olegiv/eventdesk/internal/routes"
	"github.com/olegiv/eventdesk/internal/settings"
)

// URL patterns served by the module.
const (
	PatternLayout      = "/admin/events/{event_id}/layout"
	PatternLayoutLogo  = "/admin/events/{event_id}/layout/logo"
	PatternMenu        = "/admin/events/{event_id}/menu"
	PatternLogoDisplay = "/events/{event_id}/logo.png"
)

// RouteLogoDisplay names the public logo route.
const RouteLogoDisplay = "event_layout.logo_display"

// Module implements the module.Module interface for event layouts.
type Module struct {
	module.BaseModule
	ctx       *module.Context
	proxy     *settings.EventProxy
	logos     *imaging.Processor
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy

	// Logos of events being deleted, removed once the row is gone.
	pendingMu    sync.Mutex
	pendingLogos map[int64]string
}

// New creates a new instance of the layout module.
func New() *Module {
	return &Module{
		BaseModule: module.NewBaseModule(
			"layout",
			"1.0.0",
			"Per-event layout settings and side menu entries",
		),
		markdown:     goldmark.New(),
		sanitizer:    bluemonday.UGCPolicy(),
		pendingLogos: make(map[int64]string),
	}
}

// Init declares the layout settings namespace and connects the module to
// the side-menu and event deletion hooks.
func (m *Module) Init(ctx *module.Context) error {
	if err := m.BaseModule.Init(ctx); err != nil {
		return err
	}
	m.ctx = ctx

	m.proxy = settings.NewEventProxy(Namespace, Defaults(ctx.Config.DefaultTimezone), ctx.Store,
		settings.WithCache(ctx.Cache, ctx.Config.CacheDuration()),
		settings.WithLogger(ctx.Logger),
	)
	if err := ctx.Settings.Register(m.proxy); err != nil {
		return fmt.Errorf("registering layout settings: %w", err)
	}

	m.logos = imaging.NewProcessor(ctx.Config.UploadsDir)

	ctx.Routes.Add(routes.EventLayoutIndex, PatternLayout)
	ctx.Routes.Add(routes.EventLayoutMenu, PatternMenu)
	ctx.Routes.Add(routes.EventLayoutLogo, PatternLayoutLogo)
	ctx.Routes.Add(RouteLogoDisplay, PatternLogoDisplay)

	m.registerHooks()

	if err := m.scheduleSweep(); err != nil {
		return fmt.Errorf("scheduling logo sweep: %w", err)
	}

	ctx.Logger.Info("layout module initialized", "default_timezone", ctx.Config.DefaultTimezone)
	return nil
}

// registerHooks connects the side-menu contributions and the settings
// cleanup on event deletion.
func (m *Module) registerHooks() {
	m.ctx.Hooks.Register(module.HookEventSidemenuAdvanced, module.HookHandler{
		Name:   "layout_sidemenu_layout",
		Module: m.Name(),
		Fn:     m.sidemenuEntry(MenuKeyLayout, "Layout", routes.EventLayoutIndex),
	})
	m.ctx.Hooks.Register(module.HookEventSidemenuAdvanced, module.HookHandler{
		Name:   "layout_sidemenu_menu",
		Module: m.Name(),
		Fn:     m.sidemenuEntry(MenuKeyMenu, "Menu", routes.EventLayoutMenu),
	})

	m.ctx.Hooks.Register(module.HookEventBeforeDelete, module.HookHandler{
		Name:   "layout_note_logo",
		Module: m.Name(),
		Fn:     m.noteLogoBeforeDelete,
	})
	m.ctx.Hooks.Register(module.HookEventAfterDelete, module.HookHandler{
		Name:   "layout_remove_logo",
		Module: m.Name(),
		Fn:     m.removeLogoAfterDelete,
	})
	m.ctx.Hooks.Register(module.HookEventAfterDelete, module.HookHandler{
		Name:   "layout_delete_settings",
		Module: m.Name(),
		Fn:     m.deleteSettingsAfterDelete,
	})
}

// Settings returns the layout settings proxy.
func (m *Module) Settings() *settings.EventProxy { return m.proxy }

// Shutdown performs cleanup when the module is shutting down.
func (m *Module) Shutdown() error {
	if m.ctx != nil {
		m.ctx.Logger.Info("layout module shutting down")
	}
	return nil
}

// RegisterRoutes registers the public logo route.
func (m *Module) RegisterRoutes(r chi.Router) {
	r.Get(PatternLogoDisplay, m.handleLogoDisplay)
}

// RegisterAdminRoutes registers the layout and menu management routes.
func (m *Module) RegisterAdminRoutes(r chi.Router) {
	r.Get(PatternLayout, m.handleGetLayout)
	r.Post(PatternLayout, m.handleUpdateLayout)
	r.Post(PatternLayoutLogo, m.handleUploadLogo)
	r.Delete(PatternLayoutLogo, m.handleDeleteLogo)
	r.Get(PatternMenu, m.handleGetMenu)
	r.Post(PatternMenu, m.handleUpdateMenu)
}

// TemplateFuncs returns template functions provided by the module.
func (m *Module) TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// eventAnnouncement renders the event announcement, or nothing when hidden.
		"eventAnnouncement": func(eventID int64) template.HTML {
			return m.Announcement(context.Background(), eventID)
		},
		"eventLayout": func(eventID int64) (Settings, error) {
			return Load(context.Background(), m.proxy, eventID)
		},
	}
}

func (m *Module) deleteSettingsAfterDelete(ctx context.Context, data any) (any, error) {
	eventID, ok := data.(int64)
	if !ok {
		return nil, fmt.Errorf("event deletion payload is %T, want int64", data)
	}
	if err := m.proxy.DeleteAll(ctx, eventID); err != nil {
		return nil, err
	}
	m.ctx.Logger.Debug("layout settings removed", "event_id", eventID)
	return data, nil
}
