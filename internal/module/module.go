// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package module hosts the pluggable feature modules of eventdesk.
//
// A module declares its metadata and optional schema migrations, receives
// the shared services in Init, and plugs into the application through
// routes, template functions and hook handlers. The Registry drives the
// lifecycle; the HookRegistry carries the signals between core and modules.
package module

import (
	"context"
	"database/sql"
	"html/template"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eventdesk/internal/cache"
	"github.com/olegiv/eventdesk/internal/config"
	"github.com/olegiv/eventdesk/internal/routes"
	"github.com/olegiv/eventdesk/internal/scheduler"
	"github.com/olegiv/eventdesk/internal/settings"
	"github.com/olegiv/eventdesk/internal/store"
)

// Context carries the services shared with every module.
type Context struct {
	DB       *sql.DB
	Store    *store.Queries
	Logger   *slog.Logger
	Config   *config.Config
	Hooks    *HookRegistry
	Settings *settings.Registry
	Cache    cache.Cache
	Routes   *routes.Table

	// Scheduler runs periodic module jobs. Nil disables them.
	Scheduler *scheduler.Scheduler
}

// Module is a unit of functionality managed by the Registry.
type Module interface {
	Name() string
	Version() string
	Description() string

	// Dependencies names modules that must be registered alongside.
	Dependencies() []string

	// Migrations are applied in slice order before Init.
	Migrations() []Migration

	Init(ctx *Context) error
	Shutdown() error

	// RegisterRoutes mounts public routes. Paths are absolute.
	RegisterRoutes(r chi.Router)

	// RegisterAdminRoutes mounts routes behind authentication. Paths are
	// absolute.
	RegisterAdminRoutes(r chi.Router)

	TemplateFuncs() template.FuncMap
}

// Migration is one schema step owned by a module. Version must be unique
// within the module. Up runs inside the transaction that records it, so a
// failing step leaves no trace.
type Migration struct {
	Version     int64
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

// BaseModule supplies metadata accessors and no-op hooks. Modules embed it
// and override what they need.
type BaseModule struct {
	name        string
	version     string
	description string
	ctx         *Context
}

// NewBaseModule returns a BaseModule with the given metadata.
func NewBaseModule(name, version, description string) BaseModule {
	return BaseModule{name: name, version: version, description: description}
}

func (m *BaseModule) Name() string        { return m.name }
func (m *BaseModule) Version() string     { return m.version }
func (m *BaseModule) Description() string { return m.description }

func (m *BaseModule) Dependencies() []string  { return nil }
func (m *BaseModule) Migrations() []Migration { return nil }

// Init keeps ctx for Context.
func (m *BaseModule) Init(ctx *Context) error {
	m.ctx = ctx
	return nil
}

func (m *BaseModule) Shutdown() error { return nil }

func (m *BaseModule) RegisterRoutes(chi.Router)      {}
func (m *BaseModule) RegisterAdminRoutes(chi.Router) {}

func (m *BaseModule) TemplateFuncs() template.FuncMap { return nil }

// Context returns the context passed to Init, or nil before it.
func (m *BaseModule) Context() *Context { return m.ctx }
