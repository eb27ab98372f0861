// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// ErrNotRegistered is returned for module names the registry does not know.
var ErrNotRegistered = errors.New("module not registered")

// Registry owns the registered modules and their active flags.
// Modules are initialised in registration order and shut down in reverse.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	order   []string
	active  map[string]bool
	ctx     *Context
	logger  *slog.Logger
}

// Info summarises a registered module.
type Info struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Description       string `json:"description"`
	Active            bool   `json:"active"`
	MigrationsApplied int    `json:"migrations_applied"`
	MigrationsPending int    `json:"migrations_pending"`
}

// NewRegistry creates an empty module registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		modules: make(map[string]Module),
		active:  make(map[string]bool),
		logger:  logger,
	}
}

// Register adds m. Names must be unique.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}
	r.modules[name] = m
	r.order = append(r.order, name)
	r.logger.Info("module registered", "name", name, "version", m.Version())
	return nil
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// List returns the modules in registration order.
func (r *Registry) List() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.modules[name])
	}
	return out
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// InitAll checks dependencies, applies pending module migrations, loads
// the stored active flags and initialises every module.
func (r *Registry) InitAll(ctx *Context) error {
	if err := r.prepare(ctx); err != nil {
		return err
	}

	for _, m := range r.List() {
		r.logger.Info("initializing module", "name", m.Name(), "active", r.IsActive(m.Name()))
		if err := m.Init(ctx); err != nil {
			return fmt.Errorf("initializing module %q: %w", m.Name(), err)
		}
	}
	return nil
}

func (r *Registry) prepare(ctx *Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Store == nil {
		return errors.New("module context has no store")
	}
	r.ctx = ctx
	bg := context.Background()

	for _, name := range r.order {
		for _, dep := range r.modules[name].Dependencies() {
			if _, ok := r.modules[dep]; !ok {
				return fmt.Errorf("module %q depends on %q which is not registered", name, dep)
			}
		}
	}

	for _, name := range r.order {
		if err := r.migrate(bg, name); err != nil {
			return err
		}
		active, err := ctx.Store.EnsureModule(bg, name, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("loading active status of module %q: %w", name, err)
		}
		r.active[name] = active
	}
	return nil
}

// migrate applies the pending migrations of one module in declared order.
// Each step commits together with its module_migrations row.
func (r *Registry) migrate(ctx context.Context, name string) error {
	for _, mig := range r.modules[name].Migrations() {
		applied, err := r.ctx.Store.ModuleMigrationApplied(ctx, name, mig.Version)
		if err != nil {
			return fmt.Errorf("checking migration %s v%d: %w", name, mig.Version, err)
		}
		if applied {
			continue
		}

		r.logger.Info("applying module migration", "module", name, "version", mig.Version, "description", mig.Description)
		if err := r.applyMigration(ctx, name, mig); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) applyMigration(ctx context.Context, name string, mig Migration) error {
	tx, err := r.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting migration %s v%d: %w", name, mig.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := mig.Up(ctx, tx); err != nil {
		return fmt.Errorf("running migration %s v%d: %w", name, mig.Version, err)
	}
	if err := r.ctx.Store.WithTx(tx).RecordModuleMigration(ctx, name, mig.Version, time.Now().UTC()); err != nil {
		return fmt.Errorf("recording migration %s v%d: %w", name, mig.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s v%d: %w", name, mig.Version, err)
	}
	return nil
}

// IsActive reports whether the module name is active. Untracked names
// count as active.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	active, ok := r.active[name]
	return !ok || active
}

// SetActive stores the active flag of a registered module. Hooks of an
// inactive module are skipped and its routes answer 404.
func (r *Registry) SetActive(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modules[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	if r.ctx == nil {
		return errors.New("module registry not initialized")
	}

	err := r.ctx.Store.SetModuleActive(context.Background(), name, active, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s has no stored status", ErrNotRegistered, name)
	}
	if err != nil {
		return fmt.Errorf("storing active status of module %q: %w", name, err)
	}

	r.active[name] = active
	r.logger.Info("module status changed", "module", name, "active", active)
	return nil
}

// ShutdownAll shuts modules down in reverse registration order and joins
// their errors.
func (r *Registry) ShutdownAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		r.logger.Info("shutting down module", "name", name)
		if err := r.modules[name].Shutdown(); err != nil {
			r.logger.Error("module shutdown error", "name", name, "error", err)
			errs = append(errs, fmt.Errorf("shutting down module %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RouteAll mounts the public routes of every module.
func (r *Registry) RouteAll(router chi.Router) {
	r.mount(router, Module.RegisterRoutes)
}

// AdminRouteAll mounts the admin routes of every module.
func (r *Registry) AdminRouteAll(router chi.Router) {
	r.mount(router, Module.RegisterAdminRoutes)
}

// mount registers each module's routes in a group that answers 404 while
// the module is inactive.
func (r *Registry) mount(router chi.Router, register func(Module, chi.Router)) {
	for _, m := range r.List() {
		router.Group(func(g chi.Router) {
			g.Use(r.requireActive(m.Name()))
			register(m, g)
		})
	}
}

func (r *Registry) requireActive(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !r.IsActive(name) {
				r.logger.Debug("request to inactive module", "module", name, "path", req.URL.Path)
				http.NotFound(w, req)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// AllTemplateFuncs merges the template functions of the active modules.
// Later modules win on name clashes.
func (r *Registry) AllTemplateFuncs() template.FuncMap {
	funcs := make(template.FuncMap)
	for _, m := range r.List() {
		if r.IsActive(m.Name()) {
			maps.Copy(funcs, m.TemplateFuncs())
		}
	}
	return funcs
}

// ListInfo describes every registered module in registration order.
func (r *Registry) ListInfo() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		m := r.modules[name]
		info := Info{
			Name:        name,
			Version:     m.Version(),
			Description: m.Description(),
			Active:      r.active[name] || r.ctx == nil,
		}
		for _, mig := range m.Migrations() {
			applied := false
			if r.ctx != nil {
				var err error
				applied, err = r.ctx.Store.ModuleMigrationApplied(context.Background(), name, mig.Version)
				if err != nil {
					r.logger.Warn("failed to check module migration", "module", name, "version", mig.Version, "error", err)
				}
			}
			if applied {
				info.MigrationsApplied++
			} else {
				info.MigrationsPending++
			}
		}
		infos = append(infos, info)
	}
	return infos
}
