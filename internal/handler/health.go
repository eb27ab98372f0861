// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/eventdesk/internal/cache"
	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/store"
	"github.com/olegiv/eventdesk/internal/util"
)

// Health check states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db         *sql.DB
	queries    *store.Queries
	sm         *scs.SessionManager
	cache      cache.Cache
	uploadsDir string
	version    string
	startTime  time.Time
}

// NewHealthHandler creates a new health handler. sm and c may be nil.
func NewHealthHandler(db *sql.DB, sm *scs.SessionManager, c cache.Cache, uploadsDir, version string) *HealthHandler {
	return &HealthHandler{
		db:         db,
		queries:    store.New(db),
		sm:         sm,
		cache:      c,
		uploadsDir: uploadsDir,
		version:    version,
		startTime:  time.Now(),
	}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp,omitzero"`
	Uptime    string           `json:"uptime,omitempty"`
	Version   string           `json:"version,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string       `json:"go_version"`
	NumGoroutine int          `json:"num_goroutines"`
	MemAlloc     string       `json:"mem_alloc"`
	Cache        *cache.Stats `json:"cache,omitempty"`
}

// Health handles GET /health. Anonymous callers only get the overall
// status; admins also get the individual checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"database": h.checkDatabase(r.Context()),
		"disk":     h.checkDiskSpace(),
	}

	overall := StatusHealthy
	for _, c := range checks {
		switch c.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	status := HealthStatus{Status: overall}
	if h.isAdmin(r) {
		status.Timestamp = time.Now().UTC()
		status.Uptime = time.Since(h.startTime).Round(time.Second).String()
		status.Version = h.version
		status.Checks = checks
		if r.URL.Query().Get("verbose") == "true" {
			status.System = h.systemInfo()
		}
	}
	util.WriteJSON(w, code, status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if c := h.checkDatabase(r.Context()); c.Status != StatusHealthy {
		util.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// isAdmin reports whether the request carries an admin session. A user put
// in the context by middleware.LoadUser takes precedence.
func (h *HealthHandler) isAdmin(r *http.Request) (admin bool) {
	if user := middleware.GetUser(r); user != nil {
		return user.Role == model.RoleAdmin
	}
	if h.sm == nil {
		return false
	}

	// SCS panics if session data is not loaded into context.
	defer func() {
		if rec := recover(); rec != nil {
			admin = false
		}
	}()

	userID := h.sm.GetInt64(r.Context(), middleware.SessionKeyUserID)
	if userID <= 0 {
		return false
	}
	user, err := h.queries.GetUserByID(r.Context(), userID)
	return err == nil && user.Role == model.RoleAdmin
}

// checkDatabase verifies database connectivity.
func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: StatusHealthy, Message: "Connected", Latency: latency.String()}
}

// checkDiskSpace checks available disk space in the uploads directory,
// where event logos are written.
func (h *HealthHandler) checkDiskSpace() Check {
	if _, err := os.Stat(h.uploadsDir); os.IsNotExist(err) {
		return Check{Status: StatusHealthy, Message: "Uploads directory does not exist yet"}
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(h.uploadsDir, &stat); err != nil {
		return Check{Status: StatusUnhealthy, Message: "Failed to check disk space: " + err.Error()}
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)
	available := formatBytes(availableBytes)

	const minSpace = 100 * 1024 * 1024
	if availableBytes < minSpace {
		return Check{Status: StatusDegraded, Message: "Low disk space: " + available + " available"}
	}
	return Check{Status: StatusHealthy, Message: available + " available"}
}

func (h *HealthHandler) systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		MemAlloc:     formatBytes(m.Alloc),
	}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		stats := sp.Stats()
		info.Cache = &stats
	}
	return info
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
