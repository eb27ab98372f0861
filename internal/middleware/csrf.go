// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"filippo.io/csrf/gorilla"

	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/util"
)

// CSRF rejects unsafe cross-origin requests using Fetch metadata and Origin
// headers; no token round-trip is needed. authKey is kept for API
// compatibility with gorilla/csrf. trusted lists host:port origins that may
// still post cross-origin.
func CSRF(authKey []byte, trusted ...string) func(http.Handler) http.Handler {
	opts := []csrf.Option{csrf.ErrorHandler(http.HandlerFunc(rejectCrossOrigin))}
	if len(trusted) > 0 {
		opts = append(opts, csrf.TrustedOrigins(trusted))
	}
	return csrf.Protect(authKey, opts...)
}

// TrustedOrigins combines the configured origins with the local server
// address, which is trusted in development only.
func TrustedOrigins(configured []string, isDev bool, serverAddr string) []string {
	origins := slices.Clone(configured)
	if isDev && serverAddr != "" && !slices.Contains(origins, serverAddr) {
		origins = append(origins, serverAddr)
	}
	return origins
}

func rejectCrossOrigin(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	slog.Warn("cross-origin request rejected",
		"category", model.ActivityCategoryAuth,
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	util.WriteJSONError(w, http.StatusForbidden, "cross-origin request rejected")
}
