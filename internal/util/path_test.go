// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSafeJoinPath(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name       string
		components []string
		want       string
		wantErr    bool
	}{
		{"nested file", []string{"event-logos", "a.png"}, filepath.Join(base, "event-logos", "a.png"), false},
		{"base itself", nil, base, false},
		{"dot segments inside", []string{"event-logos", "..", "b.png"}, filepath.Join(base, "b.png"), false},
		{"escape", []string{"..", "etc", "passwd"}, "", true},
		{"sibling prefix", []string{"..", filepath.Base(base) + "-other"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJoinPath(base, tt.components...)
			if tt.wantErr {
				if !errors.Is(err, ErrPathTraversal) {
					t.Fatalf("SafeJoinPath() error = %v, want ErrPathTraversal", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SafeJoinPath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SafeJoinPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
