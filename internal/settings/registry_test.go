// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package settings

import (
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	layout := NewEventProxy("layout", map[string]any{"show_banner": false}, nil)
	menu := NewEventProxy("menu", map[string]any{}, nil)

	if err := r.Register(layout); err != nil {
		t.Fatalf("Register(layout) error: %v", err)
	}
	if err := r.Register(menu); err != nil {
		t.Fatalf("Register(menu) error: %v", err)
	}
	if err := r.Register(NewEventProxy("layout", nil, nil)); err == nil {
		t.Error("duplicate namespace should be rejected")
	}

	got, ok := r.Lookup("layout")
	if !ok || got != layout {
		t.Errorf("Lookup(layout) = %v, %v", got, ok)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) should fail")
	}

	mods := r.Modules()
	if len(mods) != 2 || mods[0] != "layout" || mods[1] != "menu" {
		t.Errorf("Modules() = %v", mods)
	}
}
