// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple title", "Physics Days", "physics-days"},
		{"punctuation", "Hello, World!", "hello-world"},
		{"numbers", "ICHEP 2026", "ichep-2026"},
		{"accents", "Journées de Genève", "journees-de-geneve"},
		{"multiple spaces", "Spring   School", "spring-school"},
		{"existing hyphens", "Pre - Conference", "pre-conference"},
		{"leading and trailing", "  --Workshop--  ", "workshop"},
		{"non latin", "会议", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("Physics Days", "logo", ".png"); got != "physics-days.png" {
		t.Errorf("FileName() = %q, want %q", got, "physics-days.png")
	}
	if got := FileName("会议", "event-7", ".png"); got != "event-7.png" {
		t.Errorf("FileName() = %q, want %q", got, "event-7.png")
	}
}
