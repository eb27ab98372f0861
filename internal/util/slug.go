// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into lowercase ASCII words joined by hyphens.
// Accents are stripped; characters without an ASCII base are dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}

// FileName returns a download file name derived from title, falling back
// to fallback when the title has no usable characters.
func FileName(title, fallback, ext string) string {
	slug := Slugify(title)
	if slug == "" {
		slug = fallback
	}
	return slug + ext
}
