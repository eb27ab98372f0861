// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n translates user-facing labels such as side menu entries.
//
// Message IDs are the English source strings, so an untranslated or unknown
// message is shown in English.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

//go:embed locales
var localesFS embed.FS

// DefaultLanguage is the source language of all message IDs.
const DefaultLanguage = "en"

// SupportedLanguages lists the languages labels can be shown in.
var SupportedLanguages = []string{DefaultLanguage, "fr", "de"}

// Message is one entry of a locale file.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"` // context for translators
	Translation string `json:"translation"`
}

// MessageFile is the layout of locales/<lang>/messages.json.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

type bundle struct {
	cat     *catalog.Builder
	matcher language.Matcher
	tags    []language.Tag
	counts  map[string]int
	printer map[string]*message.Printer
}

var current atomic.Pointer[bundle]

// Init loads the embedded locale files. Calling it again reloads them.
func Init(logger *slog.Logger) error {
	b := &bundle{
		cat:     catalog.NewBuilder(catalog.Fallback(language.English)),
		counts:  make(map[string]int),
		printer: make(map[string]*message.Printer),
	}

	for _, lang := range SupportedLanguages {
		tag := language.MustParse(lang)
		b.tags = append(b.tags, tag)
		if lang != DefaultLanguage {
			n, err := load(b.cat, lang, tag)
			if err != nil {
				return err
			}
			b.counts[lang] = n
		}
	}
	b.matcher = language.NewMatcher(b.tags)
	for i, lang := range SupportedLanguages {
		b.printer[lang] = message.NewPrinter(b.tags[i], message.Catalog(b.cat))
	}

	current.Store(b)
	if logger != nil {
		logger.Info("i18n initialized", "languages", SupportedLanguages)
	}
	return nil
}

func load(cat *catalog.Builder, lang string, tag language.Tag) (int, error) {
	name := path.Join("locales", lang, "messages.json")
	data, err := localesFS.ReadFile(name)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", name, err)
	}

	var f MessageFile
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}

	n := 0
	for _, m := range f.Messages {
		if m.Translation == "" {
			continue
		}
		if err := cat.SetString(tag, m.ID, m.Translation); err != nil {
			return 0, fmt.Errorf("%s: message %q: %w", name, m.ID, err)
		}
		n++
	}
	return n, nil
}

// T translates message id into lang and formats it with args. Unknown
// languages and untranslated IDs yield the ID itself.
func T(lang, id string, args ...any) string {
	b := current.Load()
	if b == nil {
		return sprintf(id, args)
	}
	p, ok := b.printer[strings.ToLower(lang)]
	if !ok {
		p = b.printer[DefaultLanguage]
	}
	return p.Sprintf(id, args...)
}

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// MatchLanguage returns the supported language closest to an
// Accept-Language header or a bare language code.
func MatchLanguage(acceptLang string) string {
	b := current.Load()
	if b == nil || acceptLang == "" {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(acceptLang)
		if err != nil {
			return DefaultLanguage
		}
		tags = []language.Tag{tag}
	}

	_, idx, confidence := b.matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return SupportedLanguages[idx]
}

// IsSupported reports whether lang is one of SupportedLanguages.
func IsSupported(lang string) bool {
	return slices.Contains(SupportedLanguages, strings.ToLower(lang))
}

// TranslationCount returns the number of messages translated into lang.
func TranslationCount(lang string) int {
	if b := current.Load(); b != nil {
		return b.counts[lang]
	}
	return 0
}
