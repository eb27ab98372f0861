// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/eventdesk/internal/settings"
)

// Namespace is the settings namespace of the layout module.
const Namespace = "layout"

// Layout setting names.
const (
	KeyIsSearchable                = "is_searchable"
	KeyShowNavBar                  = "show_nav_bar"
	KeyShowSocialBadges            = "show_social_badges"
	KeyShowBanner                  = "show_banner"
	KeyTimezone                    = "timezone"
	KeyLogo                        = "logo"
	KeyHeaderTextColor             = "header_text_color"
	KeyEnableHeaderTextColor       = "enable_header_text_color"
	KeyHeaderBackgroundColor       = "header_background_color"
	KeyEnableHeaderBackgroundColor = "enable_header_background_color"
	KeyAnnouncement                = "announcement"
	// KeyShowAnnouncement keeps its historical spelling; stored rows use it.
	KeyShowAnnouncement = "show_annoucement"
)

// MaxAnnouncementLength bounds the announcement text.
const MaxAnnouncementLength = 10000

// ErrInvalidValue is returned when an update carries a value of the wrong
// type or format for its setting.
var ErrInvalidValue = errors.New("invalid layout setting value")

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Defaults returns the declared default of every layout setting. The
// timezone default is the configured process-wide timezone.
func Defaults(defaultTimezone string) map[string]any {
	return map[string]any{
		KeyIsSearchable:                true,
		KeyShowNavBar:                  true,
		KeyShowSocialBadges:            true,
		KeyShowBanner:                  false,
		KeyTimezone:                    defaultTimezone,
		KeyLogo:                        nil,
		KeyHeaderTextColor:             nil,
		KeyEnableHeaderTextColor:       false,
		KeyHeaderBackgroundColor:       nil,
		KeyEnableHeaderBackgroundColor: false,
		KeyAnnouncement:                nil,
		KeyShowAnnouncement:            false,
	}
}

// Settings is the decoded layout namespace of one event.
type Settings struct {
	IsSearchable                bool    `json:"is_searchable"`
	ShowNavBar                  bool    `json:"show_nav_bar"`
	ShowSocialBadges            bool    `json:"show_social_badges"`
	ShowBanner                  bool    `json:"show_banner"`
	Timezone                    string  `json:"timezone"`
	Logo                        *string `json:"logo"`
	HeaderTextColor             *string `json:"header_text_color"`
	EnableHeaderTextColor       bool    `json:"enable_header_text_color"`
	HeaderBackgroundColor       *string `json:"header_background_color"`
	EnableHeaderBackgroundColor bool    `json:"enable_header_background_color"`
	Announcement                *string `json:"announcement"`
	ShowAnnouncement            bool    `json:"show_annoucement"`
}

// Location returns the event timezone, falling back to UTC for names the
// runtime cannot resolve.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load decodes the layout namespace of eventID, defaults filled in.
func Load(ctx context.Context, proxy *settings.EventProxy, eventID int64) (Settings, error) {
	all, err := proxy.GetAll(ctx, eventID)
	if err != nil {
		return Settings{}, err
	}

	// The namespace maps one-to-one onto the struct tags.
	b, err := json.Marshal(all)
	if err != nil {
		return Settings{}, fmt.Errorf("encoding layout settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(b, &s); err != nil {
		return Settings{}, fmt.Errorf("decoding layout settings for event %d: %w", eventID, err)
	}
	return s, nil
}

// ParseUpdate validates a partial update and returns the values to store.
// The logo is managed by the upload endpoint and cannot be set here.
func ParseUpdate(raw map[string]json.RawMessage) (map[string]any, error) {
	values := make(map[string]any, len(raw))
	for name, msg := range raw {
		v, err := parseValue(name, msg)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

func parseValue(name string, msg json.RawMessage) (any, error) {
	switch name {
	case KeyIsSearchable, KeyShowNavBar, KeyShowSocialBadges, KeyShowBanner,
		KeyEnableHeaderTextColor, KeyEnableHeaderBackgroundColor, KeyShowAnnouncement:
		var b bool
		if err := json.Unmarshal(msg, &b); err != nil {
			return nil, fmt.Errorf("%w: %s must be a boolean", ErrInvalidValue, name)
		}
		return b, nil

	case KeyTimezone:
		var tz string
		if err := json.Unmarshal(msg, &tz); err != nil || tz == "" {
			return nil, fmt.Errorf("%w: %s must be a timezone name", ErrInvalidValue, name)
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidValue, tz)
		}
		return tz, nil

	case KeyHeaderTextColor, KeyHeaderBackgroundColor:
		color, err := nullableString(name, msg)
		if err != nil || color == nil {
			return nil, err
		}
		if !colorPattern.MatchString(*color) {
			return nil, fmt.Errorf("%w: %s must look like #rgb or #rrggbb", ErrInvalidValue, name)
		}
		return strings.ToLower(*color), nil

	case KeyAnnouncement:
		text, err := nullableString(name, msg)
		if err != nil || text == nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*text)
		if trimmed == "" {
			return nil, nil
		}
		if utf8.RuneCountInString(trimmed) > MaxAnnouncementLength {
			return nil, fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidValue, name, MaxAnnouncementLength)
		}
		return trimmed, nil

	case KeyLogo:
		return nil, fmt.Errorf("%w: %s is set by uploading an image", ErrInvalidValue, name)

	default:
		return nil, fmt.Errorf("%w: %s.%s", settings.ErrUnknownSetting, Namespace, name)
	}
}

// nullableString decodes a JSON string or null. The returned error already
// wraps ErrInvalidValue.
func nullableString(name string, msg json.RawMessage) (*string, error) {
	var s *string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil, fmt.Errorf("%w: %s must be a string or null", ErrInvalidValue, name)
	}
	return s, nil
}
