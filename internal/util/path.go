// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds small helpers shared by handlers and modules.
package util

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a joined path escapes its base directory.
var ErrPathTraversal = errors.New("path escapes base directory")

// SafeJoinPath joins components onto basePath and rejects results outside it.
func SafeJoinPath(basePath string, components ...string) (string, error) {
	absBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	full := filepath.Join(append([]string{absBase}, components...)...)

	// Trailing separator so /uploads-other does not match /uploads.
	if full != absBase && !strings.HasPrefix(full, absBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return full, nil
}
