// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package pathutil provides the small set of filesystem path helpers the
// orchestrator core needs: joining, existence checks, and canonical
// display rendering.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Join joins two path segments using the OS separator.
func Join(a, b string) string {
	return filepath.Join(a, b)
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path names an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Canonical returns the absolute, cleaned form of path for display and
// for use as a filesystem root. It does not require the path to exist.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// StripUNCPrefix removes the extended-length `\\?\` prefix that
// canonicalization can produce on Windows. Some programs refuse a
// working directory carrying it, so it is stripped before any chdir.
// Paths without the prefix pass through unchanged.
func StripUNCPrefix(path string) string {
	return strings.TrimPrefix(path, `\\?\`)
}

// DottedToDir converts a dotted task identifier path ("a.b.c") into the
// relative directory path it maps to under the tasks root.
func DottedToDir(dotted string) string {
	out := make([]rune, 0, len(dotted))
	for _, r := range dotted {
		if r == '.' {
			out = append(out, filepath.Separator)
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}
