// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"fmt"
	"path"
	"strings"
)

// NormalizePath converts an archive path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/",
// cleans "." segments, and drops any trailing "/". The root path is "".
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// NormalizePrefixHeader normalizes PBO "prefix" header value to "\" separators.
func NormalizePrefixHeader(raw string) string {
	normalized := NormalizePath(raw)
	if normalized == "" {
		return ""
	}

	return strings.ReplaceAll(normalized, "/", `\`)
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, `/`)
	p = strings.TrimPrefix(p, "./")
	return p
}

// splitPath splits a normalized path into its last segment and parent directory path.
func splitPath(p string) (dir string, name string) {
	p = NormalizePath(p)
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return "", p
	}

	return p[:idx], p[idx+1:]
}

// joinPath joins a directory path and a name with "/" without a leading slash for root.
func joinPath(dir string, name string) string {
	if dir == "" {
		return name
	}

	return dir + "/" + name
}

// validateName rejects empty names and names with path separators.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}

// splitExt splits a name at its last dot; the dot is not part of either result.
func splitExt(name string) (string, string) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return name, ""
	}

	return name[:dot], name[dot+1:]
}
