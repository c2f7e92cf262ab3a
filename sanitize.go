// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"fmt"
	"hash/fnv"
	"path"
	"strconv"
	"strings"
	"unicode"
)

// maxSanitizedSegmentLen limits one exported path segment.
const maxSanitizedSegmentLen = 240

// reservedDeviceNames lists DOS device names that cannot be used as file
// names on Windows, regardless of extension. COMn and LPTn are matched
// separately.
var reservedDeviceNames = map[string]struct{}{
	"aux":     {},
	"clock$":  {},
	"con":     {},
	"config$": {},
	"kbd$":    {},
	"keybd$":  {},
	"lst":     {},
	"mouse$":  {},
	"nul":     {},
	"prn":     {},
	"screen$": {},
}

// DisplayPath replaces control and format runes in p for safe text output.
func DisplayPath(p string) string {
	segments := splitLoose(p)
	if len(segments) == 0 {
		return "_"
	}

	for i, s := range segments {
		segments[i] = replaceRunes(s, isUnsafeControlCharRune)
	}

	return strings.Join(segments, "/")
}

// sanitizeExportPaths maps entry paths to filesystem-safe relative paths.
// Case-insensitive collisions get "~N" suffixes in input order.
func sanitizeExportPaths(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	taken := make(map[string]struct{}, len(paths))

	for i, raw := range paths {
		segments := splitLoose(raw)
		for j, s := range segments {
			seg, err := sanitizePathSegment(s)
			if err != nil {
				return nil, fmt.Errorf("sanitize path %s: %w", raw, err)
			}
			segments[j] = seg
		}

		p := "_"
		if len(segments) > 0 {
			p = strings.Join(segments, "/")
		}

		p = uniquePath(p, taken)
		if _, err := normalizeExportPath(p); err != nil {
			return nil, fmt.Errorf("sanitize path %s: %w", raw, err)
		}

		out[i] = p
	}

	return out, nil
}

// splitLoose splits p on both separators, drops empty and "." segments and
// turns ".." into "_". It never fails, so mangled names still export.
func splitLoose(p string) []string {
	parts := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
	out := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "", ".":
			continue
		case "..":
			part = "_"
		}

		out = append(out, part)
	}

	return out
}

// sanitizePathSegment makes one segment valid on common filesystems.
func sanitizePathSegment(segment string) (string, error) {
	segment = strings.TrimSpace(segment)
	reserved := isReservedDeviceName(segment)

	s := replaceRunes(segment, func(r rune) bool {
		return isUnsafeControlCharRune(r) || strings.ContainsRune(`<>:"/\|?*`, r)
	})
	s = strings.TrimRight(s, ". ")
	if s == "" {
		return "_", nil
	}

	if reserved || isReservedDeviceName(s) {
		s = "_" + s
	}
	if len(s) > maxSanitizedSegmentLen {
		s = shortenSegment(s, maxSanitizedSegmentLen)
	}

	return s, nil
}

// replaceRunes replaces every rune matching bad with '_'.
func replaceRunes(s string, bad func(rune) bool) string {
	return strings.Map(func(r rune) rune {
		if bad(r) {
			return '_'
		}

		return r
	}, s)
}

// isUnsafeControlCharRune reports control, format, and replacement runes.
func isUnsafeControlCharRune(r rune) bool {
	return unicode.IsControl(r) || unicode.In(r, unicode.Cf) || r == unicode.ReplacementChar
}

// isReservedDeviceName reports whether name, up to its first dot, is a DOS device.
func isReservedDeviceName(name string) bool {
	base := strings.ToLower(strings.TrimRight(strings.TrimSpace(name), ". :"))
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}

	if len(base) == 4 && (strings.HasPrefix(base, "com") || strings.HasPrefix(base, "lpt")) {
		return base[3] >= '1' && base[3] <= '9'
	}

	_, ok := reservedDeviceNames[base]
	return ok
}

// uniquePath returns p, or p with the lowest free "~N" suffix, and marks it taken.
func uniquePath(p string, taken map[string]struct{}) string {
	candidate := p
	dir, name := path.Split(p)
	for n := 2; ; n++ {
		key := strings.ToLower(candidate)
		if _, ok := taken[key]; !ok {
			taken[key] = struct{}{}
			return candidate
		}

		candidate = dir + withNumericSuffix(name, n)
	}
}

// withNumericSuffix inserts "~N" before the extension of name.
func withNumericSuffix(name string, n int) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	suffix := "~" + strconv.Itoa(n)
	if limit := max(maxSanitizedSegmentLen-len(ext)-len(suffix), 1); len(base) > limit {
		base = shortenSegment(base, limit)
	}

	return base + suffix + ext
}

// shortenSegment truncates s to maxLen, keeping a hash of the full value.
func shortenSegment(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 10 {
		return s[:maxLen]
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	tail := fmt.Sprintf("~%08x", h.Sum32())

	return s[:maxLen-len(tail)] + tail
}

// normalizeExportPath cleans an entry path for export and rejects absolute
// paths, drive prefixes, NUL bytes, and parent traversal.
func normalizeExportPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" || strings.ContainsRune(raw, 0) || raw[0] == '/' || raw[0] == '\\' {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if len(raw) >= 3 && raw[1] == ':' && raw[2] == '/' {
		return "", ErrInvalidExtractPath
	}

	var clean []string
	for part := range strings.SplitSeq(raw, "/") {
		switch part {
		case "", ".":
		case "..":
			return "", ErrInvalidExtractPath
		default:
			clean = append(clean, part)
		}
	}
	if len(clean) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(clean, "/"), nil
}
