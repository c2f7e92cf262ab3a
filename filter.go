// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import "strings"

// FilterByPrefix keeps entries under the slash path prefix, or the entry at
// prefix itself. Matching is case-insensitive.
func FilterByPrefix(entries []*Entry, prefix string) []*Entry {
	prefix = strings.ToLower(NormalizePath(prefix))
	if prefix == "" {
		return entries
	}

	withSlash := prefix + "/"
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		p := strings.ToLower(e.Path())
		if p == prefix || strings.HasPrefix(p, withSlash) {
			out = append(out, e)
		}
	}

	return out
}

// filterJunkRecords removes malformed or unusable PBO index records.
func filterJunkRecords(records []pboRecord) []pboRecord {
	filtered := records[:0]
	for _, rec := range records {
		if rec.dataSize == 0 {
			continue
		}

		if rec.mime == MimeCompress && rec.originalSize == 0 {
			continue
		}

		if _, err := normalizeExportPath(rec.path); err != nil {
			continue
		}

		filtered = append(filtered, rec)
	}

	return filtered
}
