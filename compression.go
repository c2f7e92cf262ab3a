// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"bytes"
	"fmt"

	"github.com/woozymasta/lzss"
	"github.com/woozymasta/pathrules"
)

// compressMatcher holds compiled allow-list rules for PBO compression.
type compressMatcher struct {
	matcher *pathrules.Matcher
}

// newCompressMatcher compiles compression path rules. No rules yield a nil matcher.
func newCompressMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*compressMatcher, error) {
	rules = normalizeCompressRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidCompressPattern, err)
	}

	return &compressMatcher{matcher: matcher}, nil
}

// normalizeCompressRules normalizes rule patterns and drops empty patterns.
func normalizeCompressRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{Action: rule.Action, Pattern: pattern})
	}

	return normalized
}

// Match reports whether path is included by the compress rules.
func (m *compressMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// shouldCompress returns true if path and size pass compression policy.
func shouldCompress(opts PBOOptions, matcher *compressMatcher, path string, size int) bool {
	if size < int(opts.MinCompressSize) || size > int(opts.MaxCompressSize) {
		return false
	}

	return matcher.Match(path)
}

// compressLZSS compresses data, returning ok=false when packing does not shrink it.
func compressLZSS(data []byte) ([]byte, bool, error) {
	packed, err := lzss.Compress(data, lzss.DefaultCompressOptions())
	if err != nil {
		return nil, false, err
	}

	if len(packed) >= len(data) {
		return nil, false, nil
	}

	return packed, true, nil
}

// decompressLZSS unpacks data into exactly outLen bytes.
func decompressLZSS(packed []byte, outLen int) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(outLen)
	if _, err := lzss.DecompressToWriter(&out, bytes.NewReader(packed), outLen, nil); err != nil {
		return nil, err
	}

	if out.Len() != outLen {
		return nil, fmt.Errorf("decompressed %d bytes, want %d", out.Len(), outLen)
	}

	return out.Bytes(), nil
}
