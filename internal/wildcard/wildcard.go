// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

// Package wildcard compiles case-insensitive name patterns into pathrules matchers.
package wildcard

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// Set matches names against an include-only pattern list.
type Set struct {
	matcher  *pathrules.Matcher
	patterns []string
}

// Compile builds a Set from patterns. Empty patterns are dropped; a Set
// without patterns matches nothing.
func Compile(patterns ...string) (*Set, error) {
	rules := make([]pathrules.Rule, 0, len(patterns))
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		kept = append(kept, p)
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p})
	}

	if len(rules) == 0 {
		return &Set{}, nil
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("compile patterns %q: %w", kept, err)
	}

	return &Set{matcher: matcher, patterns: kept}, nil
}

// Match reports whether name matches any pattern.
func (s *Set) Match(name string) bool {
	if s == nil || s.matcher == nil || name == "" {
		return false
	}

	return s.matcher.Included(name, false)
}

// Empty reports whether the set holds no patterns.
func (s *Set) Empty() bool {
	return s == nil || len(s.patterns) == 0
}

// Patterns returns the compiled pattern list.
func (s *Set) Patterns() []string {
	if s == nil {
		return nil
	}

	out := make([]string, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// NewRuleMatcher compiles ordered include/exclude rules after normalizing
// separators. It returns nil when no usable rule remains.
func NewRuleMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*pathrules.Matcher, error) {
	if len(rules) == 0 {
		return nil, nil
	}

	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := strings.TrimSpace(strings.ReplaceAll(rule.Pattern, `\`, `/`))
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{Action: rule.Action, Pattern: pattern})
	}

	if len(normalized) == 0 {
		return nil, nil
	}

	return pathrules.NewMatcher(normalized, opts)
}
