// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"slices"
	"strings"

	"github.com/woozymasta/lumpkit/entrytype"
	"github.com/woozymasta/lumpkit/internal/wildcard"
)

// SearchOptions filters entry searches. Zero fields do not filter.
type SearchOptions struct {
	// Dir is the starting directory; nil is root.
	Dir *Dir
	// Type restricts results to one entry type.
	Type *entrytype.Type
	// Name is a case-insensitive wildcard pattern.
	Name string
	// Namespace restricts results to one namespace.
	Namespace string
	// IgnoreExt strips the extension before name matching.
	IgnoreExt bool
	// Recursive descends into subdirectories.
	Recursive bool
}

// entryFilter is compiled SearchOptions.
type entryFilter struct {
	a         *Archive
	typ       *entrytype.Type
	name      *wildcard.Set
	namespace string
	ignoreExt bool
}

func (a *Archive) compileSearch(opts SearchOptions) (*entryFilter, *Dir, bool) {
	dir := opts.Dir
	if dir == nil {
		dir = a.root
	}

	if !a.ownsDir(dir) {
		return nil, nil, false
	}

	f := &entryFilter{
		a:         a,
		typ:       opts.Type,
		namespace: strings.ToLower(opts.Namespace),
		ignoreExt: opts.IgnoreExt,
	}

	if opts.Name != "" {
		set, err := wildcard.Compile(opts.Name)
		if err != nil {
			a.logger.Warn("invalid search pattern", "pattern", opts.Name, "error", err)
			return nil, nil, false
		}

		f.name = set
	}

	return f, dir, true
}

// match reports whether e passes every active filter.
func (f *entryFilter) match(e *Entry) bool {
	if f.typ != nil && e.Type().ID != f.typ.ID {
		return false
	}

	if f.name != nil {
		name := e.name
		if f.ignoreExt {
			name = e.NameNoExt()
		}

		if !f.name.Match(name) {
			return false
		}
	}

	if f.namespace != "" && f.a.DetectNamespace(e) != f.namespace {
		return false
	}

	return true
}

// FindFirst returns the first match: entries of a directory top-down,
// then each subdirectory in order.
func (a *Archive) FindFirst(opts SearchOptions) *Entry {
	f, dir, ok := a.compileSearch(opts)
	if !ok {
		return nil
	}

	return f.first(dir, opts.Recursive)
}

func (f *entryFilter) first(d *Dir, recursive bool) *Entry {
	for _, e := range d.entries {
		if f.match(e) {
			return e
		}
	}

	if recursive {
		for _, sub := range d.subdirs {
			if e := f.first(sub, true); e != nil {
				return e
			}
		}
	}

	return nil
}

// FindLast returns the last match: subdirectories bottom-up first, then
// the directory's own entries bottom-up.
func (a *Archive) FindLast(opts SearchOptions) *Entry {
	f, dir, ok := a.compileSearch(opts)
	if !ok {
		return nil
	}

	return f.last(dir, opts.Recursive)
}

func (f *entryFilter) last(d *Dir, recursive bool) *Entry {
	if recursive {
		for _, sub := range slices.Backward(d.subdirs) {
			if e := f.last(sub, true); e != nil {
				return e
			}
		}
	}

	for _, e := range slices.Backward(d.entries) {
		if f.match(e) {
			return e
		}
	}

	return nil
}

// FindAll returns every match: a directory's entries, then each subdirectory.
func (a *Archive) FindAll(opts SearchOptions) []*Entry {
	f, dir, ok := a.compileSearch(opts)
	if !ok {
		return nil
	}

	return f.all(dir, opts.Recursive, nil)
}

func (f *entryFilter) all(d *Dir, recursive bool, out []*Entry) []*Entry {
	for _, e := range d.entries {
		if f.match(e) {
			out = append(out, e)
		}
	}

	if recursive {
		for _, sub := range d.subdirs {
			out = f.all(sub, true, out)
		}
	}

	return out
}
