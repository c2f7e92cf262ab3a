// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

/*
Package entrytype classifies entry payloads into typed resources.

A [Registry] holds ordered [Type] rules. Detection walks every detectable type
in registration order, skipping types whose reliability cannot beat the best
match found so far, and stops early once a maximally reliable type matches.

	reg := entrytype.Default()
	m, ok := reg.Detect(entry, nil)
*/
package entrytype

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/woozymasta/lumpkit/dataformat"
	"github.com/woozymasta/lumpkit/internal/wildcard"
)

// Match is a classification result.
type Match struct {
	Type       *Type
	Confidence uint8
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger used for definition warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry holds entry types keyed by lowercase id.
type Registry struct {
	formats *dataformat.Registry
	logger  *slog.Logger
	byID    map[string]*Type
	order   []*Type
	mu      sync.RWMutex
}

// New returns a registry with only the reserved pseudo types.
// A nil formats registry uses dataformat.NewBuiltin.
func New(formats *dataformat.Registry, opts ...Option) *Registry {
	if formats == nil {
		formats = dataformat.NewBuiltin()
	}

	r := &Registry{
		formats: formats,
		logger:  slog.New(slog.DiscardHandler),
		byID:    make(map[string]*Type),
	}
	for _, opt := range opts {
		opt(r)
	}

	unknown := NewType(IDUnknown)
	unknown.Name = "Unknown"
	unknown.Detectable = false
	unknown.Reliability = 0

	marker := NewType(IDMarker)
	marker.Name = "Marker"
	marker.Detectable = false
	marker.MaxSize = 0

	folder := NewType(IDFolder)
	folder.Name = "Folder"
	folder.Detectable = false

	mapMarker := NewType(IDMap)
	mapMarker.Name = "Map Marker"
	mapMarker.Detectable = false

	for _, t := range []*Type{unknown, marker, folder, mapMarker} {
		_ = r.Register(t)
	}

	return r
}

// NewBuiltin returns a registry loaded with the embedded type definitions.
func NewBuiltin(formats *dataformat.Registry, opts ...Option) (*Registry, error) {
	r := New(formats, opts...)
	if err := r.Load(builtinDefinitions); err != nil {
		return nil, fmt.Errorf("load builtin types: %w", err)
	}

	return r, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := NewBuiltin(nil)
	if err != nil {
		panic(err)
	}

	return r
})

// Default returns the shared built-in registry.
func Default() *Registry {
	return defaultRegistry()
}

// Formats returns the data format registry used to resolve type formats.
func (r *Registry) Formats() *dataformat.Registry {
	return r.formats
}

// Register adds t or replaces a type with the same id, keeping its position.
// Register resolves the data format and compiles name patterns.
func (r *Registry) Register(t *Type) error {
	if t == nil || strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}

	t.ID = strings.ToLower(strings.TrimSpace(t.ID))
	if t.Format == "" {
		t.Format = dataformat.IDAny
	}

	nameMatch, err := wildcard.Compile(t.MatchName...)
	if err != nil {
		return fmt.Errorf("type %q: %w", t.ID, err)
	}
	t.nameMatch = nameMatch

	format, ok := r.formats.Lookup(t.Format)
	if !ok {
		r.logger.Warn("unknown data format, using any",
			slog.String("type", t.ID), slog.String("format", t.Format))
		format = r.formats.Any()
	}
	t.format = format

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.byID[t.ID]; exists {
		t.index = old.index
		r.order[old.index] = t
	} else {
		t.index = len(r.order)
		r.order = append(r.order, t)
	}
	r.byID[t.ID] = t

	return nil
}

// Lookup returns the type with id.
func (r *Registry) Lookup(id string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[strings.ToLower(id)]
	return t, ok
}

// Get returns the type with id or the unknown type.
func (r *Registry) Get(id string) *Type {
	if t, ok := r.Lookup(id); ok {
		return t
	}

	return r.Unknown()
}

// Types returns all types in registration order.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Type, len(r.order))
	copy(out, r.order)
	return out
}

// Unknown returns the fallback type.
func (r *Registry) Unknown() *Type {
	t, _ := r.Lookup(IDUnknown)
	return t
}

// Marker returns the zero-size marker type.
func (r *Registry) Marker() *Type {
	t, _ := r.Lookup(IDMarker)
	return t
}

// Folder returns the directory pseudo type.
func (r *Registry) Folder() *Type {
	t, _ := r.Lookup(IDFolder)
	return t
}

// MapMarker returns the map header pseudo type.
func (r *Registry) MapMarker() *Type {
	t, _ := r.Lookup(IDMap)
	return t
}

// Detect classifies s. current is the subject's present type, if any.
// The returned bool is false when the result is the marker, the unknown type,
// or current was a folder or map marker that detection never replaces.
func (r *Registry) Detect(s Subject, current *Type) (Match, bool) {
	if current != nil && (current.ID == IDFolder || current.ID == IDMap) {
		return Match{Type: current, Confidence: MaxReliability}, false
	}

	if s.Size() == 0 {
		return Match{Type: r.Marker(), Confidence: MaxReliability}, false
	}

	best := Match{Type: r.Unknown()}
	for _, t := range r.Types() {
		if t.Reliability <= best.Confidence {
			continue
		}

		confidence := t.match(s)
		if confidence == 0 || confidence <= best.Confidence {
			continue
		}

		best = Match{Type: t, Confidence: confidence}
		if confidence == MaxReliability {
			break
		}
	}

	return best, best.Type.ID != IDUnknown
}

// ByExtension returns the first type whose extension list contains ext.
func (r *Registry) ByExtension(ext string) (*Type, bool) {
	ext = strings.TrimPrefix(ext, ".")
	for _, t := range r.Types() {
		if containsFold(t.MatchExt, ext) {
			return t, true
		}
	}

	return nil, false
}
