// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

/*
Package dataformat sniffs raw entry bytes and answers whether they look like a
known binary format.

Every matcher is a pure function of its input: it never mutates the slice,
tolerates empty or truncated data, and reports malformed structures as [No]
rather than failing.

	reg := dataformat.NewBuiltin()
	if reg.Get(dataformat.IDArchiveWAD).Check(data) == dataformat.Yes {
	    // data is a WAD container
	}
*/
package dataformat

import (
	"sort"
	"sync"
)

// Verdict is a tri-state signature match result.
type Verdict uint8

const (
	// No means data is definitely not this format.
	No Verdict = iota
	// Unconfirmed means data may be this format but the signature is permissive.
	Unconfirmed
	// Yes means data matched a strict signature and structural checks.
	Yes
)

// String returns a verdict label.
func (v Verdict) String() string {
	switch v {
	case Yes:
		return "yes"
	case Unconfirmed:
		return "unconfirmed"
	default:
		return "no"
	}
}

// Matched reports whether verdict is Yes or Unconfirmed.
func (v Verdict) Matched() bool {
	return v != No
}

// Well-known data format identifiers.
const (
	IDAny         = "any"
	IDText        = "text"
	IDArchiveWAD  = "archive_wad"
	IDArchiveZip  = "archive_zip"
	IDArchivePak  = "archive_pak"
	IDArchiveGRP  = "archive_grp"
	IDArchivePod  = "archive_pod"
	IDArchivePBO  = "archive_pbo"
	IDImagePNG    = "img_png"
	IDImageJPEG   = "img_jpeg"
	IDImageGIF    = "img_gif"
	IDImageBMP    = "img_bmp"
	IDImageDoom   = "img_doom"
	IDSoundWAV    = "snd_wav"
	IDSoundOgg    = "snd_ogg"
	IDSoundFLAC   = "snd_flac"
	IDSoundMP3    = "snd_mp3"
	IDSoundDoom   = "snd_doom"
	IDMidiMIDI    = "midi_midi"
	IDMidiMUS     = "midi_mus"
	IDPaletteDoom = "palette_doom"
)

// Format is one named signature matcher.
type Format struct {
	// Check sniffs data; nil means Unconfirmed for any input.
	Check func(data []byte) Verdict
	// ID is the registry key.
	ID string
	// Name is a display label.
	Name string
}

// IsThisFormat runs the matcher against data.
func (f *Format) IsThisFormat(data []byte) Verdict {
	if f == nil || f.Check == nil {
		return Unconfirmed
	}

	return f.Check(data)
}

// Registry holds data formats keyed by id.
type Registry struct {
	formats map[string]*Format
	order   []*Format
	mu      sync.RWMutex
}

// New returns a registry holding only the catch-all "any" and "text" formats.
func New() *Registry {
	r := &Registry{formats: make(map[string]*Format)}
	r.Register(&Format{ID: IDAny, Name: "Any", Check: matchAny})
	r.Register(&Format{ID: IDText, Name: "Text", Check: matchAny})
	return r
}

// NewBuiltin returns a registry populated with every built-in matcher.
func NewBuiltin() *Registry {
	r := New()
	for _, f := range builtinFormats() {
		r.Register(f)
	}

	return r
}

// Register adds or replaces a format. Formats with empty id are ignored.
func (r *Registry) Register(f *Format) {
	if f == nil || f.ID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formats[f.ID]; !exists {
		r.order = append(r.order, f)
	} else {
		for i := range r.order {
			if r.order[i].ID == f.ID {
				r.order[i] = f
			}
		}
	}

	r.formats[f.ID] = f
}

// Lookup returns the format with id.
func (r *Registry) Lookup(id string) (*Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formats[id]
	return f, ok
}

// Get returns the format with id, falling back to "any" for unknown ids.
func (r *Registry) Get(id string) *Format {
	if f, ok := r.Lookup(id); ok {
		return f
	}

	f, _ := r.Lookup(IDAny)
	return f
}

// Any returns the catch-all format.
func (r *Registry) Any() *Format {
	return r.Get(IDAny)
}

// IDs returns registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.formats))
	for id := range r.formats {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}

// Identify returns the first registered non-catch-all format giving a Yes verdict.
func (r *Registry) Identify(data []byte) (*Format, bool) {
	r.mu.RLock()
	order := make([]*Format, len(r.order))
	copy(order, r.order)
	r.mu.RUnlock()

	for _, f := range order {
		if f.ID == IDAny || f.ID == IDText {
			continue
		}
		if f.IsThisFormat(data) == Yes {
			return f, true
		}
	}

	return nil, false
}

// matchAny is the permissive catch-all matcher. Empty input never matches.
func matchAny(data []byte) Verdict {
	if len(data) == 0 {
		return No
	}

	return Unconfirmed
}
