// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package entrytype

import (
	"maps"
	"slices"
	"strings"

	"github.com/woozymasta/lumpkit/dataformat"
	"github.com/woozymasta/lumpkit/internal/wildcard"
)

// MaxReliability is the confidence that ends a detection scan early.
const MaxReliability = 255

// Reserved type ids that always exist in a registry.
const (
	IDUnknown = "unknown"
	IDMarker  = "marker"
	IDFolder  = "folder"
	IDMap     = "map"
)

// Type is one entry classification rule.
type Type struct {
	// Extra holds definition keys that have no dedicated field.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`

	format    *dataformat.Format
	nameMatch *wildcard.Set

	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Category  string `json:"category,omitempty" yaml:"category,omitempty"`
	Icon      string `json:"icon,omitempty" yaml:"icon,omitempty"`
	ExportExt string `json:"export_ext,omitempty" yaml:"export_ext,omitempty"`
	// Format is the data format id checked against entry bytes.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// Parent is the id this type inherited from, if any.
	Parent string `json:"inherits,omitempty" yaml:"inherits,omitempty"`

	MatchName    []string `json:"match_name,omitempty" yaml:"match_name,omitempty"`
	MatchExt     []string `json:"match_ext,omitempty" yaml:"match_ext,omitempty"`
	Sections     []string `json:"section,omitempty" yaml:"section,omitempty"`
	MatchArchive []string `json:"match_archive,omitempty" yaml:"match_archive,omitempty"`
	// Sizes is an explicit allow-list of payload sizes.
	Sizes         []int `json:"size,omitempty" yaml:"size,omitempty"`
	SizeMultiples []int `json:"size_multiple,omitempty" yaml:"size_multiple,omitempty"`
	// MinSize and MaxSize bound payload size; negative means unbounded.
	MinSize int `json:"min_size" yaml:"min_size"`
	MaxSize int `json:"max_size" yaml:"max_size"`

	index int

	Reliability    uint8 `json:"reliability" yaml:"reliability"`
	Detectable     bool  `json:"detectable" yaml:"detectable"`
	MatchExtOrName bool  `json:"match_ext_or_name,omitempty" yaml:"match_ext_or_name,omitempty"`
}

// NewType returns a detectable type with default constraints.
func NewType(id string) *Type {
	return &Type{
		ID:          id,
		Name:        id,
		Format:      dataformat.IDAny,
		Detectable:  true,
		Reliability: MaxReliability,
		MinSize:     -1,
		MaxSize:     -1,
	}
}

// Clone returns a deep copy detached from any registry.
func (t *Type) Clone() *Type {
	c := *t
	c.MatchName = slices.Clone(t.MatchName)
	c.MatchExt = slices.Clone(t.MatchExt)
	c.Sections = slices.Clone(t.Sections)
	c.MatchArchive = slices.Clone(t.MatchArchive)
	c.Sizes = slices.Clone(t.Sizes)
	c.SizeMultiples = slices.Clone(t.SizeMultiples)
	c.Extra = maps.Clone(t.Extra)
	c.format = nil
	c.nameMatch = nil
	c.index = 0
	return &c
}

// DataFormat returns the resolved data format; nil before registration.
func (t *Type) DataFormat() *dataformat.Format {
	return t.format
}

// Index returns the registration order position.
func (t *Type) Index() int {
	return t.index
}

// String returns the type id.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}

	return t.ID
}

// Subject is the entry view consumed by type matching.
type Subject interface {
	// Name returns the full entry name including extension.
	Name() string
	// Size returns payload size without forcing a load.
	Size() int
	// Data returns the payload, loading it if needed.
	Data() []byte
	// ArchiveFormat returns the containing archive format id.
	ArchiveFormat() (string, bool)
	// Namespace returns the entry namespace within its archive.
	Namespace() (string, bool)
}

// match evaluates every constraint against s and returns the confidence, zero on reject.
func (t *Type) match(s Subject) uint8 {
	if !t.Detectable {
		return 0
	}

	size := s.Size()
	if t.MinSize >= 0 && size < t.MinSize {
		return 0
	}
	if t.MaxSize >= 0 && size > t.MaxSize {
		return 0
	}

	if len(t.MatchArchive) > 0 {
		format, ok := s.ArchiveFormat()
		if !ok || !containsFold(t.MatchArchive, format) {
			return 0
		}
	}

	if len(t.Sizes) > 0 && !slices.Contains(t.Sizes, size) {
		return 0
	}

	confidence := t.Reliability
	switch {
	case t.Format == dataformat.IDText:
		if hasEmbeddedNUL(s.Data()) {
			return 0
		}
	case t.format != nil && t.format.ID != dataformat.IDAny:
		switch t.format.IsThisFormat(s.Data()) {
		case dataformat.No:
			return 0
		case dataformat.Unconfirmed:
			confidence = max(confidence/2, 1)
		}
	}

	if len(t.SizeMultiples) > 0 && !sizeIsMultiple(size, t.SizeMultiples) {
		return 0
	}

	if !t.matchNameExt(s.Name()) {
		return 0
	}

	if len(t.Sections) > 0 {
		ns, ok := s.Namespace()
		if !ok || !containsFold(t.Sections, ns) {
			return 0
		}
	}

	return confidence
}

// matchNameExt applies name and extension patterns honoring MatchExtOrName.
func (t *Type) matchNameExt(fullName string) bool {
	hasName := !t.nameMatch.Empty()
	hasExt := len(t.MatchExt) > 0
	if !hasName && !hasExt {
		return true
	}

	base, ext := splitExt(fullName)
	nameOK := !hasName || t.nameMatch.Match(base)
	extOK := !hasExt || containsFold(t.MatchExt, ext)

	if t.MatchExtOrName && hasName && hasExt {
		return nameOK || extOK
	}

	return nameOK && extOK
}

// hasEmbeddedNUL reports a NUL byte in text data. The final byte is never
// scanned (trailing terminator). When the last two bytes are both NUL, the
// scan stops three bytes short to tolerate editors that pad with two extra NULs.
func hasEmbeddedNUL(data []byte) bool {
	end := len(data) - 1
	if len(data) >= 3 && data[len(data)-1] == 0 && data[len(data)-2] == 0 {
		end = len(data) - 3
	}

	for i := 0; i < end; i++ {
		if data[i] == 0 {
			return true
		}
	}

	return false
}

// sizeIsMultiple reports whether size is a multiple of any listed value.
func sizeIsMultiple(size int, multiples []int) bool {
	for _, m := range multiples {
		if m > 0 && size%m == 0 {
			return true
		}
	}

	return false
}

// splitExt splits name into lowercase-insensitive base and extension without dot.
func splitExt(name string) (string, string) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return name, ""
	}

	return name[:dot], name[dot+1:]
}

// containsFold reports a case-insensitive membership.
func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}

	return false
}
