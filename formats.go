// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/woozymasta/lumpkit/dataformat"
)

// Archive format ids.
const (
	FormatWAD    = "wad"
	FormatZip    = "zip"
	FormatPak    = "pak"
	FormatGRP    = "grp"
	FormatPod    = "pod"
	FormatPBO    = "pbo"
	FormatFolder = "folder"
)

// FormatInfo describes container naming rules and detection.
type FormatInfo struct {
	// ID is the stable format id.
	ID string `json:"id" yaml:"id"`
	// Name is a display name.
	Name string `json:"name" yaml:"name"`
	// EntryFormat is the dataformat id used to sniff container bytes.
	EntryFormat string `json:"entry_format,omitempty" yaml:"entry_format,omitempty"`
	// Extensions lists file extensions without dots.
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	// MaxNameLength truncates entry names; zero is unlimited.
	MaxNameLength int `json:"max_name_length,omitempty" yaml:"max_name_length,omitempty"`
	// NamesHaveExtensions is false when entry names drop extensions.
	NamesHaveExtensions bool `json:"names_have_extensions,omitempty" yaml:"names_have_extensions,omitempty"`
	// PreferUppercase uppercases entry names on add and rename.
	PreferUppercase bool `json:"prefer_uppercase,omitempty" yaml:"prefer_uppercase,omitempty"`
	// SupportsDirs is false for flat containers.
	SupportsDirs bool `json:"supports_dirs,omitempty" yaml:"supports_dirs,omitempty"`
	// AllowDuplicates permits sibling entries sharing a name.
	AllowDuplicates bool `json:"allow_duplicates,omitempty" yaml:"allow_duplicates,omitempty"`
	// MarkerNamespaces derives namespaces from X_START/X_END marker entries.
	MarkerNamespaces bool `json:"marker_namespaces,omitempty" yaml:"marker_namespaces,omitempty"`
	// OnDiskDir marks formats backed by a filesystem directory instead of a file.
	OnDiskDir bool `json:"on_disk_dir,omitempty" yaml:"on_disk_dir,omitempty"`
}

// FormatName applies naming rules to name.
func (f FormatInfo) FormatName(name string) string {
	if !f.NamesHaveExtensions {
		name, _ = splitExt(name)
	}

	if f.PreferUppercase {
		name = strings.ToUpper(name)
	}

	if f.MaxNameLength > 0 && len(name) > f.MaxNameLength {
		name = name[:f.MaxNameLength]
	}

	return name
}

// Source is a byte container an archive is read from.
type Source struct {
	// ReaderAt reads container bytes.
	ReaderAt io.ReaderAt
	// Path is the on-disk file path; empty for in-memory sources.
	Path string
	// Size is the container size in bytes.
	Size int64
}

// Commit rebinds backend bookkeeping to a freshly written container.
type Commit func(src Source) error

// Backend reads and writes one container format. A backend instance
// serves exactly one archive.
type Backend interface {
	// Info describes the format.
	Info() FormatInfo
	// Read parses src into a new tree without touching archive state.
	Read(a *Archive, src Source) (*Dir, error)
	// Write serializes the archive tree. The returned Commit runs once the
	// written bytes become the archive source.
	Write(a *Archive, w io.Writer) (Commit, error)
	// LoadEntryData reads one entry payload from the archive source.
	LoadEntryData(a *Archive, e *Entry) ([]byte, error)
}

// pathBackend is implemented by formats backed by an on-disk directory.
type pathBackend interface {
	ReadPath(a *Archive, path string) (*Dir, error)
	WritePath(a *Archive, path string) error
}

// Constructor returns a fresh backend.
type Constructor func(opts *Options) Backend

type formatSlot struct {
	ctor Constructor
	info FormatInfo
}

// Formats maps format ids to backend constructors.
type Formats struct {
	byID  map[string]formatSlot
	order []string
	mu    sync.RWMutex
}

// NewFormats returns an empty registry.
func NewFormats() *Formats {
	return &Formats{byID: make(map[string]formatSlot)}
}

var (
	defaultFormatsOnce sync.Once
	defaultFormats     *Formats
)

// DefaultFormats returns the shared registry with every built-in backend.
func DefaultFormats() *Formats {
	defaultFormatsOnce.Do(func() {
		defaultFormats = NewFormats()
		for _, ctor := range []Constructor{
			newWADBackend,
			newZipBackend,
			newPakBackend,
			newGRPBackend,
			newPodBackend,
			newPBOBackend,
			newFolderBackend,
		} {
			defaultFormats.Register(ctor)
		}
	})

	return defaultFormats
}

// Register adds or replaces a backend constructor keyed by its format id.
func (f *Formats) Register(ctor Constructor) {
	info := ctor(nil).Info()

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.byID[info.ID]; !ok {
		f.order = append(f.order, info.ID)
	}

	f.byID[info.ID] = formatSlot{info: info, ctor: ctor}
}

// Lookup returns the descriptor for id.
func (f *Formats) Lookup(id string) (FormatInfo, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	slot, ok := f.byID[strings.ToLower(id)]
	return slot.info, ok
}

// Infos returns every descriptor in registration order.
func (f *Formats) Infos() []FormatInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]FormatInfo, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.byID[id].info)
	}

	return out
}

// newBackend constructs a backend for id.
func (f *Formats) newBackend(id string, opts *Options) (Backend, error) {
	f.mu.RLock()
	slot, ok := f.byID[strings.ToLower(id)]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, id)
	}

	return slot.ctor(opts), nil
}

// ByExtension returns the first file format claiming ext.
func (f *Formats) ByExtension(ext string) (FormatInfo, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, info := range f.Infos() {
		if slices.Contains(info.Extensions, ext) {
			return info, true
		}
	}

	return FormatInfo{}, false
}

// Detect picks a file format for data. Confirmed signatures win, then the
// extension of name, then unconfirmed signatures.
func (f *Formats) Detect(data []byte, name string, formats *dataformat.Registry) (FormatInfo, bool) {
	var weak []FormatInfo
	for _, info := range f.Infos() {
		if info.EntryFormat == "" {
			continue
		}

		df, ok := formats.Lookup(info.EntryFormat)
		if !ok {
			continue
		}

		switch df.IsThisFormat(data) {
		case dataformat.Yes:
			return info, true
		case dataformat.Unconfirmed:
			weak = append(weak, info)
		}
	}

	if _, ext := splitExt(name); ext != "" {
		if info, ok := f.ByExtension(ext); ok && !info.OnDiskDir {
			return info, true
		}
	}

	if len(weak) > 0 {
		return weak[0], true
	}

	return FormatInfo{}, false
}
